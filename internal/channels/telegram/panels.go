package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/quantumpanel/keybot/internal/broker"
	"github.com/quantumpanel/keybot/internal/bus"
	"github.com/quantumpanel/keybot/internal/registry"
)

const panelDivider = "━━━━━━━━━━━━━━━━━"

func btn(label, data string) bus.Button { return bus.Button{Label: label, Data: data} }

// welcomeMessage builds the /start greeting for the user's role.
func welcomeMessage(userID int64, name, username string, reg *registry.Registry) (string, [][]bus.Button) {
	caps := reg.Resolve(userID)

	header := fmt.Sprintf("👤 *Name:* %s\n🆔 *Username:* %s\n🔑 *User ID:* `%d`", name, username, userID)

	switch {
	case caps.Has(registry.CapAdmin):
		text := fmt.Sprintf(
			"✨ *Welcome Back, Admin!* ✨\n\n%s\n\n%s\n🎯 Choose your control panel below:",
			header, panelDivider)
		return text, [][]bus.Button{{
			btn("🔧 Admin Panel", "open_admin_panel"),
			btn("💼 Seller Panel", "open_seller_panel"),
		}}

	case caps.Has(registry.CapSeller):
		text := fmt.Sprintf(
			"🎉 *Welcome, Seller!* 🎉\n\n%s\n\n%s\n💼 Access your seller panel below:",
			header, panelDivider)
		return text, [][]bus.Button{{btn("💼 Seller Panel", "open_seller_panel")}}

	default:
		text := fmt.Sprintf(
			"🌟 *Welcome to Quantum Panel!* 🌟\n\n%s\n\n%s\n🛒 This bot helps you buy *official keys* directly from our authorized sellers.\n\n✨ Please choose an option below to get started!",
			header, panelDivider)
		return text, [][]bus.Button{{btn("🔑 Buy Key(s)", "buy_keys")}}
	}
}

func helpText(userID int64, reg *registry.Registry) string {
	var b strings.Builder
	b.WriteString("ℹ️ *HELP*\n\n" + panelDivider + "\n")
	b.WriteString("  • /start - Open the main menu\n")
	caps := reg.Resolve(userID)
	if caps.Has(registry.CapSeller) {
		b.WriteString("  • /seller - Open the seller panel\n")
		b.WriteString("  • /stop - End your active conversation\n")
	}
	if caps.Has(registry.CapAdmin) {
		b.WriteString("  • /admin - Open the admin panel\n")
		b.WriteString("  • /cancel - Abort the current operation\n")
	}
	b.WriteString("\n" + panelDivider + "\n🛒 Tap *Buy Key(s)* to get connected with a seller.")
	return b.String()
}

// productMenu lists every product for the buyer.
func productMenu(name, username string, products []registry.Product) (string, [][]bus.Button) {
	var rows [][]bus.Button
	for _, p := range products {
		rows = append(rows, []bus.Button{btn("🎯 "+p.Name, "product_"+p.Name)})
	}
	text := fmt.Sprintf(
		"🛍️ *Product Selection Menu*\n\n👤 %s (%s)\n\n%s\n📦 Please choose a product from the list below:",
		name, username, panelDivider)
	return text, rows
}

// productDetails shows one product with the connect button.
func productDetails(p registry.Product, name, username string) (string, [][]bus.Button) {
	desc := p.Description
	if desc == "" {
		desc = "No description available."
	}
	text := fmt.Sprintf(
		"📦 *Product Details*\n\n🎯 *Product:* %s\n📝 *Description:* %s\n\n%s\n👤 *Customer:* %s\n🆔 *Username:* %s\n\n✨ Click below to connect with a seller!",
		p.Name, desc, panelDivider, name, username)
	return text, [][]bus.Button{{btn("🔗 Connect with Seller", "connect_"+p.Name)}}
}

// sellerPanel is the top-level seller menu.
func sellerPanel(userID int64, name, username string) (string, [][]bus.Button) {
	text := fmt.Sprintf(
		"💼 *SELLER PANEL*\n\n%s\n👤 *Seller:* %s\n🆔 *Username:* %s\n🔑 *Seller ID:* `%d`\n\n%s\n🎯 Choose an option below:",
		panelDivider, name, username, userID, panelDivider)
	return text, [][]bus.Button{
		{btn("📊 My Stats", "seller_stats"), btn("📦 Products I Sell", "seller_products")},
		{btn("🔄 Active Chat", "seller_active_chat"), btn("🔔 Toggle Alerts", "seller_toggle_alerts")},
		{btn("ℹ️ Help", "seller_help")},
	}
}

func sellerStatsText(sellerID int64, name string, stats broker.SellerStats) string {
	lastBuyers := "  • None yet"
	if len(stats.LastBuyers) > 0 {
		lines := make([]string, 0, len(stats.LastBuyers))
		for _, id := range stats.LastBuyers {
			lines = append(lines, fmt.Sprintf("  • `%d`", id))
		}
		lastBuyers = strings.Join(lines, "\n")
	}
	return fmt.Sprintf(
		"📊 *YOUR STATISTICS*\n\n%s\n👤 *Seller:* %s\n🔑 *ID:* `%d`\n\n%s\n📈 *Performance Metrics:*\n\n👥 *Total Users Served:* %d\n💬 *Chats Completed:* %d\n📅 *Today's Stats:* %d\n📆 *Monthly Stats:* %d\n\n%s\n🕐 *Last 10 Handled Users:*\n%s",
		panelDivider, name, sellerID, panelDivider,
		stats.TotalServed, stats.ChatsCompleted, stats.Today, stats.Month,
		panelDivider, lastBuyers)
}

func sellerProductsText(sellerID int64, name string, products []string) string {
	if len(products) == 0 {
		return fmt.Sprintf(
			"❌ *NO PRODUCTS ASSIGNED*\n\n%s\n👤 *Seller:* %s\n🔑 *ID:* `%d`\n\n%s\nYou are not currently assigned to any products.",
			panelDivider, name, sellerID, panelDivider)
	}
	lines := make([]string, 0, len(products))
	for _, p := range products {
		lines = append(lines, "  🎯 "+p)
	}
	return fmt.Sprintf(
		"📦 *YOUR PRODUCTS*\n\n%s\n👤 *Seller:* %s\n🔑 *ID:* `%d`\n\n%s\n🛍️ *Products You Sell:*\n\n%s",
		panelDivider, name, sellerID, panelDivider, strings.Join(lines, "\n"))
}

// adminPanel is the top-level admin menu.
func adminPanel(userID int64, name, username string) (string, [][]bus.Button) {
	text := fmt.Sprintf(
		"🔧 *ADMIN CONTROL PANEL*\n\n%s\n👤 *Admin:* %s\n🆔 *Username:* %s\n🔑 *Admin ID:* `%d`\n\n%s\n⚡ Choose an administrative function:",
		panelDivider, name, username, userID, panelDivider)
	return text, adminPanelButtons()
}

func adminPanelButtons() [][]bus.Button {
	return [][]bus.Button{
		{btn("🔧 Manage Sellers", "admin_manage_sellers"), btn("🛍 Manage Products", "admin_manage_products")},
		{btn("📨 Broadcast", "admin_broadcast"), btn("📊 Global Statistics", "admin_global_stats")},
		{btn("🧵 Monitor Sessions", "admin_monitor_sessions"), btn("📝 Logs", "admin_logs")},
		{btn("📤 Export Data", "admin_export"), btn("🚨 Emergency Tools", "admin_emergency")},
	}
}

// productPicker builds a one-product-per-row selection keyboard with the
// given callback prefix, plus a cancel row.
func productPicker(products []registry.Product, prefix, cancelData string) [][]bus.Button {
	var rows [][]bus.Button
	for _, p := range products {
		rows = append(rows, []bus.Button{btn(p.Name, prefix+p.Name)})
	}
	rows = append(rows, []bus.Button{btn("« Cancel", cancelData)})
	return rows
}

// globalStatsText summarizes system-wide activity for admins.
func globalStatsText(name string, counts broker.Counts, log []broker.ChatLogRecord, rankings []sellerRank) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *GLOBAL STATISTICS*\n\n%s\n👤 *Admin:* %s\n\n%s\n📈 *System Overview:*\n\n", panelDivider, name, panelDivider)
	fmt.Fprintf(&b, "👥 *Total Users:* %d\n🔄 *Active Sessions:* %d\n⏳ *Pending Requests:* %d\n✅ *Closed Chats:* %d\n\n", counts.Users, counts.ActiveSessions, counts.Pending, counts.CompletedChats)

	fmt.Fprintf(&b, "%s\n📦 *Product-wise Requests:*\n\n", panelDivider)
	perProduct := map[string]int{}
	var order []string
	for _, rec := range log {
		if perProduct[rec.Product] == 0 {
			order = append(order, rec.Product)
		}
		perProduct[rec.Product]++
	}
	if len(order) == 0 {
		b.WriteString("  • No requests yet\n")
	} else {
		for _, product := range order {
			fmt.Fprintf(&b, "  🎯 %s: *%d*\n", product, perProduct[product])
		}
	}

	fmt.Fprintf(&b, "\n%s\n🏆 *Top 5 Sellers:*\n\n", panelDivider)
	if len(rankings) == 0 {
		b.WriteString("  • No seller data yet\n")
	} else {
		for i, r := range rankings {
			fmt.Fprintf(&b, "  %d. Seller `%d`: *%d* chats\n", i+1, r.SellerID, r.Completed)
		}
	}
	return b.String()
}

type sellerRank struct {
	SellerID  int64
	Completed int
}

// sessionMonitor renders all live sessions with per-session force-stop
// buttons.
func sessionMonitor(name string, sessions []broker.Session) (string, [][]bus.Button) {
	if len(sessions) == 0 {
		return fmt.Sprintf(
			"❌ *NO ACTIVE SESSIONS*\n\n%s\n👤 *Admin:* %s\n\n%s\nThere are currently no active conversations.",
			panelDivider, name, panelDivider), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🧵 *ACTIVE SESSIONS MONITOR*\n\n%s\n👤 *Admin:* %s\n\n%s\n🔄 *Live Conversations:*\n\n", panelDivider, name, panelDivider)
	var rows [][]bus.Button
	for _, s := range sessions {
		duration := time.Since(s.StartedAt).Truncate(time.Minute)
		fmt.Fprintf(&b, "👤 *User:* `%d`\n💼 *Seller:* `%d`\n📦 *Product:* %s\n⏱️ *Duration:* %d min\n%s\n",
			s.BuyerID, s.SellerID, s.Product, int(duration.Minutes()), panelDivider)
		rows = append(rows, []bus.Button{
			btn(fmt.Sprintf("🛑 Force Stop User %d", s.BuyerID), fmt.Sprintf("force_stop_%d", s.BuyerID)),
		})
	}
	rows = append(rows, []bus.Button{btn("« Back", "admin_back")})
	return b.String(), rows
}

// chatLogsText shows the ten most recent chat records.
func chatLogsText(log []broker.ChatLogRecord) string {
	if len(log) == 0 {
		return "❌ No chat logs available."
	}
	if len(log) > 10 {
		log = log[len(log)-10:]
	}
	var b strings.Builder
	b.WriteString("📜 Recent Chat Logs (Last 10):\n\n")
	for _, rec := range log {
		end := "Ongoing"
		if !rec.EndedAt.IsZero() {
			end = rec.EndedAt.Format("2006-01-02 15:04")
		}
		forced := ""
		if rec.Forced {
			forced = " (force-stopped)"
		}
		fmt.Fprintf(&b, "👤 User: %d\n🧑‍💼 Seller: %d\n📦 Product: %s\n⏳ Start: %s\n🏁 End: %s%s\n--------------------\n",
			rec.BuyerID, rec.SellerID, rec.Product,
			rec.StartedAt.Format("2006-01-02 15:04"), end, forced)
	}
	return b.String()
}

// sellerPerformanceText lists per-seller totals for admins.
func sellerPerformanceText(sellerIDs []int64, statsFor func(int64) broker.SellerStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *SELLER PERFORMANCE*\n\n%s\n\n", panelDivider)
	for _, id := range sellerIDs {
		stats := statsFor(id)
		fmt.Fprintf(&b, "🧑‍💼 *Seller:* `%d`\n  📈 *Total Served:* %d\n  ✅ *Completed:* %d\n%s\n\n",
			id, stats.TotalServed, stats.ChatsCompleted, panelDivider)
	}
	return b.String()
}

// emergencyPanel shows the buy toggle state and block tools.
func emergencyPanel(buyEnabled bool) (string, [][]bus.Button) {
	status := "🔴 *DISABLED*"
	if buyEnabled {
		status = "🟢 *ENABLED*"
	}
	text := fmt.Sprintf(
		"🚨 *EMERGENCY CONTROL PANEL*\n\n%s\n🔘 *Buy Button Status:* %s\n\n%s\n⚡ Use these tools to manage emergency situations:",
		panelDivider, status, panelDivider)
	return text, [][]bus.Button{
		{btn("🔴 Disable Buy", "emergency_disable_buy"), btn("🟢 Enable Buy", "emergency_enable_buy")},
		{btn("🚫 Block User", "emergency_block_user"), btn("✅ Unblock User", "emergency_unblock_user")},
		{btn("« Back", "admin_back")},
	}
}

// productsOverview lists all products with their assigned sellers.
func productsOverview(name string, products []registry.Product) string {
	if len(products) == 0 {
		return fmt.Sprintf(
			"❌ *NO PRODUCTS REGISTERED*\n\n%s\n👤 *Admin:* %s\n\n%s\nNo products have been registered yet.",
			panelDivider, name, panelDivider)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📦 *ALL PRODUCTS*\n\n%s\n👤 *Admin:* %s\n\n%s\n🛍️ *Registered Products:*\n\n", panelDivider, name, panelDivider)
	for _, p := range products {
		sellers := "None"
		if len(p.Sellers) > 0 {
			parts := make([]string, 0, len(p.Sellers))
			for _, id := range p.Sellers {
				parts = append(parts, fmt.Sprintf("`%d`", id))
			}
			sellers = strings.Join(parts, ", ")
		}
		fmt.Fprintf(&b, "📦 *%s*\n  👥 Sellers: %s\n\n", p.Name, sellers)
	}
	return b.String()
}
