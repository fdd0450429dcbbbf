package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/quantumpanel/keybot/internal/bus"
)

func (c *Channel) openAdminPanel(ctx context.Context, user *telego.User) {
	name, username := displayName(user)

	if !c.registry.IsAdmin(user.ID) {
		c.send(ctx, user.ID, fmt.Sprintf(
			"❌ *ACCESS DENIED*\n\nYou don't have admin privileges.\n\n👤 %s (%s)",
			name, username), nil)
		return
	}

	text, buttons := adminPanel(user.ID, name, username)
	c.send(ctx, user.ID, text, buttons)
}

// handleAdminCallback dispatches the admin menu tree. Every branch
// re-checks admin capability; buttons outlive role changes.
func (c *Channel) handleAdminCallback(ctx context.Context, user telego.User, data string) {
	if !c.registry.IsAdmin(user.ID) {
		slog.Debug("non-admin pressed admin button", "user_id", user.ID, "data", data)
		return
	}

	switch {
	case data == "open_admin_panel" || data == "admin_back":
		c.openAdminPanel(ctx, &user)

	case data == "admin_manage_sellers":
		c.send(ctx, user.ID, fmt.Sprintf(
			"👥 *SELLER MANAGEMENT*\n\n%s\nManage which sellers handle each product.",
			panelDivider), [][]bus.Button{
			{btn("➕ Add Seller to Product", "admin_select_product_add_seller")},
			{btn("➖ Remove Seller from Product", "admin_select_product_remove_seller")},
			{btn("👁 View Product Sellers", "admin_select_product_view_sellers")},
			{btn("🔙 Back", "admin_back")},
		})
	case data == "admin_select_product_add_seller":
		c.sendProductPicker(ctx, user.ID, "Select a product to add a seller to:", "addseller_to_")
	case data == "admin_select_product_remove_seller":
		c.sendProductPicker(ctx, user.ID, "Select a product to remove a seller from:", "rmseller_from_")
	case data == "admin_select_product_view_sellers":
		c.sendProductPicker(ctx, user.ID, "Select a product to view its sellers:", "viewsellers_of_")
	case strings.HasPrefix(data, "addseller_to_"):
		c.beginPrompt(ctx, user.ID,
			prompt{kind: promptAddSellerID, product: strings.TrimPrefix(data, "addseller_to_")},
			"➕ *Add Seller*\n\nSend the Telegram user ID of the seller to add.\n\nUse /cancel to abort.")
	case strings.HasPrefix(data, "rmseller_from_"):
		c.beginPrompt(ctx, user.ID,
			prompt{kind: promptRemoveSellerID, product: strings.TrimPrefix(data, "rmseller_from_")},
			"➖ *Remove Seller*\n\nSend the Telegram user ID of the seller to remove.\n\nUse /cancel to abort.")
	case strings.HasPrefix(data, "viewsellers_of_"):
		c.showProductSellers(ctx, user.ID, strings.TrimPrefix(data, "viewsellers_of_"))

	case data == "admin_manage_products":
		c.send(ctx, user.ID, fmt.Sprintf(
			"📦 *PRODUCT MANAGEMENT*\n\n%s\nAdd, remove, and assign products.",
			panelDivider), [][]bus.Button{
			{btn("➕ Add Product", "admin_add_product")},
			{btn("➖ Remove Product", "admin_remove_product")},
			{btn("👥 Assign Sellers", "admin_assign_sellers")},
			{btn("➖ Remove Seller from Product", "admin_remove_seller_product")},
			{btn("👁 View Products", "admin_view_products")},
			{btn("🔙 Back", "admin_back")},
		})
	case data == "admin_add_product":
		c.beginPrompt(ctx, user.ID, prompt{kind: promptProductName},
			"➕ *Add Product — Step 1 of 4*\n\nSend the product name.\n\nUse /cancel to abort.")
	case data == "admin_remove_product":
		c.sendProductPicker(ctx, user.ID, "Select a product to remove:", "remove_product_")
	case strings.HasPrefix(data, "remove_product_"):
		c.removeProduct(ctx, user.ID, strings.TrimPrefix(data, "remove_product_"))
	case data == "admin_assign_sellers":
		c.sendProductPicker(ctx, user.ID, "Select a product to assign sellers to:", "assign_to_")
	case strings.HasPrefix(data, "assign_to_"):
		c.beginPrompt(ctx, user.ID,
			prompt{kind: promptAssignSellers, product: strings.TrimPrefix(data, "assign_to_")},
			"👥 *Assign Sellers*\n\nSend the seller IDs, comma-separated (e.g. `123, 456`).\n\nUse /cancel to abort.")
	case data == "admin_remove_seller_product":
		c.sendProductPicker(ctx, user.ID, "Select a product to remove a seller from:", "rmseller_from_")
	case data == "admin_view_products":
		name, _ := displayName(&user)
		c.send(ctx, user.ID, productsOverview(name, c.registry.Products()), nil)

	case data == "admin_broadcast":
		c.send(ctx, user.ID, fmt.Sprintf(
			"📢 *BROADCAST MESSAGE*\n\n%s\nWho should receive it?",
			panelDivider), [][]bus.Button{
			{btn("👤 Users Only", "broadcast_users")},
			{btn("💼 Sellers Only", "broadcast_sellers")},
			{btn("🌍 Everyone", "broadcast_everyone")},
			{btn("🔙 Back", "admin_back")},
		})
	case strings.HasPrefix(data, "broadcast_"):
		c.beginPrompt(ctx, user.ID,
			prompt{kind: promptBroadcast, audience: strings.TrimPrefix(data, "broadcast_")},
			"📢 *Broadcast*\n\nSend the message to broadcast (text or a photo with caption).\n\nUse /cancel to abort.")

	case data == "admin_global_stats":
		c.showGlobalStats(ctx, user)
	case data == "admin_monitor_sessions":
		name, _ := displayName(&user)
		text, buttons := sessionMonitor(name, c.broker.Store().Sessions())
		c.send(ctx, user.ID, text, buttons)
	case strings.HasPrefix(data, "force_stop_"):
		c.forceStop(ctx, user.ID, strings.TrimPrefix(data, "force_stop_"))

	case data == "admin_logs":
		c.send(ctx, user.ID, fmt.Sprintf(
			"📋 *LOGS & REPORTS*\n\n%s",
			panelDivider), [][]bus.Button{
			{btn("💬 Chat Logs", "view_chat_logs")},
			{btn("📈 Seller Performance", "view_seller_performance")},
			{btn("🔙 Back", "admin_back")},
		})
	case data == "view_chat_logs":
		c.send(ctx, user.ID, chatLogsText(c.broker.Store().ChatLog()), nil)
	case data == "view_seller_performance":
		c.send(ctx, user.ID,
			sellerPerformanceText(c.registry.Sellers(), c.broker.Store().StatsFor), nil)

	case data == "admin_export":
		c.send(ctx, user.ID, fmt.Sprintf(
			"📤 *EXPORT DATA*\n\n%s\nPick a dataset to export as CSV.",
			panelDivider), [][]bus.Button{
			{btn("👤 Users", "export_users")},
			{btn("💼 Sellers", "export_sellers")},
			{btn("📦 Products", "export_products")},
			{btn("💬 Chats", "export_chats")},
			{btn("🔙 Back", "admin_back")},
		})
	case strings.HasPrefix(data, "export_"):
		c.sendExport(ctx, user.ID, strings.TrimPrefix(data, "export_"))

	case data == "admin_emergency":
		text, buttons := emergencyPanel(c.registry.BuyEnabled())
		c.send(ctx, user.ID, text, buttons)
	case data == "emergency_disable_buy":
		c.registry.SetBuyEnabled(false)
		slog.Warn("buying disabled", "admin_id", user.ID)
		c.send(ctx, user.ID, "🚫 *Buying has been disabled.*\n\nUsers can no longer request connections.", nil)
	case data == "emergency_enable_buy":
		c.registry.SetBuyEnabled(true)
		slog.Info("buying enabled", "admin_id", user.ID)
		c.send(ctx, user.ID, "✅ *Buying has been re-enabled.*", nil)
	case data == "emergency_block_user":
		c.beginPrompt(ctx, user.ID, prompt{kind: promptBlockID},
			"⛔ *Block User*\n\nSend the Telegram user ID to block.\n\nUse /cancel to abort.")
	case data == "emergency_unblock_user":
		c.beginPrompt(ctx, user.ID, prompt{kind: promptUnblockID},
			"✅ *Unblock User*\n\nSend the Telegram user ID to unblock.\n\nUse /cancel to abort.")

	default:
		slog.Debug("unhandled callback", "user_id", user.ID, "data", data)
	}
}

func (c *Channel) sendProductPicker(ctx context.Context, adminID int64, title, prefix string) {
	products := c.registry.Products()
	if len(products) == 0 {
		c.send(ctx, adminID, "❌ No products configured yet.", nil)
		return
	}
	c.send(ctx, adminID, fmt.Sprintf("📦 *Select Product*\n\n%s", title),
		productPicker(products, prefix, "admin_back"))
}

func (c *Channel) showProductSellers(ctx context.Context, adminID int64, product string) {
	sellers, ok := c.registry.SellersFor(product)
	if !ok {
		c.send(ctx, adminID, fmt.Sprintf("❌ Product *%s* no longer exists.", product), nil)
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 *Sellers for %s*\n\n%s\n", product, panelDivider)
	if len(sellers) == 0 {
		sb.WriteString("No sellers assigned.")
	}
	for _, id := range sellers {
		stats := c.broker.Store().StatsFor(id)
		fmt.Fprintf(&sb, "  • `%d` — %d completed\n", id, stats.ChatsCompleted)
	}
	c.send(ctx, adminID, sb.String(), nil)
}

func (c *Channel) removeProduct(ctx context.Context, adminID int64, product string) {
	if !c.registry.RemoveProduct(product) {
		c.send(ctx, adminID, fmt.Sprintf("❌ Product *%s* no longer exists.", product), nil)
		return
	}
	slog.Info("product removed", "admin_id", adminID, "product", product)
	c.send(ctx, adminID, fmt.Sprintf("✅ Product *%s* removed.", product), nil)
}

func (c *Channel) showGlobalStats(ctx context.Context, user telego.User) {
	name, _ := displayName(&user)
	counts := c.broker.Store().Snapshot()
	log := c.broker.Store().ChatLog()
	c.send(ctx, user.ID, globalStatsText(name, counts, log, c.topSellers(5)), nil)
}

func (c *Channel) forceStop(ctx context.Context, adminID int64, buyerArg string) {
	buyerID, err := strconv.ParseInt(buyerArg, 10, 64)
	if err != nil {
		c.send(ctx, adminID, "❌ Invalid session reference.", nil)
		return
	}
	ended, err := c.broker.ForceStop(ctx, adminID, buyerID)
	if err != nil {
		c.send(ctx, adminID, "❌ That session is no longer active.", nil)
		return
	}
	c.send(ctx, adminID, fmt.Sprintf(
		"🛑 *SESSION FORCE-STOPPED*\n\n%s\n👤 *Customer:* `%d`\n💼 *Seller:* `%d`\n📦 *Product:* %s",
		panelDivider, ended.BuyerID, ended.SellerID, ended.Product), nil)
}

// sendExport writes the requested dataset to a CSV file, ships it as a
// document, and removes the temp file afterwards.
func (c *Channel) sendExport(ctx context.Context, adminID int64, dataset string) {
	var (
		path string
		err  error
	)
	switch dataset {
	case "users":
		path, err = c.exporter.Users()
	case "sellers":
		path, err = c.exporter.Sellers()
	case "products":
		path, err = c.exporter.Products()
	case "chats":
		path, err = c.exporter.Chats()
	default:
		return
	}
	if err != nil {
		slog.Error("export failed", "dataset", dataset, "error", err)
		c.send(ctx, adminID, "❌ Export failed. Check the logs.", nil)
		return
	}
	defer os.Remove(path)

	err = c.Notify(ctx, bus.Outbound{
		RecipientID:  adminID,
		Text:         fmt.Sprintf("📤 Export of %s", dataset),
		DocumentPath: path,
	})
	if err != nil {
		slog.Error("export delivery failed", "dataset", dataset, "error", err)
		c.send(ctx, adminID, "❌ Could not deliver the export file.", nil)
	}
}
