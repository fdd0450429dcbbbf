package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/quantumpanel/keybot/internal/broker"
	"github.com/quantumpanel/keybot/internal/bus"
)

// handleCallbackQuery dispatches an inline-button press. The callback data
// keys mirror the menus built in panels.go.
func (c *Channel) handleCallbackQuery(ctx context.Context, query *telego.CallbackQuery) {
	userID := query.From.ID
	if !c.flood.Allow(userID) {
		c.answer(ctx, query.ID, "")
		return
	}

	data := query.Data
	slog.Debug("telegram callback received", "user_id", userID, "data", data)

	// Accept answers with an alert popup; everything else gets a silent ack.
	if strings.HasPrefix(data, "accept_") {
		c.handleAccept(ctx, query)
		return
	}
	c.answer(ctx, query.ID, "")

	switch {
	// Buyer flow.
	case data == "buy_keys":
		c.handleBuyKeys(ctx, query.From)
	case strings.HasPrefix(data, "product_"):
		c.handleProductSelection(ctx, query.From, strings.TrimPrefix(data, "product_"))
	case strings.HasPrefix(data, "connect_"):
		c.handleConnect(ctx, query.From, strings.TrimPrefix(data, "connect_"))

	// Seller panel.
	case data == "open_seller_panel":
		c.openSellerPanel(ctx, &query.From)
	case data == "seller_stats":
		c.handleSellerStats(ctx, query.From)
	case data == "seller_products":
		c.handleSellerProducts(ctx, query.From)
	case data == "seller_active_chat":
		c.handleSellerActiveChat(ctx, query.From)
	case strings.HasPrefix(data, "seller_end_chat_"):
		c.handleSellerEndChat(ctx, query.From, strings.TrimPrefix(data, "seller_end_chat_"))
	case data == "seller_toggle_alerts":
		c.handleSellerToggleAlerts(ctx, query.From)
	case data == "seller_help":
		c.handleSellerHelp(ctx, query.From)

	// Admin surface.
	default:
		c.handleAdminCallback(ctx, query.From, data)
	}
}

func (c *Channel) answer(ctx context.Context, queryID, text string) {
	params := tu.CallbackQuery(queryID)
	if text != "" {
		params = params.WithText(text).WithShowAlert()
	}
	if err := c.bot.AnswerCallbackQuery(ctx, params); err != nil {
		slog.Debug("answer callback failed", "error", err)
	}
}

func (c *Channel) handleBuyKeys(ctx context.Context, user telego.User) {
	name, username := displayName(&user)

	// Pre-checks mirror the request preconditions so the buyer learns the
	// outcome before picking a product.
	switch {
	case c.registry.IsBlocked(user.ID):
		c.send(ctx, user.ID, broker.DescribeRequestError(broker.ErrBlocked), nil)
		return
	case !c.registry.BuyEnabled():
		c.send(ctx, user.ID, broker.DescribeRequestError(broker.ErrBuyDisabled), nil)
		return
	}
	if _, ok := c.broker.Store().SessionOf(user.ID); ok {
		c.send(ctx, user.ID, broker.DescribeRequestError(broker.ErrAlreadyConnected), nil)
		return
	}
	if _, ok := c.broker.Store().PendingOf(user.ID); ok {
		c.send(ctx, user.ID, broker.DescribeRequestError(broker.ErrRequestPending), nil)
		return
	}

	products := c.registry.Products()
	if len(products) == 0 {
		c.send(ctx, user.ID, "❌ No products are available right now.", nil)
		return
	}
	text, buttons := productMenu(name, username, products)
	c.send(ctx, user.ID, text, buttons)
}

func (c *Channel) handleProductSelection(ctx context.Context, user telego.User, productName string) {
	name, username := displayName(&user)

	p, ok := c.registry.Product(productName)
	if !ok {
		c.send(ctx, user.ID, fmt.Sprintf("❌ *Invalid Product*\n\n👤 %s (%s)", name, username), nil)
		return
	}
	if len(p.Sellers) == 0 {
		c.send(ctx, user.ID, broker.DescribeRequestError(broker.ErrProductUnavailable), nil)
		return
	}

	text, buttons := productDetails(p, name, username)
	err := c.Notify(ctx, bus.Outbound{
		RecipientID: user.ID,
		Text:        text,
		ImagePath:   p.Image,
		Buttons:     buttons,
		Markdown:    true,
	})
	if err != nil {
		slog.Warn("product details failed", "user_id", user.ID, "error", err)
	}
}

func (c *Channel) handleConnect(ctx context.Context, user telego.User, productName string) {
	name, username := displayName(&user)

	report, err := c.broker.RequestConnection(ctx, user.ID, productName)
	if err != nil {
		c.send(ctx, user.ID, broker.DescribeRequestError(err), nil)
		return
	}
	slog.Info("request fan-out complete",
		"buyer_id", user.ID, "product", productName, "sent", report.Sent, "failed", report.Failed)

	c.send(ctx, user.ID, fmt.Sprintf(
		"⏳ *Connection Request Sent!*\n\n📦 Product: *%s*\n👤 Customer: %s\n🆔 Username: %s\n\n%s\n🔔 Your request has been sent to authorized sellers.\n⏰ Please wait for someone to accept...",
		productName, name, username, panelDivider), nil)
}

// handleAccept resolves an accept button press. Errors surface as alert
// popups on the pressed button, matching the request-card UX.
func (c *Channel) handleAccept(ctx context.Context, query *telego.CallbackQuery) {
	parts := strings.SplitN(query.Data, "_", 3)
	if len(parts) != 3 {
		c.answer(ctx, query.ID, "❌ Invalid request.")
		return
	}
	buyerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		c.answer(ctx, query.ID, "❌ Invalid request.")
		return
	}
	product := parts[2]

	_, err = c.broker.AcceptConnection(ctx, query.From.ID, buyerID, product)
	switch {
	case err == nil:
		c.answer(ctx, query.ID, "✅ Request accepted!")
	case errors.Is(err, broker.ErrNotAuthorized):
		c.answer(ctx, query.ID, "❌ You are not allowed to accept requests.")
	case errors.Is(err, broker.ErrAlreadyClaimed):
		c.answer(ctx, query.ID, "❌ This request is no longer active.")
	case errors.Is(err, broker.ErrAcceptorBusy):
		c.answer(ctx, query.ID, "❌ End your current chat before accepting a new one.")
	default:
		c.answer(ctx, query.ID, "❌ Accept failed.")
		slog.Warn("accept failed", "acceptor", query.From.ID, "buyer", buyerID, "error", err)
	}
}

func (c *Channel) openSellerPanel(ctx context.Context, user *telego.User) {
	name, username := displayName(user)

	if _, ok := c.broker.Store().BuyerOf(user.ID); ok {
		c.send(ctx, user.ID, fmt.Sprintf(
			"⚠️ *Active Session Detected*\n\n👤 %s (%s)\n\nPlease use /stop to end the current conversation before using other commands.",
			name, username), nil)
		return
	}
	if !c.registry.IsSeller(user.ID) {
		c.send(ctx, user.ID, fmt.Sprintf(
			"❌ *ACCESS DENIED*\n\nYou don't have access to the seller panel.\n\n👤 %s (%s)",
			name, username), nil)
		return
	}

	text, buttons := sellerPanel(user.ID, name, username)
	c.send(ctx, user.ID, text, buttons)
}

func (c *Channel) handleSellerStats(ctx context.Context, user telego.User) {
	if !c.registry.IsSeller(user.ID) {
		return
	}
	name, _ := displayName(&user)
	stats := c.broker.Store().StatsFor(user.ID)
	c.send(ctx, user.ID, sellerStatsText(user.ID, name, stats), nil)
}

func (c *Channel) handleSellerProducts(ctx context.Context, user telego.User) {
	if !c.registry.IsSeller(user.ID) {
		return
	}
	name, _ := displayName(&user)
	products := c.registry.ProductsFor(user.ID)
	c.send(ctx, user.ID, sellerProductsText(user.ID, name, products), nil)
}

func (c *Channel) handleSellerActiveChat(ctx context.Context, user telego.User) {
	name, _ := displayName(&user)

	buyerID, ok := c.broker.Store().BuyerOf(user.ID)
	if !ok {
		c.send(ctx, user.ID, fmt.Sprintf(
			"❌ *NO ACTIVE CHAT*\n\n%s\n💼 *Seller:* %s\n🔑 *Seller ID:* `%d`\n\n%s\nYou don't have any active conversations.",
			panelDivider, name, user.ID, panelDivider), nil)
		return
	}
	sess, _ := c.broker.Store().SessionOf(buyerID)

	c.send(ctx, user.ID, fmt.Sprintf(
		"🔄 *ACTIVE CHAT SESSION*\n\n%s\n💼 *Seller:* %s\n🔑 *Seller ID:* `%d`\n\n%s\n👤 *Customer ID:* `%d`\n📦 *Product:* %s\n\n%s\n💬 Chat is currently active!",
		panelDivider, name, user.ID, panelDivider, buyerID, sess.Product, panelDivider),
		[][]bus.Button{{btn("❌ End Chat", fmt.Sprintf("seller_end_chat_%d", buyerID))}})
}

func (c *Channel) handleSellerEndChat(ctx context.Context, user telego.User, buyerArg string) {
	buyerID, err := strconv.ParseInt(buyerArg, 10, 64)
	if err != nil {
		c.send(ctx, user.ID, "❌ *INVALID REQUEST*\n\nSomething went wrong. Please try again.", nil)
		return
	}

	// The button may be stale: the session must still belong to this seller
	// and this buyer.
	if current, ok := c.broker.Store().BuyerOf(user.ID); !ok || current != buyerID {
		c.send(ctx, user.ID, "❌ *CHAT NOT ACTIVE*\n\nThis chat is no longer active.", nil)
		return
	}

	ended, err := c.broker.EndSession(ctx, user.ID)
	if err != nil {
		c.send(ctx, user.ID, "❌ *CHAT NOT ACTIVE*\n\nThis chat is no longer active.", nil)
		return
	}

	name, _ := displayName(&user)
	c.send(ctx, user.ID, fmt.Sprintf(
		"🛑 *CONVERSATION STOPPED*\n\n%s\n💼 *Seller:* %s\n🔑 *Seller ID:* `%d`\n\n%s\n📦 *Product:* %s\n👤 *Customer ID:* `%d`\n\n✅ Chat ended successfully!",
		panelDivider, name, user.ID, panelDivider, ended.Product, ended.BuyerID), nil)
}

func (c *Channel) handleSellerToggleAlerts(ctx context.Context, user telego.User) {
	if !c.registry.IsSeller(user.ID) {
		return
	}
	name, _ := displayName(&user)

	enabled := c.broker.Store().ToggleAlerts(user.ID)
	status := "🔕 *Disabled*"
	if enabled {
		status = "✅ *Enabled*"
	}
	c.send(ctx, user.ID, fmt.Sprintf(
		"🔔 *ALERT SETTINGS UPDATED*\n\n%s\n💼 *Seller:* %s\n🔑 *Seller ID:* `%d`\n\n%s\n📢 *Alerts Status:* %s",
		panelDivider, name, user.ID, panelDivider, status), nil)
}

func (c *Channel) handleSellerHelp(ctx context.Context, user telego.User) {
	name, _ := displayName(&user)
	c.send(ctx, user.ID, fmt.Sprintf(
		"ℹ️ *SELLER HELP & COMMANDS*\n\n%s\n💼 *Seller:* %s\n🔑 *Seller ID:* `%d`\n\n%s\n📱 *Available Commands:*\n\n  • `/seller` - Open seller panel\n  • `/stop` - End active conversation\n\n%s\n✨ *What You Can Do:*\n\n  ✅ Accept connection requests\n  💬 Chat with users\n  📊 View your statistics\n  📦 See products you sell\n  🔔 Toggle request alerts",
		panelDivider, name, user.ID, panelDivider, panelDivider), nil)
}

// topSellers ranks sellers (admins included) by completed chats.
func (c *Channel) topSellers(limit int) []sellerRank {
	ids := map[int64]struct{}{}
	for _, id := range c.registry.Sellers() {
		ids[id] = struct{}{}
	}
	for _, id := range c.registry.Admins() {
		ids[id] = struct{}{}
	}
	ranks := make([]sellerRank, 0, len(ids))
	for id := range ids {
		ranks = append(ranks, sellerRank{
			SellerID:  id,
			Completed: c.broker.Store().StatsFor(id).ChatsCompleted,
		})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Completed != ranks[j].Completed {
			return ranks[i].Completed > ranks[j].Completed
		}
		return ranks[i].SellerID < ranks[j].SellerID
	})
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks
}
