package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/quantumpanel/keybot/internal/bus"
	"github.com/quantumpanel/keybot/internal/channels"
)

// handleMessage processes an incoming Telegram message: commands first, then
// pending admin prompts, then session routing via the bus.
func (c *Channel) handleMessage(ctx context.Context, message *telego.Message) {
	user := message.From
	if user == nil {
		return
	}
	// Private chats only. The bot has no group features.
	if message.Chat.Type != telego.ChatTypePrivate {
		return
	}
	if !c.flood.Allow(user.ID) {
		slog.Debug("telegram message dropped by flood limiter", "user_id", user.ID)
		return
	}

	slog.Debug("telegram message received",
		"user_id", user.ID,
		"username", user.Username,
		"text_preview", channels.Truncate(message.Text, 60),
	)

	if strings.HasPrefix(message.Text, "/") {
		c.handleCommand(ctx, message)
		return
	}

	// A pending admin prompt consumes the next message (text or photo).
	if c.consumePrompt(ctx, message) {
		return
	}

	if message.Text == "" {
		return
	}

	name, username := displayName(user)
	c.HandleText(user.ID, username, name, message.Text)
}

func (c *Channel) handleCommand(ctx context.Context, message *telego.Message) {
	user := message.From
	command := strings.ToLower(strings.Fields(message.Text)[0])
	if idx := strings.Index(command, "@"); idx > 0 {
		command = command[:idx]
	}

	switch command {
	case "/start":
		c.handleStart(ctx, user)
	case "/stop":
		c.handleStop(ctx, user)
	case "/seller":
		c.openSellerPanel(ctx, user)
	case "/admin":
		c.openAdminPanel(ctx, user)
	case "/help":
		c.handleHelp(ctx, user)
	case "/cancel":
		c.handleCancel(ctx, user)
	default:
		c.send(ctx, user.ID, "Unknown command. Use /help to see what I can do.", nil)
	}
}

// handleStart registers the user and shows the role-appropriate main menu
// with the welcome image.
func (c *Channel) handleStart(ctx context.Context, user *telego.User) {
	name, username := displayName(user)
	c.broker.Store().AddUser(user.ID)

	if c.inSession(user.ID) {
		c.send(ctx, user.ID, fmt.Sprintf(
			"⚠️ *Active Session Detected*\n\n👤 %s (%s)\nPlease use /stop to end the current conversation before using other commands.",
			name, username), nil)
		return
	}
	if c.registry.IsBlocked(user.ID) {
		c.send(ctx, user.ID, fmt.Sprintf(
			"⛔ *ACCESS DENIED*\n\nYou have been blocked from using this bot.\n\n👤 %s (%s)",
			name, username), nil)
		return
	}

	text, buttons := welcomeMessage(user.ID, name, username, c.registry)
	err := c.Notify(ctx, bus.Outbound{
		RecipientID: user.ID,
		Text:        text,
		ImagePath:   c.startImage,
		Buttons:     buttons,
		Markdown:    true,
	})
	if err != nil {
		slog.Warn("welcome message failed", "user_id", user.ID, "error", err)
	}
}

// handleStop ends the sender's active session, whichever side they are on.
func (c *Channel) handleStop(ctx context.Context, user *telego.User) {
	name, username := displayName(user)

	ended, err := c.broker.EndSession(ctx, user.ID)
	if err != nil {
		c.send(ctx, user.ID, fmt.Sprintf(
			"❌ *No Active Session*\n\nYou don't have an active conversation to stop.\n\n👤 %s (%s)",
			name, username), nil)
		return
	}

	counterpart := ended.SellerID
	label := "Seller ID"
	if user.ID == ended.SellerID {
		counterpart = ended.BuyerID
		label = "Customer ID"
	}
	c.send(ctx, user.ID, fmt.Sprintf(
		"🛑 *CONVERSATION STOPPED*\n\n%s\n📦 *Product:* %s\n\n👤 *%s:* `%d`\n\n%s\n✅ Session ended successfully!",
		panelDivider, ended.Product, label, counterpart, panelDivider), nil)
}

func (c *Channel) handleHelp(ctx context.Context, user *telego.User) {
	c.send(ctx, user.ID, helpText(user.ID, c.registry), nil)
}

// handleCancel aborts a pending multi-step admin operation.
func (c *Channel) handleCancel(ctx context.Context, user *telego.User) {
	if _, had := c.prompts.LoadAndDelete(user.ID); had {
		c.send(ctx, user.ID, "❌ Operation cancelled.", nil)
		return
	}
	c.send(ctx, user.ID, "Nothing to cancel.", nil)
}

func (c *Channel) inSession(id int64) bool {
	if _, ok := c.broker.Store().SessionOf(id); ok {
		return true
	}
	if _, ok := c.broker.Store().BuyerOf(id); ok {
		return true
	}
	return false
}
