// Package telegram implements the Telegram transport using the Bot API with
// long polling. It renders the buyer, seller, and admin surfaces as inline
// keyboards, dispatches callbacks to the broker and registry, and forwards
// plain chat messages to the bus for session routing.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/quantumpanel/keybot/internal/broker"
	"github.com/quantumpanel/keybot/internal/bus"
	"github.com/quantumpanel/keybot/internal/channels"
	"github.com/quantumpanel/keybot/internal/config"
	"github.com/quantumpanel/keybot/internal/export"
	"github.com/quantumpanel/keybot/internal/registry"
)

// Channel connects to Telegram via the Bot API using long polling.
type Channel struct {
	*channels.BaseChannel
	bot        *telego.Bot
	config     config.TelegramConfig
	broker     *broker.Broker
	registry   *registry.Registry
	exporter   *export.Exporter
	flood      *channels.FloodLimiter
	startImage string
	prompts    sync.Map // adminID int64 → prompt
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates a new Telegram channel from config. The broker is attached
// separately because it needs the channel as its notifier.
func New(cfg config.TelegramConfig, msgBus *bus.MessageBus) (*Channel, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Channel{
		BaseChannel: channels.NewBaseChannel("telegram", msgBus),
		bot:         bot,
		config:      cfg,
		flood:       channels.NewFloodLimiter(),
	}, nil
}

// Attach wires the broker, registry and exporter after construction.
// startImage is the optional welcome image path.
func (c *Channel) Attach(b *broker.Broker, reg *registry.Registry, exp *export.Exporter, startImage string) {
	c.broker = b
	c.registry = reg
	c.exporter = exp
	c.startImage = startImage
}

// Start begins long polling for Telegram updates.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting telegram bot (polling mode)")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	timeout := c.config.PollTimeout
	if timeout <= 0 {
		timeout = 30
	}
	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout: timeout,
		AllowedUpdates: []string{
			"message",
			"callback_query",
		},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	c.SetRunning(true)
	slog.Info("telegram bot connected", "username", c.bot.Username())

	// Register bot menu commands with retry.
	go func() {
		for attempt := 1; attempt <= 3; attempt++ {
			if err := c.syncMenuCommands(pollCtx); err != nil {
				slog.Warn("failed to sync telegram menu commands", "error", err, "attempt", attempt)
				if attempt < 3 {
					select {
					case <-pollCtx.Done():
						return
					case <-time.After(time.Duration(attempt*5) * time.Second):
					}
				}
			} else {
				slog.Info("telegram menu commands synced")
				return
			}
		}
	}()

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed")
					return
				}
				switch {
				case update.Message != nil:
					c.handleMessage(pollCtx, update.Message)
				case update.CallbackQuery != nil:
					c.handleCallbackQuery(pollCtx, update.CallbackQuery)
				default:
					slog.Debug("telegram update skipped", "update_id", update.UpdateID)
				}
			}
		}
	}()

	return nil
}

// Stop shuts down the Telegram bot by cancelling the long polling context
// and waiting for the polling goroutine to exit.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping telegram bot")
	c.SetRunning(false)

	if c.pollCancel != nil {
		c.pollCancel()
	}

	// Wait for the polling goroutine to fully exit so that Telegram
	// releases the getUpdates lock before a new instance starts.
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
			slog.Info("telegram bot stopped")
		case <-time.After(10 * time.Second):
			slog.Warn("telegram polling goroutine did not exit within timeout")
		}
	}

	return nil
}

// Notify delivers an outbound message. Images and documents fall back to
// plain text when the file cannot be opened.
func (c *Channel) Notify(ctx context.Context, msg bus.Outbound) error {
	chatID := tu.ID(msg.RecipientID)
	markup := inlineKeyboard(msg.Buttons)

	if msg.DocumentPath != "" {
		f, err := os.Open(msg.DocumentPath)
		if err != nil {
			return fmt.Errorf("open document: %w", err)
		}
		defer f.Close()
		params := tu.Document(chatID, tu.File(f))
		if msg.Text != "" {
			params = params.WithCaption(msg.Text)
		}
		if _, err := c.bot.SendDocument(ctx, params); err != nil {
			return fmt.Errorf("send document: %w", err)
		}
		return nil
	}

	if msg.ImagePath != "" {
		if err := c.sendPhoto(ctx, msg, markup); err == nil {
			return nil
		} else {
			slog.Warn("photo send failed, falling back to text",
				"recipient", msg.RecipientID, "image", msg.ImagePath, "error", err)
		}
	}

	params := tu.Message(chatID, msg.Text)
	if msg.Markdown {
		params = params.WithParseMode(telego.ModeMarkdown)
	}
	if markup != nil {
		params = params.WithReplyMarkup(markup)
	}
	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// sendPhoto sends msg.ImagePath as a photo with msg.Text as caption. The
// path may be a URL, a local file, or a Telegram file ID (products added
// through the admin wizard store the uploaded photo's file ID).
func (c *Channel) sendPhoto(ctx context.Context, msg bus.Outbound, markup *telego.InlineKeyboardMarkup) error {
	chatID := tu.ID(msg.RecipientID)

	var photo telego.InputFile
	if strings.HasPrefix(msg.ImagePath, "http://") || strings.HasPrefix(msg.ImagePath, "https://") {
		photo = tu.FileFromURL(msg.ImagePath)
	} else if f, err := os.Open(msg.ImagePath); err == nil {
		defer f.Close()
		photo = tu.File(f)
	} else if os.IsNotExist(err) {
		photo = tu.FileFromID(msg.ImagePath)
	} else {
		return fmt.Errorf("open image: %w", err)
	}

	params := tu.Photo(chatID, photo).WithCaption(msg.Text)
	if msg.Markdown {
		params = params.WithParseMode(telego.ModeMarkdown)
	}
	if markup != nil {
		params = params.WithReplyMarkup(markup)
	}
	if _, err := c.bot.SendPhoto(ctx, params); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

func (c *Channel) syncMenuCommands(ctx context.Context) error {
	return c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: "start", Description: "Open the main menu"},
			{Command: "stop", Description: "End the active conversation"},
			{Command: "seller", Description: "Open the seller panel"},
			{Command: "admin", Description: "Open the admin panel"},
			{Command: "help", Description: "Show help"},
			{Command: "cancel", Description: "Abort the current operation"},
		},
	})
}

// send is a convenience wrapper for Markdown panel messages.
func (c *Channel) send(ctx context.Context, recipientID int64, text string, buttons [][]bus.Button) {
	err := c.Notify(ctx, bus.Outbound{
		RecipientID: recipientID,
		Text:        text,
		Buttons:     buttons,
		Markdown:    true,
	})
	if err != nil {
		slog.Warn("telegram send failed", "recipient", recipientID, "error", err)
	}
}

// inlineKeyboard converts bus buttons into a Telegram inline keyboard.
func inlineKeyboard(rows [][]bus.Button) *telego.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := make([][]telego.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		line := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			line = append(line, tu.InlineKeyboardButton(b.Label).WithCallbackData(b.Data))
		}
		kb = append(kb, line)
	}
	return tu.InlineKeyboard(kb...)
}

// displayName formats a Telegram user for panel headers.
func displayName(user *telego.User) (name, username string) {
	name = user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	if user.Username != "" {
		username = "@" + user.Username
	} else {
		username = "No username"
	}
	return name, username
}
