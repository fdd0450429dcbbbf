// Package config defines the bot configuration, loads it from a JSON5 file
// with environment overrides, and watches it for changes.
package config

import (
	"fmt"
	"sync"
)

// Config is the root configuration.
type Config struct {
	mu sync.RWMutex

	Telegram TelegramConfig `json:"telegram"`
	Roster   RosterConfig   `json:"roster"`
	Broker   BrokerConfig   `json:"broker"`
	Web      WebConfig      `json:"web"`
	Schedule ScheduleConfig `json:"schedule"`
	LogLevel string         `json:"log_level,omitempty"`
}

// TelegramConfig holds the bot transport settings.
type TelegramConfig struct {
	Token string `json:"token,omitempty"`
	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout int `json:"poll_timeout,omitempty"`
	// StartImage is the welcome image sent with /start: a URL, a local
	// path, or a Telegram file ID.
	StartImage string `json:"start_image,omitempty"`
}

// RosterConfig seeds the participant registry: who administers the bot, who
// sells, what they sell, and who is banned from buying.
type RosterConfig struct {
	Admins     []int64         `json:"admins"`
	Sellers    []int64         `json:"sellers,omitempty"`
	Products   []ProductConfig `json:"products"`
	Blocked    []int64         `json:"blocked,omitempty"`
	BuyEnabled *bool           `json:"buy_enabled,omitempty"`
}

// ProductConfig describes one sellable key product.
type ProductConfig struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	Sellers     []int64 `json:"sellers,omitempty"`
}

// BrokerConfig tunes session brokering.
type BrokerConfig struct {
	// SellersMayAccept lets assigned sellers claim requests themselves
	// instead of routing every accept through an admin.
	SellersMayAccept bool `json:"sellers_may_accept,omitempty"`
	// CreditForcedStops counts admin force-stopped chats toward seller
	// statistics.
	CreditForcedStops bool `json:"credit_forced_stops,omitempty"`
}

// WebConfig configures the keepalive HTTP server.
type WebConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host,omitempty"`
	Port    int    `json:"port,omitempty"`
}

// ScheduleConfig holds the cron expressions driving the stat resets.
type ScheduleConfig struct {
	DailyReset   string `json:"daily_reset,omitempty"`
	MonthlyReset string `json:"monthly_reset,omitempty"`
}

// Validate rejects configs the bot cannot run with.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required (file or %s)", envToken)
	}
	if len(c.Roster.Admins) == 0 {
		return fmt.Errorf("roster.admins must list at least one admin ID")
	}
	seen := make(map[string]struct{}, len(c.Roster.Products))
	for _, p := range c.Roster.Products {
		if p.Name == "" {
			return fmt.Errorf("roster.products contains a product without a name")
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("roster.products lists %q twice", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// BuyEnabledOrDefault resolves the optional toggle, defaulting to on.
func (r RosterConfig) BuyEnabledOrDefault() bool {
	if r.BuyEnabled == nil {
		return true
	}
	return *r.BuyEnabled
}
