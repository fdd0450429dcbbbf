package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"

	"github.com/quantumpanel/keybot/internal/registry"
)

const (
	envToken    = "KEYBOT_TELEGRAM_TOKEN"
	envAdmins   = "KEYBOT_ADMIN_IDS"
	envLogLevel = "KEYBOT_LOG_LEVEL"
	envWebHost  = "KEYBOT_HOST"
	envWebPort  = "KEYBOT_PORT"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout: 30,
		},
		Web: WebConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
		},
		Schedule: ScheduleConfig{
			DailyReset:   "0 0 * * *",
			MonthlyReset: "0 0 1 * *",
		},
		LogLevel: "info",
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file yields the defaults so env-only setups still work.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr(envToken, &c.Telegram.Token)
	envStr(envLogLevel, &c.LogLevel)
	envStr(envWebHost, &c.Web.Host)
	if v := os.Getenv(envWebPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Web.Port = port
		}
	}

	// Admin IDs from env (comma-separated) replace the file list.
	if v := os.Getenv(envAdmins); v != "" {
		var ids []int64
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			c.Roster.Admins = ids
		}
	}
}

// Save writes the config to a JSON file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Hash returns a short SHA-256 hash of the config, used to skip no-op
// reloads when the watcher fires for an unchanged file.
func (c *Config) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, _ := json.Marshal(c)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

// Seed converts the roster section into registry seed data.
func (c *Config) Seed() registry.Seed {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seed := registry.Seed{
		Admins:     append([]int64(nil), c.Roster.Admins...),
		Sellers:    append([]int64(nil), c.Roster.Sellers...),
		Blocked:    append([]int64(nil), c.Roster.Blocked...),
		BuyEnabled: c.Roster.BuyEnabledOrDefault(),
	}
	for _, p := range c.Roster.Products {
		seed.Products = append(seed.Products, registry.Product{
			Name:        p.Name,
			Description: p.Description,
			Image:       ExpandHome(p.Image),
			Sellers:     append([]int64(nil), p.Sellers...),
		})
	}
	return seed
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
