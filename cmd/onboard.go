package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/quantumpanel/keybot/internal/config"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Interactive setup wizard",
		Run: func(cmd *cobra.Command, args []string) {
			runOnboard()
		},
	}
}

// runOnboard walks through a minimal first-run setup and writes the config
// file. Products and sellers can be added later through the admin panel or
// by editing the file; it reloads live.
func runOnboard() {
	cfg := config.Default()
	cfgPath := resolveConfigPath()

	var (
		token       string
		adminID     string
		productName string
		productDesc string
		webEnabled  = true
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("From @BotFather. Leave empty to use $KEYBOT_TELEGRAM_TOKEN.").
				EchoMode(huh.EchoModePassword).
				Value(&token),
			huh.NewInput().
				Title("Admin Telegram user ID").
				Description("Your numeric Telegram ID (ask @userinfobot).").
				Validate(validateUserID).
				Value(&adminID),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("First product name").
				Description("Optional. E.g. KOS-8BP. Leave empty to add products later.").
				Value(&productName),
			huh.NewInput().
				Title("Product description").
				Value(&productDesc),
			huh.NewConfirm().
				Title("Enable the keepalive web server?").
				Description("Answers uptime pings on port 8080.").
				Value(&webEnabled),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println("Setup cancelled.")
		os.Exit(1)
	}

	cfg.Telegram.Token = strings.TrimSpace(token)
	if id, err := strconv.ParseInt(strings.TrimSpace(adminID), 10, 64); err == nil {
		cfg.Roster.Admins = []int64{id}
	}
	if name := strings.TrimSpace(productName); name != "" {
		cfg.Roster.Products = []config.ProductConfig{{
			Name:        name,
			Description: strings.TrimSpace(productDesc),
		}}
	}
	cfg.Web.Enabled = webEnabled

	if err := config.Save(cfgPath, cfg); err != nil {
		fmt.Printf("Failed to write %s: %v\n", cfgPath, err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("Configuration written to %s\n", cfgPath)
	fmt.Println()
	fmt.Println("Next steps:")
	if cfg.Telegram.Token == "" {
		fmt.Println("  1. export KEYBOT_TELEGRAM_TOKEN=<your token>")
		fmt.Println("  2. ./keybot")
	} else {
		fmt.Println("  ./keybot")
	}
}

func validateUserID(s string) error {
	if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
		return fmt.Errorf("enter a numeric Telegram user ID")
	}
	return nil
}
