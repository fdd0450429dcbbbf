package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/adhocore/gronx"
	"github.com/spf13/cobra"

	"github.com/quantumpanel/keybot/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("keybot doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	// Config
	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND — env-only mode)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("  Validation: FAILED (%s)\n", err)
	} else {
		fmt.Println("  Validation: OK")
	}

	fmt.Println()
	fmt.Println("  Roster:")
	fmt.Printf("    %-10s %d\n", "Admins:", len(cfg.Roster.Admins))
	fmt.Printf("    %-10s %d\n", "Sellers:", len(cfg.Roster.Sellers))
	fmt.Printf("    %-10s %d\n", "Products:", len(cfg.Roster.Products))
	for _, p := range cfg.Roster.Products {
		status := "OK"
		if len(p.Sellers) == 0 {
			status = "no sellers — cannot take requests"
		}
		fmt.Printf("      %-16s %s\n", p.Name+":", status)
	}

	fmt.Println()
	fmt.Println("  Schedule:")
	gron := gronx.New()
	for name, expr := range map[string]string{
		"daily_reset":   cfg.Schedule.DailyReset,
		"monthly_reset": cfg.Schedule.MonthlyReset,
	} {
		status := "OK"
		if !gron.IsValid(expr) {
			status = "INVALID"
		}
		fmt.Printf("    %-14s %-12q %s\n", name+":", expr, status)
	}

	fmt.Println()
	if cfg.Telegram.Token == "" {
		fmt.Println("  Token:    MISSING (set telegram.token or KEYBOT_TELEGRAM_TOKEN)")
	} else {
		fmt.Println("  Token:    set")
	}
	if cfg.Web.Enabled {
		fmt.Printf("  Web:      %s:%d\n", cfg.Web.Host, cfg.Web.Port)
	} else {
		fmt.Println("  Web:      disabled")
	}
}
