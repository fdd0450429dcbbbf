package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantumpanel/keybot/internal/broker"
	"github.com/quantumpanel/keybot/internal/config"
	"github.com/quantumpanel/keybot/internal/export"
	"github.com/quantumpanel/keybot/internal/registry"
)

func exportCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:       "export [products|sellers]",
		Short:     "Export the configured roster as CSV",
		Long:      "Writes the product catalog or seller roster from the config file to a CSV file. Session data lives only in the running bot; export it from the admin panel instead.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"products", "sellers"},
		Run: func(cmd *cobra.Command, args []string) {
			runExport(args[0], outDir)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

func runExport(dataset, outDir string) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	reg := registry.New(cfg.Seed())
	exp := export.New(broker.NewStore(), reg, outDir)

	var path string
	switch dataset {
	case "products":
		path, err = exp.Products()
	case "sellers":
		path, err = exp.Sellers()
	}
	if err != nil {
		fmt.Printf("Export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %s to %s\n", dataset, path)
}
