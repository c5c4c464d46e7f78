package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tablewise/salesight/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "salesight",
	Short: "Restaurant sales forecasting and explanation",
	Long:  "Imports daily restaurant observations, trains leakage-safe tree ensembles on next-day sales changes, and explains every prediction with exact per-feature attributions.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
