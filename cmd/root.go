package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/areascope/areascope/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "areascope",
	Short: "Geospatial exploration of urban areas",
	Long:  "Clips feature layers to a selection polygon, computes per-layer and per-category statistics, derived urban-form metrics, and side-by-side area comparisons.",
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
