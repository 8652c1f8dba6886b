package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bluereef-labs/mpagent/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mpagent",
	Short: "Marine protected area management plan analysis",
	Long:  "Extracts zonation, conservation objectives, and citations from Spanish-language MPA management plan PDFs via Claude, validates the records, and scores protection level, SMART quality, and objective-literature congruence.",
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
