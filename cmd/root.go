package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paleobytes/gheval/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gheval",
	Short: "Geoheritage site catalogue and degradation risk evaluator",
	Long:  "Catalogues geoheritage sites, rates their environmental degradation risk, measures road proximity and land cover, and serves a local map UI.",
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
