package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/taxon-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "taxon-cli",
	Short: "Reconcile vernacular taxon names against iNaturalist",
	Long:  "Searches iNaturalist for each taxon in a dataset, decides whether a common name can be assigned, and queues unique matches for submission.",
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
