package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rjrizani/zyte-api-training/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "zyte-collect",
	Short: "Incremental collection through the Zyte API",
	Long:  "Paginates, scrolls or submits forms through the Zyte API, extracts records, de-duplicates them and retries failed fetches with bounded backoff.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
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
