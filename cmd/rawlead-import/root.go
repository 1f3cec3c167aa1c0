package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"telecall_backend/platform/config"
	"telecall_backend/platform/logger"
)

var (
	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rawlead-import",
	Short: "Load raw telecalling leads from files",
	Long:  "Offline counterpart of the raw lead upload endpoint. Reads CSV exports and feeds them through the same ingestion rules.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadBase()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		log = logger.New(cfg.Env)
		return nil
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
