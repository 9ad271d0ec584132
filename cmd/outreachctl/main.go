// Package main implements outreachctl, the terminal client for launching
// and reviewing outreach campaigns.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"outreach-engine/orchestrator/internal/api"
	"outreach-engine/orchestrator/internal/config"
	"outreach-engine/orchestrator/internal/logging"
)

var (
	cfg    *config.Config
	logger *logging.Logger
	client *api.Client

	backendFlag string
)

var rootCmd = &cobra.Command{
	Use:           "outreachctl",
	Short:         "Launch and review AI-generated outreach campaigns",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return err
		}
		if backendFlag != "" {
			cfg.Backend.BaseURL = backendFlag
		}
		logger = logging.NewLogger()
		client = api.NewClient(cfg.Backend.BaseURL,
			time.Duration(cfg.Backend.RequestTimeoutMS)*time.Millisecond)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Backend base URL (overrides config)")
	rootCmd.AddCommand(sessionsCmd, runCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
