package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"TourCast/internal/di"
	"TourCast/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tourctl",
	Short: "TourCast maintenance CLI",
	Long: `tourctl works directly against the configured warehouse.

Example usage:
  tourctl seed --days 730 --start 2022-01-01     # Load two years of synthetic events
  tourctl forecast --state Kerala --horizon 12   # Forecast one state
  tourctl forecast --all-states --workers 8      # Forecast every state in parallel`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadWithEnv(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.yaml", "config file path")
}

// tools builds the CLI bundle. Callers defer cleanup before t.Close so the
// warehouse client closes last.
func tools() (*di.Tools, func(), error) {
	t, cleanup, err := di.InitializeTools(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize: %w", err)
	}
	return t, cleanup, nil
}
