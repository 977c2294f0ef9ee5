// Package cmd holds the ripple command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/llehouerou/ripple/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ripple",
	Short: "ripple is a personal audio player engine.",
	Long: `ripple plays a local library with crossfades, a 15-band equalizer and
metadata lookup. It is controlled over MPRIS and a local HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPlayer(cmd.Context(), cfg)
	},
}

// Execute runs the command line and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
