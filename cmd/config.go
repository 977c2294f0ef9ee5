package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llehouerou/ripple/internal/config"
)

var configPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			path = config.UserConfigPath()
		}
		if path == "" {
			return fmt.Errorf("no home directory, pass --path")
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configPath, "path", "", "file to write (default ~/.config/ripple/config.toml)")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
