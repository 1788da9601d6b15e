package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-macfiles/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := GetOutputFormat()
		if format == "table" {
			format = "yaml"
		}
		if appConfig.File != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "# read from %s\n", appConfig.File)
		}
		return writeStructured(cmd.OutOrStdout(), appConfig, format)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.AppName + ".yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if filepath.Ext(path) == "" {
			path += ".yaml"
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "macfiles %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(configCmd, versionCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)
}
