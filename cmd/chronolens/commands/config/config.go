// Package config implements the "chronolens config" subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent "config" command.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration (init, schema)",
	Long: `Manage the Chronolens configuration file.

Examples:
  # Create a sample config file at the default location
  chronolens config init

  # Generate the JSON schema for the config file
  chronolens config schema`,
}

func init() {
	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(schemaCmd)
}

// configFileFlag reads the root --config persistent flag.
func configFileFlag(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
