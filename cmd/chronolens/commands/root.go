// Package commands implements the CLI commands for the chronolens server.
package commands

import (
	"github.com/spf13/cobra"

	configcmd "github.com/chronolens/chronolens/cmd/chronolens/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chronolens",
	Short: "Chronolens - Self-hosted photo library backend",
	Long: `Chronolens is a self-hosted photo library backend. It ingests original
photos into S3-compatible object storage, derives previews and EXIF metadata
through NATS JetStream workers, and serves a multi-user sync and browse API.

Use "chronolens [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/chronolens/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(previewWorkerCmd)
	rootCmd.AddCommand(metadataWorkerCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(configcmd.Cmd)

	// Hide the default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
