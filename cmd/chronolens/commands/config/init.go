package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chronolens/chronolens/internal/cli/prompt"
	"github.com/chronolens/chronolens/pkg/catalog"
	"github.com/chronolens/chronolens/pkg/config"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample Chronolens configuration file.

By default, the configuration file is created at
$XDG_CONFIG_HOME/chronolens/config.yaml. Use --config to specify a custom
path.

Examples:
  # Initialize with default location
  chronolens config init

  # Initialize with custom path
  chronolens config init --config /etc/chronolens/config.yaml

  # Answer a few questions instead of editing the file afterwards
  chronolens config init --interactive

  # Force overwrite existing config
  chronolens config init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the main settings")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := configFileFlag(cmd)
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.NewInitConfig()
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	if initInteractive {
		if err := promptSettings(cfg); err != nil {
			if prompt.IsAborted(err) {
				return fmt.Errorf("aborted")
			}
			return err
		}
		// The questions already went through; overwriting is confirmed
		// explicitly instead of failing afterwards.
		if _, statErr := os.Stat(configPath); statErr == nil {
			ok, err := prompt.ConfirmWithForce(
				fmt.Sprintf("Overwrite %s", configPath), initForce)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("aborted")
			}
			initForce = true
		}
	}

	if err := config.WriteInitConfig(cfg, configPath, initForce); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file (object storage bucket, database)")
	fmt.Println("  2. Start the server with: chronolens serve")
	fmt.Println("  3. Start the workers: chronolens preview-worker / metadata-worker")
	fmt.Println("\nSecurity note:")
	fmt.Println("  A random JWT secret has been generated for development use.")
	fmt.Println("  For production, generate a secure secret and use an environment variable:")
	fmt.Println("    export JWT_SECRET=$(openssl rand -hex 32)")

	return nil
}

// promptSettings asks for the settings people most often change and fills
// them into cfg. Everything else keeps its default.
func promptSettings(cfg *config.Config) error {
	listenOn, err := prompt.Input("Listen address", cfg.Server.ListenOn)
	if err != nil {
		return err
	}
	cfg.Server.ListenOn = listenOn

	bucket, err := prompt.InputRequired("Object storage bucket")
	if err != nil {
		return err
	}
	cfg.ObjectStorage.Bucket = bucket

	endpoint, err := prompt.InputOptional("Object storage endpoint (for MinIO)")
	if err != nil {
		return err
	}
	cfg.ObjectStorage.Endpoint = endpoint

	dbType, err := prompt.Select("Database", []prompt.SelectOption{
		{Label: "SQLite", Value: string(catalog.DatabaseTypeSQLite), Description: "Single file, no extra services"},
		{Label: "PostgreSQL", Value: string(catalog.DatabaseTypePostgres), Description: "Shared server for multi-instance setups"},
	})
	if err != nil {
		return err
	}
	cfg.Database.Type = catalog.DatabaseType(dbType)

	if cfg.Database.Type == catalog.DatabaseTypePostgres {
		host, err := prompt.Input("PostgreSQL host", "localhost")
		if err != nil {
			return err
		}
		port, err := prompt.InputPort("PostgreSQL port", 5432)
		if err != nil {
			return err
		}
		name, err := prompt.Input("PostgreSQL database", "chronolens")
		if err != nil {
			return err
		}
		user, err := prompt.InputRequired("PostgreSQL user")
		if err != nil {
			return err
		}
		password, err := prompt.Password("PostgreSQL password")
		if err != nil {
			return err
		}

		cfg.Database.Postgres.Host = host
		cfg.Database.Postgres.Port = port
		cfg.Database.Postgres.Database = name
		cfg.Database.Postgres.User = user
		cfg.Database.Postgres.Password = password
	}

	return nil
}
