package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkwellai/inkwell/internal/config"
	"github.com/inkwellai/inkwell/internal/db"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "inkwell",
		Short: "Feishu diary assistant bot",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return db.Migrate(cfg.Postgres)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return os.Getenv("CONFIG_PATH")
}
