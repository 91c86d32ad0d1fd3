package main

import (
	"log"
	"os"

	"github.com/ran-crm/crm/db"
	"github.com/ran-crm/crm/internal/auth"
	"github.com/ran-crm/crm/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "crm",
		Short:        "Shared contact and call-log CRM server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		seedAdminCmd(),
		hashPasswordCmd(),
		syncCmd(),
		backupCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and opens the database.
func bootstrap() (config.Config, error) {
	cfg, err := config.Load()

	if err != nil {
		return cfg, err
	}

	if err = auth.Configure(cfg.JWTSecret, cfg.TokenTTL()); err != nil {
		return cfg, err
	}

	if err = db.ConnectDatabase(cfg.DBDriver, cfg.DatabaseURL); err != nil {
		return cfg, err
	}

	log.Printf("Connected to %s database", cfg.DBDriver)

	return cfg, nil
}
