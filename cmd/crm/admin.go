package main

import (
	"fmt"
	"log"

	"github.com/ran-crm/crm/db"
	"github.com/ran-crm/crm/internal/auth"
	"github.com/ran-crm/crm/internal/backup"
	"github.com/ran-crm/crm/internal/services"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := bootstrap(); err != nil {
				return err
			}

			if err := db.MigrateDatabase(); err != nil {
				return err
			}

			log.Println("Database migrated")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an admin account if the email is not registered yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}

			if email == "" {
				email = cfg.SeedAdminEmail
			}
			if password == "" {
				password = cfg.SeedAdminPassword
			}
			if name == "" {
				name = cfg.SeedAdminName
			}

			if email == "" || password == "" {
				return fmt.Errorf("admin email and password are required (--email/--password or SEED_ADMIN_EMAIL/SEED_ADMIN_PASSWORD)")
			}

			if err = db.MigrateDatabase(); err != nil {
				return err
			}

			created, err := services.New(db.DB).SeedAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}

			if created {
				fmt.Printf("Created admin %s\n", services.NormalizeEmail(email))
			} else {
				fmt.Printf("User %s already exists, nothing to do\n", services.NormalizeEmail(email))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")

	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for manual inserts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}

			fmt.Println(hash)
			return nil
		},
	}
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Upload a JSON snapshot of the database to S3 and prune old ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}

			client, err := backup.NewS3Client(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			key, err := backup.NewUploader(client, cfg.BackupBucket, cfg.BackupRetentionDays).Run(cmd.Context(), db.DB)
			if err != nil {
				return err
			}

			fmt.Printf("Backup uploaded: s3://%s/%s\n", cfg.BackupBucket, key)
			return nil
		},
	}
}
