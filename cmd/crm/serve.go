package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ran-crm/crm/db"
	"github.com/ran-crm/crm/internal/backup"
	"github.com/ran-crm/crm/internal/config"
	"github.com/ran-crm/crm/internal/events"
	"github.com/ran-crm/crm/internal/handlers"
	"github.com/ran-crm/crm/internal/obs"
	"github.com/ran-crm/crm/internal/router"
	"github.com/ran-crm/crm/internal/scheduler"
	"github.com/ran-crm/crm/internal/services"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var backupEvery time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, admin dashboard and websocket feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}

			if err = db.MigrateDatabase(); err != nil {
				return err
			}

			if cfg.SeedAdminConfigured() {
				created, err := services.New(db.DB).SeedAdmin(cmd.Context(), cfg.SeedAdminName, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
				if err != nil {
					return err
				}
				if created {
					log.Printf("Seeded admin user %s", cfg.SeedAdminEmail)
				}
			}

			if err = events.Init(cfg.RabbitURL, cfg.RabbitExchange); err != nil {
				log.Printf("[Events] Broker unavailable, continuing without it: %v", err)
			}
			defer events.Close()

			events.AddListener(handlers.BroadcastEvent)

			shutdownTracer, err := obs.InitTracer("crm-api", cfg.OTLPEndpoint, cfg.Env)
			if err != nil {
				log.Printf("Tracing disabled: %v", err)
			} else {
				defer shutdownTracer(context.Background())
			}

			jobs := scheduler.NewScheduler(context.Background())
			defer jobs.Stop()

			if backupEvery > 0 {
				if err := scheduleBackups(cmd.Context(), jobs, cfg, backupEvery); err != nil {
					log.Printf("[Backup] Scheduled backups disabled: %v", err)
				}
			}

			r := router.NewRouter(router.Options{
				AllowedOrigins: cfg.AllowedOrigins,
				SignupEnabled:  cfg.SignupEnabled,
			})

			srv := &http.Server{
				Addr:    ":" + cfg.Port,
				Handler: r,
			}

			go func() {
				log.Printf("Starting server on :%s", cfg.Port)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Println("Shutting down server...")

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				return err
			}

			log.Println("Server exited")
			return nil
		},
	}

	cmd.Flags().DurationVar(&backupEvery, "backup-interval", 0, "upload a database snapshot on this interval (0 disables)")

	return cmd
}

func scheduleBackups(ctx context.Context, jobs *scheduler.Scheduler, cfg config.Config, every time.Duration) error {
	client, err := backup.NewS3Client(ctx, cfg)
	if err != nil {
		return err
	}

	uploader := backup.NewUploader(client, cfg.BackupBucket, cfg.BackupRetentionDays)

	jobs.AddJob("backup", every, func(ctx context.Context) error {
		_, err := uploader.Run(ctx, db.DB)
		return err
	})

	return nil
}
