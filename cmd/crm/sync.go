package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ran-crm/crm/internal/client"
	"github.com/ran-crm/crm/internal/scheduler"
	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	var (
		syncer   client.Syncer
		server   string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push a device's calls and contacts to a server and pull changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if syncer.Email == "" || syncer.Password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			syncer.Client = client.New(server)

			if interval <= 0 {
				return runSync(cmd.Context(), &syncer)
			}

			jobs := scheduler.NewScheduler(context.Background())
			jobs.AddJob("sync", interval, func(ctx context.Context) error {
				return runSync(ctx, &syncer)
			})

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Println("Stopping sync...")
			jobs.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:3000", "CRM server base URL")
	cmd.Flags().StringVar(&syncer.Email, "email", os.Getenv("CRM_EMAIL"), "account email")
	cmd.Flags().StringVar(&syncer.Password, "password", os.Getenv("CRM_PASSWORD"), "account password")
	cmd.Flags().StringVar(&syncer.CallsFile, "calls", "", "JSON file with call records to push")
	cmd.Flags().StringVar(&syncer.ContactsFile, "contacts", "", "JSON file with contacts to push")
	cmd.Flags().StringVar(&syncer.StateFile, "state", ".crm-sync.json", "file holding the pull cursors")
	cmd.Flags().DurationVar(&interval, "interval", 0, "repeat the sync on this interval until interrupted")

	return cmd
}

func runSync(ctx context.Context, syncer *client.Syncer) error {
	// tokens expire, log in fresh on every run
	syncer.Client.SetToken("")

	report, err := syncer.Sync(ctx)
	if err != nil {
		return err
	}

	out, err := json.Marshal(report)
	if err != nil {
		return err
	}

	log.Printf("[Sync] %s", out)
	return nil
}
