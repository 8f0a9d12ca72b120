package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/dfopt/internal/server"
	"github.com/cwbudde/dfopt/internal/store"
	"github.com/spf13/cobra"
)

var (
	serveAddr       string
	shutdownTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP job server",
	Long: `Start an HTTP server that runs optimization jobs in the background.

Jobs are submitted with POST /api/v1/jobs, followed with
GET /api/v1/jobs/{id}/stream (server-sent events) and recorded in the
run store like runs started from the command line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := openStore()
		if err != nil {
			return err
		}
		defer store.CloseIfSupported(runs)

		return serve(cmd.Context(), server.NewServer(serveAddr, runs, dataDir))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "Time allowed for running jobs to record their results on shutdown")
}

// serve blocks until the server fails or an interrupt arrives
func serve(parent context.Context, srv *server.Server) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Interrupt received, shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}
