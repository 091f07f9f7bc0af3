package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/daystatus/dashboard"
	"github.com/jpalmerr/daystatus/internal/server"
)

// newServeCmd starts the status board server.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the status board server",
		Long: `Start the daystatus board server.

The server will:
  - Load configuration from the specified file
  - Open the configured storage and load the stored records
  - Follow changes made by other instances sharing the storage
  - Sweep expired records periodically
  - Serve the dashboard UI and JSON API on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  daystatus serve -c daystatus.yaml
  daystatus serve --config /etc/daystatus/daystatus.toml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer sess.Close()

	cfg, logger := sess.cfg, sess.logger
	logger.Info("config loaded",
		"courses", len(sess.built.Courses),
		"driver", cfg.Storage.Driver,
		"retention_days", cfg.RetentionDays,
	)
	logger.Info("starting server",
		"port", cfg.Server.Port,
		"sweep_interval", cfg.SweepInterval.Duration().String(),
	)

	shutdownTimeout := cfg.Server.ShutdownTimeout.Duration()
	srv := server.NewServer(sess.store, cfg.Server.Port, dashboard.Assets, cfg.Title, logger,
		server.WithShutdownTimeout(shutdownTimeout))

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	<-ctx.Done()

	// signal received, wait for graceful shutdown with timeout
	done := make(chan struct{})
	go func() {
		srv.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(shutdownTimeout + time.Second):
		logger.Warn("shutdown timed out",
			"timeout", shutdownTimeout.String(),
			"action", "forcing exit",
		)
	}
	return nil
}
