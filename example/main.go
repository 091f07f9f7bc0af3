// Command example runs two status stores that share one in-memory storage:
// a "coach" instance that changes today's status now and then, and a
// "board" instance that serves the dashboard and follows the coach's
// changes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/daystatus"
	"github.com/jpalmerr/daystatus/dashboard"
	"github.com/jpalmerr/daystatus/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shared := daystatus.NewMemoryStorage(0)

	// an older installation left a document under the legacy key (see legacy.go)
	if err := SeedLegacyDocument(ctx, shared.Tab(), time.Now()); err != nil {
		logger.Error("failed to seed legacy document", "error", err)
		os.Exit(1)
	}

	board, err := daystatus.New(
		daystatus.WithSubstrate(shared.Tab()),
		daystatus.WithLogger(logger.With("instance", "board")),
		daystatus.WithEventCallback(func(ev daystatus.Event) {
			if ev.Kind == daystatus.EventSynced {
				logger.Info("board picked up a change from the coach", "records", ev.Count)
			}
		}),
	)
	if err != nil {
		logger.Error("failed to create board store", "error", err)
		os.Exit(1)
	}
	defer board.Close()

	coach, err := daystatus.New(
		daystatus.WithSubstrate(shared.Tab()),
		daystatus.WithLogger(logger.With("instance", "coach")),
	)
	if err != nil {
		logger.Error("failed to create coach store", "error", err)
		os.Exit(1)
	}
	defer coach.Close()

	for _, st := range []*daystatus.Store{board, coach} {
		if err := st.Init(ctx); err != nil {
			logger.Error("failed to initialize store", "error", err)
			os.Exit(1)
		}
	}

	// the coach changes today's status every 20-60 seconds (see coach.go)
	go RunCoach(ctx, coach, logger)

	srv := server.NewServer(board, 8080, dashboard.Assets, "Daystatus Demo", logger)
	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Daystatus Demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser.")
	fmt.Println("  A second instance changes today's status every 20-60s;")
	fmt.Println("  the board follows through the shared storage.")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	<-ctx.Done()
	srv.Wait()
}
