package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/daystatus"
	"github.com/jpalmerr/daystatus/config"
)

// session is an opened, initialized store plus what it was built from.
type session struct {
	cfg    *config.Config
	built  *config.Built
	store  *daystatus.Store
	logger *slog.Logger
}

// Close closes the store before its substrate.
func (s *session) Close() {
	_ = s.store.Close()
	if err := s.built.Close(); err != nil {
		s.logger.Warn("failed to close storage", "error", err)
	}
}

// loadConfig reads the file named by --config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return nil, errors.New("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openSession loads the config, opens storage and initializes a store.
//
// One-shot commands pass background=false: the store then neither follows
// other instances nor sweeps on a timer.
func openSession(ctx context.Context, cmd *cobra.Command, background bool) (*session, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	built, err := config.Build(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	opts := built.Options
	if !background {
		opts = append(opts, daystatus.WithSync(false), daystatus.WithSweepInterval(0))
	}

	st, err := daystatus.New(opts...)
	if err != nil {
		_ = built.Close()
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := st.Init(ctx); err != nil {
		_ = st.Close()
		_ = built.Close()
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	return &session{cfg: cfg, built: built, store: st, logger: logger}, nil
}
