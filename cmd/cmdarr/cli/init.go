package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmdarr/cmdarr/internal/bootstrap"
	"github.com/cmdarr/cmdarr/internal/config"
	"github.com/cmdarr/cmdarr/internal/logging"
	"github.com/cmdarr/cmdarr/internal/store"
)

// phase1 is the result of cmdarr's first init phase: just enough to open
// storage and the Configuration Store. Every subcommand needs this much;
// only `serve` goes on to phase 2 (registry, scheduler, HTTP surface).
// Split out per spec §9's design note that the process must be able to
// validate/seed configuration without standing up the full runtime.
type phase1 struct {
	Bootstrap *bootstrap.Config
	Logger    *slog.Logger
	DB        store.Store
	Config    *config.Store
}

func initPhase1(ctx context.Context, configFile string) (*phase1, error) {
	boot, err := bootstrap.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading bootstrap config: %w", err)
	}

	logger := logging.New(boot.Log)
	slog.SetDefault(logger)

	db, err := store.Open(ctx, string(boot.Profile), boot.SQLitePath, boot.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	cfgStore, err := config.New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing configuration store: %w", err)
	}

	return &phase1{Bootstrap: boot, Logger: logger, DB: db, Config: cfgStore}, nil
}
