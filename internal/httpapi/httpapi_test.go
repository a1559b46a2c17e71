package httpapi

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cmdarr/cmdarr/internal/cache"
	"github.com/cmdarr/cmdarr/internal/config"
	"github.com/cmdarr/cmdarr/internal/registry"
	"github.com/cmdarr/cmdarr/internal/scheduler"
	gostore "github.com/cmdarr/cmdarr/internal/store"
)

// newTestConfig builds a fully-wired Config over a SQLite store in a
// per-test temp directory, matching the teacher's httptest-driven handler tests (e.g.
// cmd/server/handlers/dashboard_health_test.go).
func newTestConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	db, err := gostore.Open(context.Background(), "lite", dir+"/test.db", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	cfgStore, err := config.New(ctx, db)
	require.NoError(t, err)

	reg := registry.New(db, nil, slog.Default())
	sched := scheduler.New(db, reg, 2, slog.Default())

	respCache, err := cache.New("lite", "", db, slog.Default())
	require.NoError(t, err)

	return Config{
		Logger:        slog.Default(),
		DB:            db,
		ConfigStore:   cfgStore,
		Registry:      reg,
		Scheduler:     sched,
		ResponseCache: respCache,
		ArtifactsDir:  t.TempDir(),
		StartedAt:     time.Now(),
		Connectivity:  map[string]ConnectivityChecker{},
	}
}
