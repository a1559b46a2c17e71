package config

import (
	"context"
	"os"
	"testing"

	gostore "github.com/cmdarr/cmdarr/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) (*Store, gostore.Store) {
	t.Helper()
	dir := t.TempDir()
	db, err := gostore.Open(context.Background(), "lite", dir+"/test.db", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg, err := New(context.Background(), db)
	require.NoError(t, err)
	return cfg, db
}

func TestPrecedenceEnvPersistedDefault(t *testing.T) {
	cfg, _ := newTestConfig(t)
	ctx := context.Background()

	// neither env nor persisted: default wins
	v, err := cfg.Get(ctx, "MAX_PARALLEL_COMMANDS")
	require.NoError(t, err)
	require.Equal(t, "2", v)

	// persisted set: persisted wins over default
	require.NoError(t, cfg.Set(ctx, "MAX_PARALLEL_COMMANDS", "4"))
	v, err = cfg.Get(ctx, "MAX_PARALLEL_COMMANDS")
	require.NoError(t, err)
	require.Equal(t, "4", v)

	// env set: env wins over persisted and default
	os.Setenv("MAX_PARALLEL_COMMANDS", "9")
	defer os.Unsetenv("MAX_PARALLEL_COMMANDS")
	cfg.Refresh()
	v, err = cfg.Get(ctx, "MAX_PARALLEL_COMMANDS")
	require.NoError(t, err)
	require.Equal(t, "9", v)
}

func TestSetRejectsInvalidCoercion(t *testing.T) {
	cfg, _ := newTestConfig(t)
	ctx := context.Background()

	err := cfg.Set(ctx, "MAX_PARALLEL_COMMANDS", "not-a-number")
	require.Error(t, err)

	v, err := cfg.Get(ctx, "MAX_PARALLEL_COMMANDS")
	require.NoError(t, err)
	require.Equal(t, "2", v, "failed coercion must not persist the new value")
}

func TestSetRejectsUnknownEnumValue(t *testing.T) {
	cfg, _ := newTestConfig(t)
	ctx := context.Background()

	err := cfg.Set(ctx, "LOG_LEVEL", "verbose")
	require.Error(t, err)
}

func TestGetAllRedactsSensitiveValues(t *testing.T) {
	cfg, _ := newTestConfig(t)
	ctx := context.Background()

	require.NoError(t, cfg.Set(ctx, "LIDARR_API_KEY", "super-secret-key"))

	settings, err := cfg.GetAll(ctx, true)
	require.NoError(t, err)

	var found bool
	for _, s := range settings {
		if s.Key == "LIDARR_API_KEY" {
			found = true
			require.Equal(t, RedactedPlaceholder, s.Value)
		}
	}
	require.True(t, found)

	unredacted, err := cfg.GetAll(ctx, false)
	require.NoError(t, err)
	for _, s := range unredacted {
		if s.Key == "LIDARR_API_KEY" {
			require.Equal(t, "super-secret-key", s.Value)
		}
	}
}

func TestValidateRequiredReportsMissingKeys(t *testing.T) {
	cfg, _ := newTestConfig(t)
	ctx := context.Background()

	missing, err := cfg.ValidateRequired(ctx)
	require.NoError(t, err)
	require.Contains(t, missing, "LIDARR_URL")
	require.Contains(t, missing, "LIDARR_API_KEY")

	require.NoError(t, cfg.Set(ctx, "LIDARR_URL", "http://lidarr.local"))
	require.NoError(t, cfg.Set(ctx, "LIDARR_API_KEY", "key"))

	missing, err = cfg.ValidateRequired(ctx)
	require.NoError(t, err)
	require.NotContains(t, missing, "LIDARR_URL")
	require.NotContains(t, missing, "LIDARR_API_KEY")
}

func TestGetTypedCoercesDeclaredType(t *testing.T) {
	cfg, _ := newTestConfig(t)
	ctx := context.Background()

	v, err := cfg.GetTyped(ctx, "DISCOVERY_MIN_SIMILARITY")
	require.NoError(t, err)
	require.Equal(t, 0.85, v)

	require.NoError(t, cfg.Set(ctx, "PLAYLIST_SYNC_PRUNE_ADDITIVE", "yes"))
	v, err = cfg.GetTyped(ctx, "PLAYLIST_SYNC_PRUNE_ADDITIVE")
	require.NoError(t, err)
	require.Equal(t, true, v)
}
