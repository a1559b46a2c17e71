package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	gostore "github.com/cmdarr/cmdarr/internal/store"
)

func TestStatusSystemReportsProcessInfo(t *testing.T) {
	cfg := newTestConfig(t)
	router := NewRouter(cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status/system", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body systemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.GreaterOrEqual(t, body.NumCPU, 1)
	require.GreaterOrEqual(t, body.UptimeSeconds, 0.0)
}

func TestStatusCommandsExcludesInternalCommands(t *testing.T) {
	cfg := newTestConfig(t)
	ctx := context.Background()

	require.NoError(t, cfg.DB.UpsertCommandConfigIfAbsent(ctx, gostore.CommandConfigRow{
		Name: "discovery_lastfm", Enabled: true, IntervalHours: 24,
	}))
	require.NoError(t, cfg.DB.UpsertCommandConfigIfAbsent(ctx, gostore.CommandConfigRow{
		Name: "cleanup_helper", Enabled: true, Internal: true,
	}))

	router := NewRouter(cfg)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status/commands", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body []commandStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.Equal(t, "discovery_lastfm", body[0].CommandName)
}

func TestStatusRecentExecutionsHonorsLimit(t *testing.T) {
	cfg := newTestConfig(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := cfg.Registry.Begin(ctx, "discovery_lastfm", gostore.TriggeredManual)
		require.NoError(t, err)
		require.NoError(t, cfg.Registry.Complete(ctx, id, true, nil, nil))
	}

	router := NewRouter(cfg)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status/executions/recent?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body []executionStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
}

func TestStatusCacheRequiresTargetParam(t *testing.T) {
	cfg := newTestConfig(t)
	router := NewRouter(cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status/cache", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusCacheReportsHitsAndResetZeroesThem(t *testing.T) {
	cfg := newTestConfig(t)
	ctx := context.Background()
	require.NoError(t, cfg.ResponseCache.Set(ctx, "artist:abc", "lastfm", map[string]string{"k": "v"}, time.Hour))

	var out map[string]string
	require.NoError(t, cfg.ResponseCache.Get(ctx, "artist:abc", "lastfm", &out))

	router := NewRouter(cfg)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status/cache?target=lastfm", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats cacheStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, int64(1), stats.Hits)

	resetRec := httptest.NewRecorder()
	router.ServeHTTP(resetRec, httptest.NewRequest(http.MethodPost, "/api/status/cache/reset", nil))
	require.Equal(t, http.StatusOK, resetRec.Code)

	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/api/status/cache?target=lastfm", nil))
	var stats2 cacheStatsResponse
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &stats2))
	require.Zero(t, stats2.Hits)
}
