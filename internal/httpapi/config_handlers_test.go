package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	ok  bool
	err error
}

func (f fakeChecker) TestConnection(ctx context.Context) (bool, error) { return f.ok, f.err }

func TestConfigGetAllRedactsSensitiveValues(t *testing.T) {
	cfg := newTestConfig(t)
	ctx := context.Background()
	require.NoError(t, cfg.ConfigStore.Set(ctx, "LIDARR_API_KEY", "super-secret"))

	router := NewRouter(cfg)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "super-secret")
}

func TestConfigGetOneUnknownKeyReturns404(t *testing.T) {
	cfg := newTestConfig(t)
	router := NewRouter(cfg)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config/NOT_A_REAL_KEY", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfigPutOneUpdatesValue(t *testing.T) {
	cfg := newTestConfig(t)
	router := NewRouter(cfg)

	body, err := json.Marshal(configPutBody{Value: "http://lidarr:8686"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/config/LIDARR_URL", bytes.NewReader(body))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := cfg.ConfigStore.Get(context.Background(), "LIDARR_URL")
	require.NoError(t, err)
	require.Equal(t, "http://lidarr:8686", got)
}

func TestConfigValidateReportsMissingRequired(t *testing.T) {
	cfg := newTestConfig(t)
	router := NewRouter(cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/config/validate/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Valid           bool     `json:"valid"`
		MissingRequired []string `json:"missing_required"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.False(t, out.Valid)
	require.Contains(t, out.MissingRequired, "LIDARR_URL")
}

func TestConfigRefreshReturnsOK(t *testing.T) {
	cfg := newTestConfig(t)
	router := NewRouter(cfg)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/config/refresh/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestConfigTestConnectivityReportsEachService(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Connectivity["lidarr"] = fakeChecker{ok: true}
	cfg.Connectivity["lastfm"] = fakeChecker{ok: false, err: errors.New("dns failure")}
	cfg.Connectivity["spotify"] = nil

	router := NewRouter(cfg)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/config/test-connectivity", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var results []connectivityResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 3)

	byService := map[string]connectivityResult{}
	for _, r := range results {
		byService[r.Service] = r
	}
	require.True(t, byService["lidarr"].Success)
	require.False(t, byService["lastfm"].Success)
	require.Equal(t, "dns failure", byService["lastfm"].Error)
	require.Equal(t, "not configured", byService["spotify"].Message)
}
