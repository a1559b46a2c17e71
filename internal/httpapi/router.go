// Package httpapi implements spec §6's HTTP and WebSocket surface: health,
// system/command/execution status, config CRUD, discovery-artifact
// serving, the new-releases cross-check, and a WebSocket push channel for
// live command/log updates. Grounded on the teacher's internal/api
// (router.go's nested PathPrefix().Subrouter() layout, middleware
// composition order, errors.go's envelope) with the auth/RBAC/rate-limit/
// CORS/compression tiers dropped — see DESIGN.md for why.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cmdarr/cmdarr/internal/cache"
	"github.com/cmdarr/cmdarr/internal/config"
	"github.com/cmdarr/cmdarr/internal/librarycache"
	"github.com/cmdarr/cmdarr/internal/logfanout"
	"github.com/cmdarr/cmdarr/internal/newreleases"
	"github.com/cmdarr/cmdarr/internal/registry"
	"github.com/cmdarr/cmdarr/internal/scheduler"
	"github.com/cmdarr/cmdarr/internal/store"
)

// ConnectivityChecker is the narrow capability POST /api/config/test-
// connectivity exercises per configured service. capability.ManagerClient,
// MetadataClient, RecommenderClient, etc. do not share a common
// TestConnection method, so callers adapt each concrete client to this
// shape at wiring time (cmd/cmdarr).
type ConnectivityChecker interface {
	TestConnection(ctx context.Context) (bool, error)
}

// Config collects every dependency the HTTP surface renders.
type Config struct {
	Logger        *slog.Logger
	DB            store.Store
	ConfigStore   *config.Store
	Registry      *registry.Registry
	Scheduler     *scheduler.Scheduler
	ResponseCache cache.Cache
	LibraryCache  *librarycache.Manager
	NewReleases   *newreleases.Scanner
	Fanout        *logfanout.Fanout
	Connectivity  map[string]ConnectivityChecker
	ArtifactsDir  string
	StartedAt     time.Time
}

// NewRouter builds the full mux.Router. Global middleware order mirrors
// the teacher's NewRouter: request-id first, then access logging; every
// route group below is a path-prefixed subrouter, same shape as the
// teacher's setupXRoutes split, without the auth/RBAC tiers.
func NewRouter(cfg Config) *mux.Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &handlers{cfg: cfg}

	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware(cfg.Logger))

	router.HandleFunc("/health", h.health).Methods(http.MethodGet)

	status := router.PathPrefix("/api/status").Subrouter()
	status.HandleFunc("/system", h.statusSystem).Methods(http.MethodGet)
	status.HandleFunc("/commands", h.statusCommands).Methods(http.MethodGet)
	status.HandleFunc("/executions/recent", h.statusRecentExecutions).Methods(http.MethodGet)
	status.HandleFunc("/cache", h.statusCache).Methods(http.MethodGet)
	status.HandleFunc("/cache/reset", h.statusCacheReset).Methods(http.MethodPost)

	cfgRoutes := router.PathPrefix("/api/config").Subrouter()
	cfgRoutes.HandleFunc("/", h.configGetAll).Methods(http.MethodGet)
	cfgRoutes.HandleFunc("/validate/", h.configValidate).Methods(http.MethodPost)
	cfgRoutes.HandleFunc("/refresh/", h.configRefresh).Methods(http.MethodPost)
	cfgRoutes.HandleFunc("/test-connectivity", h.configTestConnectivity).Methods(http.MethodPost)
	cfgRoutes.HandleFunc("/{key}", h.configGetOne).Methods(http.MethodGet)
	cfgRoutes.HandleFunc("/{key}", h.configPutOne).Methods(http.MethodPut)

	importLists := router.PathPrefix("/import_lists").Subrouter()
	importLists.HandleFunc("/metrics", h.importListMetrics).Methods(http.MethodGet)
	importLists.HandleFunc("/{name}", h.importListGet).Methods(http.MethodGet)

	router.HandleFunc("/api/new-releases", h.newReleases).Methods(http.MethodGet)

	router.HandleFunc("/ws", h.websocket).Methods(http.MethodGet)

	return router
}

type handlers struct {
	cfg Config
}
