package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/cmdarr/cmdarr/internal/cache"
	"github.com/cmdarr/cmdarr/internal/httpapi"
	"github.com/cmdarr/cmdarr/internal/librarycache"
	"github.com/cmdarr/cmdarr/internal/logfanout"
	"github.com/cmdarr/cmdarr/internal/registry"
	"github.com/cmdarr/cmdarr/internal/scheduler"
)

const (
	defaultMaxParallelCommands = 2
	libraryCacheTTL            = 24 * time.Hour
	libraryCacheMaxMemoryBytes = 256 << 20
	logTailPollInterval        = 500 * time.Millisecond
	shutdownTimeout            = 30 * time.Second
)

// newServeCmd runs the full orchestrator: phase 1 (storage + config,
// shared with migrate/seed) followed by phase 2 — cache, library cache,
// execution registry, scheduler, log fanout, and the HTTP/WS surface —
// then blocks serving until SIGINT/SIGTERM, per spec §9's two-phase init
// note. Shutdown sequencing (stop accepting, drain scheduler, close
// stores) is grounded on the teacher's cmd/server main signal-handling
// loop (os.Interrupt/SIGTERM -> context.WithTimeout -> Server.Shutdown).
func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cmdarr HTTP API, scheduler, and background pipelines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configFile)
		},
	}
}

func runServe(ctx context.Context, configFile string) error {
	p1, err := initPhase1(ctx, configFile)
	if err != nil {
		return err
	}
	defer p1.DB.Close()

	logger := p1.Logger
	cfgStore := p1.Config
	db := p1.DB

	maxParallel := defaultMaxParallelCommands
	if raw, err := cfgStore.Get(ctx, "MAX_PARALLEL_COMMANDS"); err == nil {
		if n, convErr := strconv.Atoi(raw); convErr == nil && n > 0 {
			maxParallel = n
		}
	}

	timeoutLookup := func(ctx context.Context, commandName string) (time.Duration, bool, error) {
		row, err := db.GetCommandConfig(ctx, commandName)
		if err != nil || row == nil || row.TimeoutMinutes <= 0 {
			return 0, false, nil
		}
		return time.Duration(row.TimeoutMinutes) * time.Minute, true, nil
	}

	reg := registry.New(db, timeoutLookup, logger)
	sched := scheduler.New(db, reg, maxParallel, logger)
	respCache, err := cache.New(string(p1.Bootstrap.Profile), p1.Bootstrap.RedisAddr, db, logger)
	if err != nil {
		return err
	}
	defer respCache.Close()

	libCache := librarycache.New(db, libraryCacheTTL, libraryCacheMaxMemoryBytes, logger)
	fanout := logfanout.New(p1.Bootstrap.Log.Filename, logTailPollInterval, logger)

	// No concrete capability-client adapters (Lidarr/Last.fm/ListenBrainz/
	// Spotify/Plex/Navidrome/MusicBrainz HTTP clients) ship in this repo —
	// internal/capability only declares the interfaces they'd implement
	// (see SPEC_FULL.md's STRUCTURE section and DESIGN.md). So discovery
	// and playlist-sync commands, the new-releases scanner, and per-
	// service connectivity checks have nothing concrete to register
	// against yet; the HTTP surface already reports that cleanly (503 /
	// "not configured") rather than silently doing nothing.
	connectivity := map[string]httpapi.ConnectivityChecker{}

	artifactsDir, err := cfgStore.Get(ctx, "DISCOVERY_ARTIFACT_DIR")
	if err != nil {
		artifactsDir = "./data/import_lists"
	}
	if err := os.MkdirAll(artifactsDir, 0o755); err != nil {
		return err
	}

	if n, err := reg.StartupSweep(ctx); err != nil {
		logger.Warn("startup sweep failed", "error", err)
	} else if n > 0 {
		logger.Info("startup sweep marked stale executions failed", "count", n)
	}
	reg.Start(ctx)
	defer reg.Stop()
	sched.Start(ctx)
	defer sched.Stop()

	router := httpapi.NewRouter(httpapi.Config{
		Logger:        logger,
		DB:            db,
		ConfigStore:   cfgStore,
		Registry:      reg,
		Scheduler:     sched,
		ResponseCache: respCache,
		LibraryCache:  libCache,
		Fanout:        fanout,
		Connectivity:  connectivity,
		ArtifactsDir:  artifactsDir,
		StartedAt:     time.Now(),
	})
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	httpAddr := p1.Bootstrap.HTTPAddr
	if raw, err := cfgStore.Get(ctx, "HTTP_ADDR"); err == nil && raw != "" {
		httpAddr = raw
	}

	server := &http.Server{Addr: httpAddr, Handler: router}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", httpAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
