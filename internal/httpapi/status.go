package httpapi

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/cmdarr/cmdarr/internal/apierr"
	"github.com/cmdarr/cmdarr/internal/store"
)

type systemStatus struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
	MemAllocBytes uint64  `json:"memory_alloc_bytes"`
	MemSysBytes   uint64  `json:"memory_sys_bytes"`
	NumCPU        int     `json:"cpu_count"`
	DiskTotal     uint64  `json:"disk_total_bytes"`
	DiskFree      uint64  `json:"disk_free_bytes"`
}

// statusSystem answers GET /api/status/system (spec §6): uptime, memory,
// cpu, disk. Grounded on runtime.MemStats/syscall.Statfs rather than
// gopsutil — the teacher only pulls gopsutil in indirectly (never imports
// it directly in its own code), so there is no genuine grounding to adopt
// it as a direct dependency here; see DESIGN.md.
func (h *handlers) statusSystem(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	var statfs syscall.Statfs_t
	var diskTotal, diskFree uint64
	if err := syscall.Statfs(".", &statfs); err == nil {
		diskTotal = statfs.Blocks * uint64(statfs.Bsize)
		diskFree = statfs.Bavail * uint64(statfs.Bsize)
	}

	writeJSON(w, systemStatus{
		UptimeSeconds: time.Since(h.cfg.StartedAt).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		MemAllocBytes: mem.Alloc,
		MemSysBytes:   mem.Sys,
		NumCPU:        runtime.NumCPU(),
		DiskTotal:     diskTotal,
		DiskFree:      diskFree,
	})
}

type commandStatus struct {
	CommandName        string     `json:"command_name"`
	Enabled            bool       `json:"enabled"`
	Schedule           string     `json:"schedule"`
	IsRunning          bool       `json:"is_running"`
	LastRun            *time.Time `json:"last_run"`
	LastSuccess        *bool      `json:"last_success"`
	LastDuration       *float64   `json:"last_duration"`
	LastError          string     `json:"last_error,omitempty"`
	SuccessRatePercent float64    `json:"success_rate_percent"`
	RecentExecutions   int        `json:"recent_executions"`
}

// statusCommands answers GET /api/status/commands (spec §6), excluding
// commands marked Internal (helper commands with no user-facing schedule).
func (h *handlers) statusCommands(w http.ResponseWriter, r *http.Request) {
	configs, err := h.cfg.Registry.ListCommandConfigs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	running := h.cfg.Scheduler.CommandStatuses()

	out := make([]commandStatus, 0, len(configs))
	for _, c := range configs {
		if c.Internal {
			continue
		}
		schedule := c.CronExpr
		if schedule == "" && c.IntervalHours > 0 {
			schedule = strconv.FormatFloat(c.IntervalHours, 'g', -1, 64) + "h"
		}

		recent, err := h.cfg.Registry.ListFor(r.Context(), c.Name, 50)
		if err != nil {
			writeError(w, r, err)
			return
		}
		total, err := h.cfg.Registry.CountFor(r.Context(), c.Name)
		if err != nil {
			writeError(w, r, err)
			return
		}

		successRate := 0.0
		if len(recent) > 0 {
			successes := 0
			for _, e := range recent {
				if e.Success {
					successes++
				}
			}
			successRate = 100 * float64(successes) / float64(len(recent))
		}

		out = append(out, commandStatus{
			CommandName:        c.Name,
			Enabled:            c.Enabled,
			Schedule:           schedule,
			IsRunning:          running[c.Name] == "running" || running[c.Name] == "dispatching" || running[c.Name] == "completing",
			LastRun:            c.LastRun,
			LastSuccess:        c.LastSuccess,
			LastDuration:       c.LastDuration,
			LastError:          c.LastError,
			SuccessRatePercent: successRate,
			RecentExecutions:   total,
		})
	}
	writeJSON(w, out)
}

type executionStatus struct {
	ID            int64             `json:"id"`
	CommandName   string            `json:"command_name"`
	StartedAt     time.Time         `json:"started_at"`
	CompletedAt   *time.Time        `json:"completed_at"`
	Success       bool              `json:"success"`
	Duration      float64           `json:"duration"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	TriggeredBy   store.TriggeredBy `json:"triggered_by"`
	IsRunning     bool              `json:"is_running"`
	Status        store.ExecutionStatus `json:"status"`
	OutputSummary json.RawMessage   `json:"output_summary,omitempty"`
	// Target is reserved for commands that operate against more than one
	// named destination (e.g. a multi-playlist sync); ExecutionRow does
	// not yet carry one, so it is always empty.
	Target string `json:"target"`
}

// statusRecentExecutions answers GET /api/status/executions/recent?limit=N.
func (h *handlers) statusRecentExecutions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	rows, err := h.cfg.Registry.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]executionStatus, 0, len(rows))
	for _, e := range rows {
		out = append(out, executionStatus{
			ID:            e.ID,
			CommandName:   e.CommandName,
			StartedAt:     e.StartedAt,
			CompletedAt:   e.CompletedAt,
			Success:       e.Success,
			Duration:      e.DurationSecs,
			ErrorMessage:  e.ErrorMessage,
			TriggeredBy:   e.TriggeredBy,
			IsRunning:     e.Status == store.StatusRunning,
			Status:        e.Status,
			OutputSummary: e.OutputSummary,
		})
	}
	writeJSON(w, out)
}

type cacheStatsResponse struct {
	Target   string  `json:"target"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// statusCache answers GET /api/status/cache?target=<service>.
func (h *handlers) statusCache(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		writeError(w, r, apierr.New(apierr.CodeValidation, "target query parameter is required"))
		return
	}

	stats := h.cfg.ResponseCache.Stats(target)
	if h.cfg.LibraryCache != nil {
		lc := h.cfg.LibraryCache.Stats(target)
		stats.Hits += lc.Hits
		stats.Misses += lc.Misses
	}

	ratio := 0.0
	if total := stats.Hits + stats.Misses; total > 0 {
		ratio = float64(stats.Hits) / float64(total)
	}
	writeJSON(w, cacheStatsResponse{Target: target, Hits: stats.Hits, Misses: stats.Misses, HitRatio: ratio})
}

// statusCacheReset answers POST /api/status/cache/reset.
func (h *handlers) statusCacheReset(w http.ResponseWriter, r *http.Request) {
	h.cfg.ResponseCache.ResetStats()
	writeJSON(w, map[string]string{"status": "reset"})
}
