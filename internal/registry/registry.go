// Package registry implements the Execution Registry (spec §4.5, C5): the
// persistent record of every command invocation, the atomic concurrency
// gate that refuses a second concurrent run of the same command, and a
// three-phase cleanup daemon. Grounded on the teacher's
// internal/business/silencing/gc_worker.go for the ticker/stopCh/doneCh
// worker lifecycle, generalized from a two-phase silence GC to the
// three-phase timed-out/runaway/retention sweep spec.md prescribes.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmdarr/cmdarr/internal/apierr"
	"github.com/cmdarr/cmdarr/internal/store"
)

// Default retention and runaway bounds (spec §4.5).
const (
	defaultRetentionPerCommand = 50
	runawayBound                = 2 * time.Hour
	cleanupInterval             = 5 * time.Minute
)

// TimeoutLookup resolves a command's configured timeout, if any.
type TimeoutLookup func(ctx context.Context, commandName string) (timeout time.Duration, hasTimeout bool, err error)

// Registry is the Execution Registry (C5).
type Registry struct {
	db             store.Store
	logger         *slog.Logger
	timeoutLookup  TimeoutLookup
	retention      int

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Registry. timeoutLookup supplies each command's
// configured timeout for the cleanup daemon's timed-out pass.
func New(db store.Store, timeoutLookup TimeoutLookup, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		db:            db,
		logger:        logger,
		timeoutLookup: timeoutLookup,
		retention:     defaultRetentionPerCommand,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// SetRetention overrides the per-command retention count (default 50).
// Nothing in this module calls it.
func (r *Registry) SetRetention(n int) {
	if n > 0 {
		r.retention = n
	}
}

// Begin is the concurrency gate: it refuses with apierr.ErrAlreadyRunning
// if a row with status=running already exists for commandName. The check
// and insert are performed atomically by the store (BeginExecution).
func (r *Registry) Begin(ctx context.Context, commandName string, triggeredBy store.TriggeredBy) (int64, error) {
	id, err := r.db.BeginExecution(ctx, commandName, triggeredBy, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Complete records an execution's terminal state.
func (r *Registry) Complete(ctx context.Context, id int64, success bool, output json.RawMessage, execErr error) error {
	status := store.StatusCompleted
	errMsg := ""
	if !success {
		status = store.StatusFailed
	}
	if execErr != nil {
		errMsg = execErr.Error()
	}
	return r.db.CompleteExecution(ctx, id, time.Now().UTC(), success, status, errMsg, output)
}

// ListRunning returns every execution currently in progress.
func (r *Registry) ListRunning(ctx context.Context) ([]store.ExecutionRow, error) {
	return r.db.ListRunningExecutions(ctx)
}

// ListRecent returns the n most recent executions across all commands.
func (r *Registry) ListRecent(ctx context.Context, n int) ([]store.ExecutionRow, error) {
	return r.db.ListRecentExecutions(ctx, n)
}

// ListFor returns the n most recent executions for one command.
func (r *Registry) ListFor(ctx context.Context, commandName string, n int) ([]store.ExecutionRow, error) {
	return r.db.ListExecutionsForCommand(ctx, commandName, n)
}

// CountFor returns the total number of recorded executions for one command.
func (r *Registry) CountFor(ctx context.Context, commandName string) (int, error) {
	return r.db.CountExecutionsForCommand(ctx, commandName)
}

// ListCommandConfigs returns every registered command's persisted config, for
// the HTTP status surface (spec §6 GET /api/status/commands).
func (r *Registry) ListCommandConfigs(ctx context.Context) ([]store.CommandConfigRow, error) {
	return r.db.ListCommandConfigs(ctx)
}

// Prune deletes executions beyond the given retention count, per command.
func (r *Registry) Prune(ctx context.Context, retentionPerCommand int) (int, error) {
	configs, err := r.db.ListCommandConfigs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing command configs for prune: %w", err)
	}
	total := 0
	for _, cfg := range configs {
		n, err := r.db.DeleteOldestExecutions(ctx, cfg.Name, retentionPerCommand)
		if err != nil {
			return total, fmt.Errorf("pruning executions for %s: %w", cfg.Name, err)
		}
		total += n
	}
	return total, nil
}

// StartupSweep marks every row still running (from a prior, crashed
// process) as failed. Must be called once, before the scheduler starts.
func (r *Registry) StartupSweep(ctx context.Context) (int, error) {
	n, err := r.db.MarkAllRunningFailed(ctx, "Command was running when application restarted", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("startup sweep: %w", err)
	}
	if n > 0 {
		r.logger.Warn("marked running executions failed on startup", "count", n)
	}
	return n, nil
}

// Start launches the background cleanup daemon (timed-out -> runaway ->
// retention, every 5 minutes).
func (r *Registry) Start(ctx context.Context) {
	go r.run(ctx)
	r.logger.Info("execution registry cleanup daemon started", "interval", cleanupInterval)
}

// Stop signals the cleanup daemon to exit and waits for it to finish.
func (r *Registry) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *Registry) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runCleanup(ctx)
		}
	}
}

func (r *Registry) runCleanup(ctx context.Context) {
	timedOut, err := r.cleanupTimedOut(ctx)
	if err != nil {
		r.logger.Error("timed-out cleanup pass failed", "error", err)
	}

	runaway, err := r.cleanupRunaway(ctx)
	if err != nil {
		r.logger.Error("runaway cleanup pass failed", "error", err)
	}

	pruned, err := r.Prune(ctx, r.retention)
	if err != nil {
		r.logger.Error("retention cleanup pass failed", "error", err)
	}

	r.logger.Info("execution registry cleanup complete",
		"timed_out", timedOut, "runaway", runaway, "pruned", pruned)
}

// cleanupTimedOut marks running rows that have exceeded their command's
// configured timeout as failed (spec §4.5 pass 1).
func (r *Registry) cleanupTimedOut(ctx context.Context) (int, error) {
	running, err := r.db.ListRunningExecutions(ctx)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	count := 0
	for _, ex := range running {
		timeout, hasTimeout, err := r.timeoutLookup(ctx, ex.CommandName)
		if err != nil || !hasTimeout {
			continue
		}
		if now.Sub(ex.StartedAt) <= timeout {
			continue
		}
		minutes := int(timeout.Minutes())
		reason := fmt.Sprintf("Command timed out after %d minutes", minutes)
		if err := r.db.MarkExecutionFailed(ctx, ex.ID, reason, now); err != nil {
			r.logger.Error("failed to mark timed-out execution failed", "execution_id", ex.ID, "error", err)
			continue
		}
		count++
	}
	return count, nil
}

// cleanupRunaway marks running rows older than runawayBound whose command
// has no configured timeout as failed (spec §4.5 pass 2).
func (r *Registry) cleanupRunaway(ctx context.Context) (int, error) {
	running, err := r.db.ListRunningExecutions(ctx)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	count := 0
	for _, ex := range running {
		_, hasTimeout, err := r.timeoutLookup(ctx, ex.CommandName)
		if err != nil || hasTimeout {
			continue
		}
		if now.Sub(ex.StartedAt) <= runawayBound {
			continue
		}
		reason := "Command timed out after 2 hours (no timeout configured)"
		if err := r.db.MarkExecutionFailed(ctx, ex.ID, reason, now); err != nil {
			r.logger.Error("failed to mark runaway execution failed", "execution_id", ex.ID, "error", err)
			continue
		}
		count++
	}
	return count, nil
}

// ErrAlreadyRunning is re-exported for callers that only import registry.
var ErrAlreadyRunning = apierr.ErrAlreadyRunning
