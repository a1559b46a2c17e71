// Package scheduler implements the Scheduler (spec §4.6, C6): a per-second
// tick loop that fires CommandConfigs according to a cron expression or an
// interval-hours fallback, gated by a counted concurrency semaphore, with
// per-command timeout enforcement and cooperative cancellation on Stop.
// Grounded on the teacher's ticker/stopCh/doneCh worker lifecycle
// (internal/business/silencing/gc_worker.go, sync_worker.go), generalized
// from one fixed-interval task to many independently-scheduled commands.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cmdarr/cmdarr/internal/apierr"
	"github.com/cmdarr/cmdarr/internal/logging"
	"github.com/cmdarr/cmdarr/internal/registry"
	"github.com/cmdarr/cmdarr/internal/store"
)

const (
	tickInterval       = time.Second
	defaultMaxParallel = 3
	defaultGrace       = 30 * time.Second
)

// CommandFunc is a scheduled command's body. It returns (success, a JSON
// summary, error); the scheduler wraps the call with the command's
// configured timeout, if any.
type CommandFunc func(ctx context.Context) (success bool, summary []byte, err error)

// CommandState is a command's observable run state for CommandStatuses.
type CommandState string

const (
	StateDisabled    CommandState = "disabled"
	StateIdle        CommandState = "idle"
	StateDispatching CommandState = "dispatching"
	StateRunning     CommandState = "running"
	StateCompleting  CommandState = "completing"
)

type registeredCommand struct {
	config store.CommandConfigRow
	cron   *CronExpr
	fn     CommandFunc

	mu    sync.Mutex
	state CommandState
}

// Scheduler is the command dispatcher (C6).
type Scheduler struct {
	db       store.Store
	registry *registry.Registry
	logger   *slog.Logger

	sem          *semaphore.Weighted
	shutdownGrace time.Duration

	mu       sync.RWMutex
	commands map[string]*registeredCommand

	cancel context.CancelFunc
	stopCh chan struct{}
	doneCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Scheduler. maxParallel <= 0 uses the spec default of 3.
func New(db store.Store, reg *registry.Registry, maxParallel int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	return &Scheduler{
		db:            db,
		registry:      reg,
		logger:        logger,
		sem:           semaphore.NewWeighted(int64(maxParallel)),
		shutdownGrace: defaultGrace,
		commands:      make(map[string]*registeredCommand),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Register adds a command implementation under its persisted CommandConfig.
// Disabled commands are registered but never dispatched.
func (s *Scheduler) Register(cfg store.CommandConfigRow, fn CommandFunc) error {
	rc := &registeredCommand{config: cfg, fn: fn, state: StateIdle}
	if !cfg.Enabled {
		rc.state = StateDisabled
	}
	if cfg.CronExpr != "" {
		cron, err := ParseCron(cfg.CronExpr)
		if err != nil {
			return fmt.Errorf("registering command %s: %w", cfg.Name, err)
		}
		rc.cron = cron
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[cfg.Name] = rc
	return nil
}

// Start begins the tick loop in the background.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(ctx)
	s.logger.Info("scheduler started", "tick_interval", tickInterval)
}

// Stop cancels every running command and waits up to shutdown_grace for
// them to finish before returning.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.shutdownGrace):
		s.logger.Warn("scheduler shutdown grace period elapsed, returning with commands still running")
	}
	<-s.doneCh
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case tick := <-ticker.C:
			s.dispatchDue(ctx, tick)
		}
	}
}

func (s *Scheduler) dispatchDue(ctx context.Context, now time.Time) {
	s.mu.RLock()
	due := make([]*registeredCommand, 0, len(s.commands))
	for _, rc := range s.commands {
		if s.isDue(rc, now) {
			due = append(due, rc)
		}
	}
	s.mu.RUnlock()

	for _, rc := range due {
		s.dispatch(ctx, rc)
	}
}

// isDue fires a command at most once per minute: cron fields are
// minute-granular, and interval-hours commands compare against last_run.
func (s *Scheduler) isDue(rc *registeredCommand, now time.Time) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.state == StateDisabled || !rc.config.Enabled {
		return false
	}
	if rc.state != StateIdle {
		return false
	}

	if rc.cron != nil {
		return rc.cron.Matches(now)
	}
	if rc.config.IntervalHours <= 0 {
		return false
	}
	if rc.config.LastRun == nil {
		return true
	}
	return now.Sub(*rc.config.LastRun) >= time.Duration(rc.config.IntervalHours*float64(time.Hour))
}

func (s *Scheduler) dispatch(ctx context.Context, rc *registeredCommand) {
	rc.mu.Lock()
	rc.state = StateDispatching
	rc.mu.Unlock()

	if !s.sem.TryAcquire(1) {
		s.logger.Debug("concurrency cap reached, deferring to next tick", "command", rc.config.Name)
		rc.mu.Lock()
		rc.state = StateIdle
		rc.mu.Unlock()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)
		s.runCommand(ctx, rc, store.TriggeredScheduler)
	}()
}

// TriggerNow dispatches a command immediately, outside its schedule.
func (s *Scheduler) TriggerNow(ctx context.Context, commandName string) error {
	s.mu.RLock()
	rc, ok := s.commands[commandName]
	s.mu.RUnlock()
	if !ok {
		return apierr.New(apierr.CodeNotFound, fmt.Sprintf("unknown command %q", commandName))
	}

	rc.mu.Lock()
	if rc.state != StateIdle && rc.state != StateDisabled {
		rc.mu.Unlock()
		return apierr.ErrAlreadyRunning
	}
	rc.state = StateDispatching
	rc.mu.Unlock()

	if !s.sem.TryAcquire(1) {
		rc.mu.Lock()
		rc.state = StateIdle
		rc.mu.Unlock()
		return apierr.New(apierr.CodeServiceUnavailable, "concurrency cap reached, try again shortly")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)
		s.runCommand(ctx, rc, store.TriggeredManual)
	}()
	return nil
}

func (s *Scheduler) runCommand(ctx context.Context, rc *registeredCommand, triggeredBy store.TriggeredBy) {
	name := rc.config.Name

	execCtx := ctx
	var cancel context.CancelFunc
	if rc.config.TimeoutMinutes > 0 {
		execCtx, cancel = context.WithTimeout(ctx, time.Duration(rc.config.TimeoutMinutes)*time.Minute)
		defer cancel()
	}

	id, err := s.registry.Begin(execCtx, name, triggeredBy)
	if err != nil {
		rc.mu.Lock()
		rc.state = StateIdle
		rc.mu.Unlock()
		s.logger.Debug("dispatch refused, command already running", "command", name)
		return
	}

	rc.mu.Lock()
	rc.state = StateRunning
	rc.mu.Unlock()

	// Records logged with execCtx carry the [EXEC:<id>] tag the log fanout filters on.
	execCtx = logging.WithExecutionID(execCtx, fmt.Sprintf("%d", id))

	startedAt := time.Now()
	success, summary, runErr := rc.fn(execCtx)
	duration := time.Since(startedAt)

	if rc.config.TimeoutMinutes > 0 && errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		success = false
		runErr = fmt.Errorf("Command timed out after %d minutes", rc.config.TimeoutMinutes)
	}

	rc.mu.Lock()
	rc.state = StateCompleting
	rc.mu.Unlock()

	if completeErr := s.registry.Complete(context.Background(), id, success, summary, runErr); completeErr != nil {
		s.logger.Error("failed to record command completion", "command", name, "execution_id", id, "error", completeErr)
	}

	now := time.Now().UTC()
	rc.mu.Lock()
	rc.config.LastRun = &now
	rc.config.LastSuccess = &success
	rc.state = StateIdle
	rc.mu.Unlock()

	if updateErr := s.db.UpdateCommandRunStats(context.Background(), name, now, success, duration.Seconds(), errString(runErr)); updateErr != nil {
		s.logger.Error("failed to update command run stats", "command", name, "error", updateErr)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// CommandStatuses reports each registered command's current state.
func (s *Scheduler) CommandStatuses() map[string]CommandState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]CommandState, len(s.commands))
	for name, rc := range s.commands {
		rc.mu.Lock()
		out[name] = rc.state
		rc.mu.Unlock()
	}
	return out
}
