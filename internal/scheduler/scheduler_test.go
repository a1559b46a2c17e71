package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cmdarr/cmdarr/internal/registry"
	"github.com/cmdarr/cmdarr/internal/store"
)

func newTestScheduler(t *testing.T, maxParallel int) (*Scheduler, store.Store) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(context.Background(), "lite", dir+"/test.db", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	timeoutLookup := func(ctx context.Context, commandName string) (time.Duration, bool, error) {
		return 0, false, nil
	}
	reg := registry.New(db, timeoutLookup, nil)
	return New(db, reg, maxParallel, nil), db
}

func TestTriggerNowRunsImmediately(t *testing.T) {
	sched, db := newTestScheduler(t, 2)
	ctx := context.Background()

	require.NoError(t, db.UpsertCommandConfigIfAbsent(ctx, store.CommandConfigRow{Name: "cmd", Enabled: true}))
	cfg, err := db.GetCommandConfig(ctx, "cmd")
	require.NoError(t, err)

	ran := make(chan struct{})
	require.NoError(t, sched.Register(*cfg, func(ctx context.Context) (bool, []byte, error) {
		close(ran)
		return true, nil, nil
	}))

	require.NoError(t, sched.TriggerNow(ctx, "cmd"))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("command did not run")
	}
}

func TestTriggerNowRefusesUnknownCommand(t *testing.T) {
	sched, _ := newTestScheduler(t, 2)
	err := sched.TriggerNow(context.Background(), "does-not-exist")
	require.Error(t, err)
}

func TestTriggerNowRefusesWhileRunning(t *testing.T) {
	sched, db := newTestScheduler(t, 2)
	ctx := context.Background()

	require.NoError(t, db.UpsertCommandConfigIfAbsent(ctx, store.CommandConfigRow{Name: "cmd", Enabled: true}))
	cfg, err := db.GetCommandConfig(ctx, "cmd")
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, sched.Register(*cfg, func(ctx context.Context) (bool, []byte, error) {
		close(started)
		<-release
		return true, nil, nil
	}))

	require.NoError(t, sched.TriggerNow(ctx, "cmd"))
	<-started

	err = sched.TriggerNow(ctx, "cmd")
	require.Error(t, err)

	close(release)
}

func TestCronExprMatchesEveryMinuteDispatches(t *testing.T) {
	sched, db := newTestScheduler(t, 2)
	ctx := context.Background()

	require.NoError(t, db.UpsertCommandConfigIfAbsent(ctx, store.CommandConfigRow{
		Name: "cmd", Enabled: true, CronExpr: "* * * * *",
	}))
	cfg, err := db.GetCommandConfig(ctx, "cmd")
	require.NoError(t, err)

	ran := make(chan struct{})
	require.NoError(t, sched.Register(*cfg, func(ctx context.Context) (bool, []byte, error) {
		close(ran)
		return true, nil, nil
	}))

	sched.dispatchDue(ctx, time.Now())

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("command did not dispatch on matching tick")
	}
}

func TestConcurrencyCapDefersDispatch(t *testing.T) {
	sched, db := newTestScheduler(t, 1)
	ctx := context.Background()

	require.NoError(t, db.UpsertCommandConfigIfAbsent(ctx, store.CommandConfigRow{Name: "slow", Enabled: true}))
	require.NoError(t, db.UpsertCommandConfigIfAbsent(ctx, store.CommandConfigRow{Name: "fast", Enabled: true}))
	slowCfg, _ := db.GetCommandConfig(ctx, "slow")
	fastCfg, _ := db.GetCommandConfig(ctx, "fast")

	release := make(chan struct{})
	require.NoError(t, sched.Register(*slowCfg, func(ctx context.Context) (bool, []byte, error) {
		<-release
		return true, nil, nil
	}))
	fastRan := make(chan struct{})
	require.NoError(t, sched.Register(*fastCfg, func(ctx context.Context) (bool, []byte, error) {
		close(fastRan)
		return true, nil, nil
	}))

	require.NoError(t, sched.TriggerNow(ctx, "slow"))
	time.Sleep(50 * time.Millisecond) // let slow acquire the only semaphore slot

	err := sched.TriggerNow(ctx, "fast")
	require.Error(t, err, "fast should fail to acquire the saturated semaphore via TriggerNow")

	close(release)
}
