package discovery

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadLedgerMissingFileIsEmpty(t *testing.T) {
	l, err := LoadLedger(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	require.False(t, l.RecentlyQueried("mbid-1", time.Now(), 30*24*time.Hour))
}

func TestRecentlyQueriedRespectsCooldown(t *testing.T) {
	l, err := LoadLedger(filepath.Join(t.TempDir(), "ledger.json"))
	require.NoError(t, err)

	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	l.Record("mbid-1", now)

	require.True(t, l.RecentlyQueried("mbid-1", now.Add(10*24*time.Hour), 30*24*time.Hour))
	require.False(t, l.RecentlyQueried("mbid-1", now.Add(31*24*time.Hour), 30*24*time.Hour))
}

func TestSaveAndReloadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	l, err := LoadLedger(path)
	require.NoError(t, err)

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	l.Record("mbid-1", now)
	require.NoError(t, l.Save())

	reloaded, err := LoadLedger(path)
	require.NoError(t, err)
	require.True(t, reloaded.RecentlyQueried("mbid-1", now.Add(time.Minute), 24*time.Hour))
}

func TestPruneRemovesOlderThanCutoff(t *testing.T) {
	l, err := LoadLedger(filepath.Join(t.TempDir(), "ledger.json"))
	require.NoError(t, err)

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	l.Record("old-artist", old)
	l.Record("recent-artist", recent)

	removed := l.Prune(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.Equal(t, 1, removed)
	require.False(t, l.RecentlyQueried("old-artist", recent, 365*24*time.Hour))
	require.True(t, l.RecentlyQueried("recent-artist", recent, time.Hour))
}
