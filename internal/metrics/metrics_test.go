package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordCacheOutcomeIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(CacheRequestsTotal.WithLabelValues("lastfm", "hit"))
	RecordCacheOutcome("lastfm", "hit")
	after := testutil.ToFloat64(CacheRequestsTotal.WithLabelValues("lastfm", "hit"))
	require.Equal(t, before+1, after)
}

func TestRecordExecutionRecordsOutcomeAndDuration(t *testing.T) {
	beforeSuccess := testutil.ToFloat64(CommandExecutionsTotal.WithLabelValues("discovery_lastfm", "success"))
	RecordExecution("discovery_lastfm", true, 12.5)
	afterSuccess := testutil.ToFloat64(CommandExecutionsTotal.WithLabelValues("discovery_lastfm", "success"))
	require.Equal(t, beforeSuccess+1, afterSuccess)

	beforeFailure := testutil.ToFloat64(CommandExecutionsTotal.WithLabelValues("discovery_lastfm", "failure"))
	RecordExecution("discovery_lastfm", false, 3.2)
	afterFailure := testutil.ToFloat64(CommandExecutionsTotal.WithLabelValues("discovery_lastfm", "failure"))
	require.Equal(t, beforeFailure+1, afterFailure)
}

func TestSetRunningReflectsLatestValue(t *testing.T) {
	SetRunning(3)
	require.Equal(t, float64(3), testutil.ToFloat64(CommandsRunningGauge))
	SetRunning(0)
	require.Equal(t, float64(0), testutil.ToFloat64(CommandsRunningGauge))
}

func TestRecordDiscoveryFilteredSkipsZeroCounts(t *testing.T) {
	before := testutil.ToFloat64(DiscoveryFilteredTotal.WithLabelValues("lastfm", "low_score"))
	RecordDiscoveryFiltered("lastfm", "low_score", 0)
	after := testutil.ToFloat64(DiscoveryFilteredTotal.WithLabelValues("lastfm", "low_score"))
	require.Equal(t, before, after)

	RecordDiscoveryFiltered("lastfm", "low_score", 4)
	require.Equal(t, before+4, testutil.ToFloat64(DiscoveryFilteredTotal.WithLabelValues("lastfm", "low_score")))
}
