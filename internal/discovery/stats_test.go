package discovery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilteringStatsTableIncludesAllFields(t *testing.T) {
	s := FilteringStats{
		Total: 10, FilteredAlreadyInManager: 2, FilteredInExclusions: 1,
		FilteredLowScore: 1, MusicBrainzRecovered: 3, FinalCount: 5,
		LimitedCount: 2, RandomSamplingApplied: true,
	}
	table := s.Table()
	require.Contains(t, table, "total=10")
	require.Contains(t, table, "already_in_manager=2")
	require.Contains(t, table, "in_exclusions=1")
	require.Contains(t, table, "low_score=1")
	require.Contains(t, table, "recovered=3")
	require.Contains(t, table, "final=5")
	require.Contains(t, table, "limited=2")
	require.Contains(t, table, "sampled=true")
}
