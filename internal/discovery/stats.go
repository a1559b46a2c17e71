package discovery

import "fmt"

// FilteringStats accumulates the discovery pipeline's per-run bookkeeping
// (spec §4.7), logged in a fixed tabular format and stored on the
// execution's output summary.
type FilteringStats struct {
	Total                    int  `json:"total"`
	FilteredAlreadyInManager int  `json:"filtered_already_in_manager"`
	FilteredInExclusions     int  `json:"filtered_in_exclusions"`
	FilteredLowScore         int  `json:"filtered_low_score"`
	MusicBrainzRecovered     int  `json:"musicbrainz_recovered"`
	FinalCount               int  `json:"final_count"`
	LimitedCount             int  `json:"limited_count"`
	RandomSamplingApplied    bool `json:"random_sampling_applied"`
}

// Table renders the fixed tabular log format.
func (s FilteringStats) Table() string {
	return fmt.Sprintf(
		"total=%d already_in_manager=%d in_exclusions=%d low_score=%d recovered=%d final=%d limited=%d sampled=%v",
		s.Total, s.FilteredAlreadyInManager, s.FilteredInExclusions, s.FilteredLowScore,
		s.MusicBrainzRecovered, s.FinalCount, s.LimitedCount, s.RandomSamplingApplied,
	)
}
