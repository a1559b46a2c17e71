package playlistsync

import (
	"log/slog"

	"github.com/cmdarr/cmdarr/internal/capability"
	"github.com/cmdarr/cmdarr/internal/librarycache"
)

// UnmatchedTrack retains the original strings for the artist-discovery
// hook and for miss logging.
type UnmatchedTrack struct {
	Artist string
	Album  string
	Track  string
}

// ResolveTracks resolves each source track to a target track id via the
// library cache's matcher (spec §4.8 sync step 2). Misses are logged
// with both the original and normalised form.
func ResolveTracks(snap *librarycache.Snapshot, policy librarycache.MatchingPolicy, tracks []capability.PlaylistTrack, logger *slog.Logger) (matchedIDs []string, unmatched []UnmatchedTrack) {
	seen := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		m, ok := snap.Lookup(policy, t.Track, t.Artist, t.Album)
		if !ok {
			logger.Info("playlist track unmatched",
				"artist", t.Artist, "artist_normalised", librarycache.Normalize(t.Artist),
				"track", t.Track, "track_normalised", librarycache.Normalize(t.Track),
				"album", t.Album)
			unmatched = append(unmatched, UnmatchedTrack{Artist: t.Artist, Album: t.Album, Track: t.Track})
			continue
		}
		if _, dup := seen[m.TrackID]; dup {
			continue
		}
		seen[m.TrackID] = struct{}{}
		matchedIDs = append(matchedIDs, m.TrackID)
	}
	return matchedIDs, unmatched
}
