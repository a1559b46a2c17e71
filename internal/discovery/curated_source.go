package discovery

import (
	"context"

	"github.com/cmdarr/cmdarr/internal/capability"
)

// CuratedSource is the curated-playlist discovery variant: artist names
// are pulled from a service's curated/editorial playlists rather than
// from per-artist similarity. Candidates carry no recommender match
// score (MatchScore is left at its zero value, which the pipeline's
// low-score filter treats as "not applicable").
type CuratedSource struct {
	name string
	user string
	src  capability.PlaylistSource
}

// NewCuratedSource constructs a CuratedSource. Candidates come back with
// only a name; the pipeline's own identifier-recovery step (via
// MetadataClient.FuzzySearchArtist) resolves them to identifiers.
func NewCuratedSource(name, user string, src capability.PlaylistSource) *CuratedSource {
	return &CuratedSource{name: name, user: user, src: src}
}

func (s *CuratedSource) Name() string { return s.name }

func (s *CuratedSource) Sample(ctx context.Context, ledger *Ledger, managedArtists []capability.ArtistRef) ([]Candidate, error) {
	playlists, err := s.src.CuratedPlaylists(ctx, s.user)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []Candidate
	for _, url := range playlists {
		tracks, err := s.src.PlaylistTracks(ctx, url)
		if err != nil {
			continue // one bad curated playlist must not abort the whole run
		}
		for _, track := range tracks {
			if track.Artist == "" {
				continue
			}
			if _, ok := seen[track.Artist]; ok {
				continue
			}
			seen[track.Artist] = struct{}{}
			out = append(out, Candidate{ArtistName: track.Artist, Source: s.name})
		}
	}
	return out, nil
}
