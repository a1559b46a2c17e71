package discovery

import (
	"context"
	"time"

	"github.com/cmdarr/cmdarr/internal/capability"
)

// RecommenderSource is the similar-artist discovery variant (e.g.
// discovery_lastfm, discovery_listenbrainz): for each managed artist not
// in cooldown, ask the recommender for similar artists and fold both
// accepted (identifier already resolved) and rejected (identifier
// missing, recovered later via MetadataClient) candidates into the
// sample.
type RecommenderSource struct {
	name        string
	client      capability.RecommenderClient
	perArtist   int           // GetSimilar's limit argument, e.g. 10
	cooldown    time.Duration // default 30 days, per spec §4.7
	now         func() time.Time
}

// NewRecommenderSource constructs a RecommenderSource. now defaults to
// time.Now when nil.
func NewRecommenderSource(name string, client capability.RecommenderClient, perArtist int, cooldown time.Duration, now func() time.Time) *RecommenderSource {
	if now == nil {
		now = time.Now
	}
	return &RecommenderSource{name: name, client: client, perArtist: perArtist, cooldown: cooldown, now: now}
}

func (s *RecommenderSource) Name() string { return s.name }

func (s *RecommenderSource) Sample(ctx context.Context, ledger *Ledger, managedArtists []capability.ArtistRef) ([]Candidate, error) {
	var out []Candidate
	queriedAt := s.now()

	for _, artist := range managedArtists {
		if ledger.RecentlyQueried(artist.Identifier, queriedAt, s.cooldown) {
			continue
		}

		accepted, rejected, err := s.client.GetSimilar(ctx, artist.Identifier, artist.Name, s.perArtist)
		if err != nil {
			continue // one artist's recommender failure must not abort the whole run
		}
		ledger.Record(artist.Identifier, queriedAt)

		for _, sim := range accepted {
			out = append(out, Candidate{Identifier: sim.Identifier, ArtistName: sim.Name, Source: s.name, MatchScore: sim.MatchScore})
		}
		for _, sim := range rejected {
			out = append(out, Candidate{ArtistName: sim.Name, Source: s.name, MatchScore: sim.MatchScore})
		}
	}

	return out, nil
}
