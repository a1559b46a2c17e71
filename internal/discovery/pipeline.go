// Package discovery implements the Discovery Pipeline (spec §4.7, C7): a
// shared skeleton parameterized by a Source strategy (recommender-driven
// or curated-playlist-driven), producing a deduplicated JSON artifact of
// candidate artists. Grounded structurally on the teacher's command
// pattern of small, linear, single-purpose business-logic units (e.g.
// internal/business/publishing/discovery_cache.go names a similar
// "candidate discovery" shape, though for a different domain); the
// algorithm itself is fully prescribed by spec §4.7.
package discovery

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cmdarr/cmdarr/internal/capability"
)

// Candidate is one discovery result before/after enrichment.
type Candidate struct {
	Identifier string
	ArtistName string
	Source     string
	MatchScore float64 // 0..1, recommender-reported; 0 (not applicable) for curated sources
}

// Artifact is the JSON shape written to the discovery artifact file.
type Artifact struct {
	MusicBrainzID string `json:"MusicBrainzId"`
	ArtistName    string `json:"ArtistName"`
	Source        string `json:"source"`
}

// Source abstracts the two discovery variants behind one skeleton.
type Source interface {
	// Name identifies the source for logging/stats (e.g. "lastfm", "listenbrainz-curated").
	Name() string
	// Sample returns candidate artists for this run. The recommender
	// variant consults the ledger itself (it owns cooldown sampling); the
	// curated variant ignores the ledger argument.
	Sample(ctx context.Context, ledger *Ledger, managedArtists []capability.ArtistRef) ([]Candidate, error)
}

// Config tunes the shared skeleton (spec §4.7 defaults).
type Config struct {
	MinSimilarity float64 // identifier-recovery threshold, default 0.85
	MinMatchScore float64 // recommender match-score floor, default 0.9
	Limit         int     // random-sample-to-limit, default 5
	LedgerPath    string
	ArtifactPath  string
	CooldownDays  int // default 30
}

// DefaultConfig returns spec §4.7's stated defaults.
func DefaultConfig() Config {
	return Config{MinSimilarity: 0.85, MinMatchScore: 0.9, Limit: 5, CooldownDays: 30}
}

// Pipeline runs the discovery skeleton over a Source.
type Pipeline struct {
	manager  capability.ManagerClient
	metadata capability.MetadataClient
	failCache FailureCache
	writer   capability.DiscoveryArtifactWriter
	cfg      Config
}

// FailureCache is the narrow slice of internal/cache.Cache the pipeline
// needs for negative-caching identifier-recovery misses.
type FailureCache interface {
	IsFailed(ctx context.Context, fingerprint, source string) (reason string, failed bool, err error)
	MarkFailed(ctx context.Context, fingerprint, source, reason string, ttl time.Duration) error
}

// New constructs a Pipeline.
func New(manager capability.ManagerClient, metadata capability.MetadataClient, failCache FailureCache, writer capability.DiscoveryArtifactWriter, cfg Config) *Pipeline {
	return &Pipeline{manager: manager, metadata: metadata, failCache: failCache, writer: writer, cfg: cfg}
}

// Run executes the full skeleton (spec §4.7 steps 1-7) for src.
func (p *Pipeline) Run(ctx context.Context, src Source) (FilteringStats, error) {
	var stats FilteringStats

	artists, err := p.manager.ListArtists(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing managed artists: %w", err)
	}
	exclusions, err := p.manager.ListExclusions(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing exclusions: %w", err)
	}

	existingIdentifiers := make(map[string]struct{}, len(artists))
	existingNamesLower := make(map[string]struct{}, len(artists))
	for _, a := range artists {
		existingIdentifiers[a.Identifier] = struct{}{}
		existingNamesLower[strings.ToLower(a.Name)] = struct{}{}
	}

	ledger, err := LoadLedger(p.cfg.LedgerPath)
	if err != nil {
		return stats, fmt.Errorf("loading ledger: %w", err)
	}

	candidates, err := src.Sample(ctx, ledger, artists)
	if err != nil {
		return stats, fmt.Errorf("sampling candidates from %s: %w", src.Name(), err)
	}
	stats.Total = len(candidates)

	if err := ledger.Save(); err != nil {
		return stats, fmt.Errorf("saving ledger: %w", err)
	}

	candidates = p.recoverIdentifiers(ctx, candidates, &stats)
	candidates = p.filter(candidates, existingIdentifiers, existingNamesLower, exclusions, &stats)
	candidates = dedupeByIdentifier(candidates)
	candidates, stats.LimitedCount, stats.RandomSamplingApplied = randomSampleToLimit(candidates, p.cfg.Limit)
	stats.FinalCount = len(candidates)

	artifacts := make([]Artifact, 0, len(candidates))
	for _, c := range candidates {
		artifacts = append(artifacts, Artifact{MusicBrainzID: c.Identifier, ArtistName: c.ArtistName, Source: c.Source})
	}
	if err := p.writer.Write(ctx, p.cfg.ArtifactPath, artifacts); err != nil {
		return stats, fmt.Errorf("writing discovery artifact: %w", err)
	}

	return stats, nil
}

// recoverIdentifiers resolves candidates missing an Identifier via
// MetadataClient.FuzzySearchArtist, negative-caching misses (spec §4.7
// step 3).
func (p *Pipeline) recoverIdentifiers(ctx context.Context, candidates []Candidate, stats *FilteringStats) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Identifier != "" {
			out = append(out, c)
			continue
		}

		fingerprint := "fuzzysearch:" + strings.ToLower(c.ArtistName)
		if _, failed, _ := p.failCache.IsFailed(ctx, fingerprint, "musicbrainz"); failed {
			continue
		}

		match, err := p.metadata.FuzzySearchArtist(ctx, c.ArtistName)
		if err != nil || match == nil || match.Similarity < p.cfg.MinSimilarity {
			_ = p.failCache.MarkFailed(ctx, fingerprint, "musicbrainz", "no confident identifier match", 24*time.Hour)
			continue
		}

		c.Identifier = match.Identifier
		stats.MusicBrainzRecovered++
		out = append(out, c)
	}
	return out
}

// filter applies spec §4.7 step 4's exclusion and match-score rules.
func (p *Pipeline) filter(candidates []Candidate, existingIdentifiers, existingNamesLower map[string]struct{}, exclusions map[string]struct{}, stats *FilteringStats) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := existingIdentifiers[c.Identifier]; ok {
			stats.FilteredAlreadyInManager++
			continue
		}
		if _, ok := existingNamesLower[strings.ToLower(c.ArtistName)]; ok {
			stats.FilteredAlreadyInManager++
			continue
		}
		if _, ok := exclusions[c.Identifier]; ok {
			stats.FilteredInExclusions++
			continue
		}
		if c.MatchScore > 0 && c.MatchScore < p.cfg.MinMatchScore {
			stats.FilteredLowScore++
			continue
		}
		out = append(out, c)
	}
	return out
}

// dedupeByIdentifier keeps, per identifier, the candidate with the
// highest recommender score (spec §4.7 step 5).
func dedupeByIdentifier(candidates []Candidate) []Candidate {
	best := make(map[string]Candidate, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		prior, ok := best[c.Identifier]
		if !ok {
			order = append(order, c.Identifier)
			best[c.Identifier] = c
			continue
		}
		if c.MatchScore > prior.MatchScore {
			best[c.Identifier] = c
		}
	}
	out := make([]Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}

// randomSampleToLimit implements spec §4.7 step 6: random-sample down to
// limit for intentional variety, rather than a deterministic top-N cut.
func randomSampleToLimit(candidates []Candidate, limit int) ([]Candidate, int, bool) {
	if limit <= 0 || len(candidates) <= limit {
		return candidates, 0, false
	}
	shuffled := make([]Candidate, len(candidates))
	copy(shuffled, candidates)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	limited := len(shuffled) - limit
	return shuffled[:limit], limited, true
}
