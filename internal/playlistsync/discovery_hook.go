package playlistsync

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cmdarr/cmdarr/internal/capability"
	"github.com/cmdarr/cmdarr/internal/discovery"
)

// RunArtistDiscoveryHook implements spec §4.8's optional artist-discovery
// hook: for each unmatched track, resolve its artist via
// MetadataClient.FuzzySearchArtist, filter against manager state, and
// append survivors to the discovery artifact (reusing C7's writer and
// artifact shape).
func RunArtistDiscoveryHook(ctx context.Context, unmatched []UnmatchedTrack, meta capability.MetadataClient, manager capability.ManagerClient, writer capability.DiscoveryArtifactWriter, artifactPath string, minSimilarity float64, source string) error {
	artists, err := manager.ListArtists(ctx)
	if err != nil {
		return fmt.Errorf("listing managed artists: %w", err)
	}
	existingIdentifiers := make(map[string]struct{}, len(artists))
	existingNamesLower := make(map[string]struct{}, len(artists))
	for _, a := range artists {
		existingIdentifiers[a.Identifier] = struct{}{}
		existingNamesLower[strings.ToLower(a.Name)] = struct{}{}
	}
	exclusions, err := manager.ListExclusions(ctx)
	if err != nil {
		return fmt.Errorf("listing exclusions: %w", err)
	}

	seenArtists := make(map[string]struct{})
	var artifacts []discovery.Artifact
	for _, t := range unmatched {
		if t.Artist == "" {
			continue
		}
		if _, dup := seenArtists[t.Artist]; dup {
			continue
		}
		seenArtists[t.Artist] = struct{}{}

		if _, ok := existingNamesLower[strings.ToLower(t.Artist)]; ok {
			continue
		}

		match, err := meta.FuzzySearchArtist(ctx, t.Artist)
		if err != nil || match == nil || match.Similarity < minSimilarity {
			continue
		}
		if _, ok := existingIdentifiers[match.Identifier]; ok {
			continue
		}
		if _, ok := exclusions[match.Identifier]; ok {
			continue
		}

		artifacts = append(artifacts, discovery.Artifact{
			MusicBrainzID: match.Identifier,
			ArtistName:    match.CanonicalName,
			Source:        source,
		})
	}

	if len(artifacts) == 0 {
		return nil
	}

	merged := mergeArtifacts(readExistingArtifacts(artifactPath), artifacts)
	return writer.Write(ctx, artifactPath, merged)
}

// readExistingArtifacts loads whatever the discovery pipeline last wrote,
// treating a missing or unreadable file as empty: the hook's job is to
// append, not to block on a stale or absent artifact.
func readExistingArtifacts(path string) []discovery.Artifact {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var existing []discovery.Artifact
	if err := json.Unmarshal(data, &existing); err != nil {
		return nil
	}
	return existing
}

// mergeArtifacts appends fresh artifacts to existing ones, deduplicating
// by MusicBrainz id with existing entries taking precedence.
func mergeArtifacts(existing, fresh []discovery.Artifact) []discovery.Artifact {
	seen := make(map[string]struct{}, len(existing))
	merged := make([]discovery.Artifact, 0, len(existing)+len(fresh))
	for _, a := range existing {
		seen[a.MusicBrainzID] = struct{}{}
		merged = append(merged, a)
	}
	for _, a := range fresh {
		if _, ok := seen[a.MusicBrainzID]; ok {
			continue
		}
		seen[a.MusicBrainzID] = struct{}{}
		merged = append(merged, a)
	}
	return merged
}
