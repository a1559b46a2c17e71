package playlistsync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmdarr/cmdarr/internal/capability"
	"github.com/cmdarr/cmdarr/internal/librarycache"
)

// Mode is the per-source sync mode (spec §4.8 steps 4-5).
type Mode string

const (
	ModeFull     Mode = "full"
	ModeAdditive Mode = "additive"
)

// Result reports the outcome of one SyncPlaylist call.
type Result struct {
	Action         string // synced, skipped_existing, skipped_empty
	PlaylistID     string
	MatchedCount   int
	UnmatchedCount int
	Unmatched      []UnmatchedTrack
}

// SyncPlaylist runs spec §4.8's sync-for-each-source-playlist algorithm:
// resolve tracks, then reconcile the target playlist per mode.
// pruneAdditive extends additive mode to also remove target tracks that
// vanished from the source (spec §9 Open Question; default false leaves
// additive mode's historical never-delete behaviour unchanged).
func SyncPlaylist(ctx context.Context, target capability.MediaServerClient, source capability.PlaylistSource, snap *librarycache.Snapshot, policy librarycache.MatchingPolicy, name, url string, mode Mode, cleanupEmpty, pruneAdditive bool, logger *slog.Logger) (Result, error) {
	tracks, err := source.PlaylistTracks(ctx, url)
	if err != nil {
		return Result{}, fmt.Errorf("fetching source playlist tracks for %q: %w", name, err)
	}

	matchedIDs, unmatched := ResolveTracks(snap, policy, tracks, logger)
	if len(matchedIDs) == 0 && cleanupEmpty {
		return Result{Action: "skipped_empty", UnmatchedCount: len(unmatched), Unmatched: unmatched}, nil
	}

	existing, err := target.FindPlaylistByName(ctx, name)
	if err != nil {
		return Result{}, fmt.Errorf("finding existing playlist %q: %w", name, err)
	}

	var result Result
	switch mode {
	case ModeFull:
		result, err = syncFull(ctx, target, name, matchedIDs, existing)
	case ModeAdditive:
		result, err = syncAdditive(ctx, target, name, matchedIDs, existing, pruneAdditive)
	default:
		return Result{}, fmt.Errorf("unknown sync mode %q", mode)
	}
	if err != nil {
		return Result{}, err
	}
	result.MatchedCount = len(matchedIDs)
	result.UnmatchedCount = len(unmatched)
	result.Unmatched = unmatched
	return result, nil
}

func syncFull(ctx context.Context, target capability.MediaServerClient, name string, matchedIDs []string, existing *capability.PlaylistRef) (Result, error) {
	if existing != nil {
		existingIDs, err := target.GetPlaylistTracks(ctx, existing.ID)
		if err != nil {
			return Result{}, fmt.Errorf("fetching existing playlist tracks for %q: %w", name, err)
		}
		if sameIDSet(existingIDs, matchedIDs) {
			return Result{Action: "skipped_existing", PlaylistID: existing.ID}, nil
		}
		if err := target.DeletePlaylist(ctx, existing.ID); err != nil {
			return Result{}, fmt.Errorf("deleting stale playlist %q: %w", name, err)
		}
	}

	ref, err := createHybrid(ctx, target, name, matchedIDs)
	if err != nil {
		return Result{}, err
	}
	return Result{Action: "synced", PlaylistID: ref.ID}, nil
}

func syncAdditive(ctx context.Context, target capability.MediaServerClient, name string, matchedIDs []string, existing *capability.PlaylistRef, pruneAdditive bool) (Result, error) {
	if existing == nil {
		ref, err := createHybrid(ctx, target, name, matchedIDs)
		if err != nil {
			return Result{}, err
		}
		return Result{Action: "synced", PlaylistID: ref.ID}, nil
	}

	existingIDs, err := target.GetPlaylistTracks(ctx, existing.ID)
	if err != nil {
		return Result{}, fmt.Errorf("fetching existing playlist tracks for %q: %w", name, err)
	}
	have := make(map[string]struct{}, len(existingIDs))
	for _, id := range existingIDs {
		have[id] = struct{}{}
	}
	want := make(map[string]struct{}, len(matchedIDs))
	for _, id := range matchedIDs {
		want[id] = struct{}{}
	}

	var toAdd []string
	for _, id := range matchedIDs {
		if _, ok := have[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	var toRemove []string
	if pruneAdditive {
		for _, id := range existingIDs {
			if _, ok := want[id]; !ok {
				toRemove = append(toRemove, id)
			}
		}
	}

	if len(toAdd) == 0 && len(toRemove) == 0 {
		return Result{Action: "skipped_existing", PlaylistID: existing.ID}, nil
	}
	if len(toAdd) > 0 {
		if err := target.AddTracks(ctx, existing.ID, toAdd); err != nil {
			return Result{}, fmt.Errorf("adding tracks to playlist %q: %w", name, err)
		}
	}
	if len(toRemove) > 0 {
		if err := target.RemoveTracks(ctx, existing.ID, toRemove); err != nil {
			return Result{}, fmt.Errorf("pruning vanished tracks from playlist %q: %w", name, err)
		}
	}
	return Result{Action: "synced", PlaylistID: existing.ID}, nil
}

// createHybrid creates a playlist with the first id, then adds the
// remainder one at a time: some targets reject batch adds (spec §4.8
// sync step 4).
func createHybrid(ctx context.Context, target capability.MediaServerClient, name string, ids []string) (*capability.PlaylistRef, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("cannot create playlist %q with zero matched tracks", name)
	}
	ref, err := target.CreatePlaylist(ctx, name, ids[:1], "")
	if err != nil {
		return nil, fmt.Errorf("creating playlist %q: %w", name, err)
	}
	for _, id := range ids[1:] {
		if err := target.AddTracks(ctx, ref.ID, []string{id}); err != nil {
			return nil, fmt.Errorf("adding track %s to playlist %q: %w", id, name, err)
		}
	}
	return ref, nil
}

func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
