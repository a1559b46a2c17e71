// Package playlistsync implements the Playlist Sync Pipeline (spec §4.8,
// C8): pre-sync validation, per-source full/additive sync via the
// library cache's track matcher, retention pruning, and an optional
// artist-discovery hook sharing the discovery pipeline's artifact
// writer. Grounded on the teacher's idempotent-upsert CRUD helpers
// (internal/storage's dedup-then-write pattern) generalized to a remote
// playlist target instead of a local table.
package playlistsync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmdarr/cmdarr/internal/capability"
)

// PreSyncValidate enforces the invariant that the same playlist title
// never exists more than once on the target, and that no empty
// playlist survives (spec §4.8 pre-sync validation steps 1-3).
func PreSyncValidate(ctx context.Context, target capability.MediaServerClient, prefix string, logger *slog.Logger) (deleted int, err error) {
	playlists, err := target.ListPlaylists(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("listing playlists with prefix %q: %w", prefix, err)
	}

	byName := make(map[string][]capability.PlaylistRef)
	for _, p := range playlists {
		byName[p.Name] = append(byName[p.Name], p)
	}

	for name, group := range byName {
		if len(group) > 1 {
			keep := group[0]
			for _, p := range group[1:] {
				if p.TrackCount > keep.TrackCount {
					keep = p
				}
			}
			for _, p := range group {
				if p.ID == keep.ID {
					continue
				}
				if err := target.DeletePlaylist(ctx, p.ID); err != nil {
					return deleted, fmt.Errorf("deleting duplicate playlist %q (%s): %w", name, p.ID, err)
				}
				logger.Info("deleted duplicate playlist", "name", name, "kept_id", keep.ID, "deleted_id", p.ID)
				deleted++
			}
		}
	}

	// Re-list: the dedup pass above may have already removed the only
	// empty member of a group, so recompute survivors before pruning.
	survivors, err := target.ListPlaylists(ctx, prefix)
	if err != nil {
		return deleted, fmt.Errorf("re-listing playlists with prefix %q: %w", prefix, err)
	}
	for _, p := range survivors {
		if p.TrackCount == 0 {
			if err := target.DeletePlaylist(ctx, p.ID); err != nil {
				return deleted, fmt.Errorf("deleting empty playlist %q (%s): %w", p.Name, p.ID, err)
			}
			logger.Info("deleted empty playlist", "name", p.Name, "id", p.ID)
			deleted++
		}
	}

	return deleted, nil
}
