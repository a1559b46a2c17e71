package playlistsync

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"github.com/cmdarr/cmdarr/internal/capability"
)

// dateSuffix matches a trailing ISO-ish date embedded in a curated
// playlist name, e.g. "Daily Mix 2026-07-29" or "Weekly Jams 2026-07-27".
var dateSuffix = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*$`)

// KindRule groups playlists by a name prefix ("kind", e.g. daily /
// weekly-jams / weekly-exploration) and how many to retain.
type KindRule struct {
	Kind      string
	Prefix    string
	KeepCount int
}

// PruneRetention runs after a successful curated-playlist sync: for each
// kind, sort by embedded date descending and delete everything beyond
// KeepCount (spec §4.8 retention pruning).
func PruneRetention(ctx context.Context, target capability.MediaServerClient, rules []KindRule, logger *slog.Logger) (deleted int, err error) {
	for _, rule := range rules {
		playlists, err := target.ListPlaylists(ctx, rule.Prefix)
		if err != nil {
			return deleted, fmt.Errorf("listing playlists for retention kind %q: %w", rule.Kind, err)
		}

		dated := make([]datedPlaylist, 0, len(playlists))
		for _, p := range playlists {
			m := dateSuffix.FindStringSubmatch(p.Name)
			if m == nil {
				continue // no embedded date: not subject to retention
			}
			at, err := time.Parse("2006-01-02", m[1])
			if err != nil {
				continue
			}
			dated = append(dated, datedPlaylist{PlaylistRef: p, at: at})
		}

		sort.Slice(dated, func(i, j int) bool { return dated[i].at.After(dated[j].at) })

		for i, p := range dated {
			if i < rule.KeepCount {
				continue
			}
			if err := target.DeletePlaylist(ctx, p.ID); err != nil {
				return deleted, fmt.Errorf("pruning playlist %q (kind %q): %w", p.Name, rule.Kind, err)
			}
			logger.Info("pruned retained playlist beyond keep count", "kind", rule.Kind, "name", p.Name, "keep_count", rule.KeepCount)
			deleted++
		}
	}
	return deleted, nil
}

type datedPlaylist struct {
	capability.PlaylistRef
	at time.Time
}
