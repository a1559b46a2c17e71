package playlistsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cmdarr/cmdarr/internal/capability"
	"github.com/cmdarr/cmdarr/internal/librarycache"
)

type fakePlaylistTrackSource struct {
	tracks []capability.PlaylistTrack
}

func (f *fakePlaylistTrackSource) PlaylistInfo(ctx context.Context, url string) (capability.PlaylistInfo, error) {
	return capability.PlaylistInfo{}, nil
}
func (f *fakePlaylistTrackSource) PlaylistTracks(ctx context.Context, url string) ([]capability.PlaylistTrack, error) {
	return f.tracks, nil
}
func (f *fakePlaylistTrackSource) CuratedPlaylists(ctx context.Context, user string) (map[string]string, error) {
	return nil, nil
}
func (f *fakePlaylistTrackSource) Close() error { return nil }

func buildSnapshot() *librarycache.Snapshot {
	return librarycache.BuildSnapshot("plex:lib", []librarycache.Track{
		{ID: "1", TitleLC: "goodbye", ArtistLC: "emmure", AlbumLCTrunc50: "album a", UpdatedAt: time.Now()},
		{ID: "2", TitleLC: "hello", ArtistLC: "emmure", AlbumLCTrunc50: "album b", UpdatedAt: time.Now()},
	})
}

func TestSyncFullCreatesPlaylistWhenAbsent(t *testing.T) {
	target := newFakeMediaServer()
	source := &fakePlaylistTrackSource{tracks: []capability.PlaylistTrack{
		{Artist: "Emmure", Track: "Goodbye", Album: "Album A"},
	}}
	snap := buildSnapshot()

	result, err := SyncPlaylist(context.Background(), target, source, snap, librarycache.DefaultMatchingPolicy(), "[LB] Daily Mix", "url", ModeFull, true, false, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "synced", result.Action)
	require.Equal(t, 1, result.MatchedCount)
	require.NotEmpty(t, target.created)
}

func TestSyncFullSkipsWhenIDSetUnchanged(t *testing.T) {
	target := newFakeMediaServer()
	target.playlists["existing"] = capability.PlaylistRef{ID: "existing", Name: "[LB] Daily Mix", TrackCount: 1}
	target.tracks["existing"] = []string{"1"}

	source := &fakePlaylistTrackSource{tracks: []capability.PlaylistTrack{
		{Artist: "Emmure", Track: "Goodbye", Album: "Album A"},
	}}
	snap := buildSnapshot()

	result, err := SyncPlaylist(context.Background(), target, source, snap, librarycache.DefaultMatchingPolicy(), "[LB] Daily Mix", "url", ModeFull, true, false, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "skipped_existing", result.Action)
	require.Empty(t, target.deleted)
}

func TestSyncFullRecreatesWhenIDSetChanged(t *testing.T) {
	target := newFakeMediaServer()
	target.playlists["existing"] = capability.PlaylistRef{ID: "existing", Name: "[LB] Daily Mix", TrackCount: 1}
	target.tracks["existing"] = []string{"999"} // stale id, not in new match set

	source := &fakePlaylistTrackSource{tracks: []capability.PlaylistTrack{
		{Artist: "Emmure", Track: "Goodbye", Album: "Album A"},
	}}
	snap := buildSnapshot()

	result, err := SyncPlaylist(context.Background(), target, source, snap, librarycache.DefaultMatchingPolicy(), "[LB] Daily Mix", "url", ModeFull, true, false, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "synced", result.Action)
	require.Contains(t, target.deleted, "existing")
}

func TestSyncAdditiveOnlyAddsMissingIDs(t *testing.T) {
	target := newFakeMediaServer()
	target.playlists["existing"] = capability.PlaylistRef{ID: "existing", Name: "[LB] Daily Mix", TrackCount: 1}
	target.tracks["existing"] = []string{"1"}

	source := &fakePlaylistTrackSource{tracks: []capability.PlaylistTrack{
		{Artist: "Emmure", Track: "Goodbye", Album: "Album A"}, // resolves to id 1, already present
		{Artist: "Emmure", Track: "Hello", Album: "Album B"},   // resolves to id 2, new
	}}
	snap := buildSnapshot()

	result, err := SyncPlaylist(context.Background(), target, source, snap, librarycache.DefaultMatchingPolicy(), "[LB] Daily Mix", "url", ModeAdditive, true, false, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "synced", result.Action)
	require.Equal(t, []string{"2"}, target.added["existing"])
}

func TestSyncAdditivePrunesVanishedTracksWhenEnabled(t *testing.T) {
	target := newFakeMediaServer()
	target.playlists["existing"] = capability.PlaylistRef{ID: "existing", Name: "[LB] Daily Mix", TrackCount: 2}
	target.tracks["existing"] = []string{"1", "2"} // "2" no longer in the source playlist

	source := &fakePlaylistTrackSource{tracks: []capability.PlaylistTrack{
		{Artist: "Emmure", Track: "Goodbye", Album: "Album A"}, // resolves to id 1 only
	}}
	snap := buildSnapshot()

	result, err := SyncPlaylist(context.Background(), target, source, snap, librarycache.DefaultMatchingPolicy(), "[LB] Daily Mix", "url", ModeAdditive, true, true, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "synced", result.Action)
	require.Equal(t, []string{"1"}, target.tracks["existing"])
}

func TestSyncAdditiveDoesNotPruneByDefault(t *testing.T) {
	target := newFakeMediaServer()
	target.playlists["existing"] = capability.PlaylistRef{ID: "existing", Name: "[LB] Daily Mix", TrackCount: 2}
	target.tracks["existing"] = []string{"1", "2"}

	source := &fakePlaylistTrackSource{tracks: []capability.PlaylistTrack{
		{Artist: "Emmure", Track: "Goodbye", Album: "Album A"},
	}}
	snap := buildSnapshot()

	result, err := SyncPlaylist(context.Background(), target, source, snap, librarycache.DefaultMatchingPolicy(), "[LB] Daily Mix", "url", ModeAdditive, true, false, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "skipped_existing", result.Action)
	require.ElementsMatch(t, []string{"1", "2"}, target.tracks["existing"])
}

func TestSyncSkipsEmptyWhenCleanupEmptyTrue(t *testing.T) {
	target := newFakeMediaServer()
	source := &fakePlaylistTrackSource{tracks: []capability.PlaylistTrack{
		{Artist: "Unknown Artist", Track: "Unknown Track"},
	}}
	snap := buildSnapshot()

	result, err := SyncPlaylist(context.Background(), target, source, snap, librarycache.DefaultMatchingPolicy(), "[LB] Daily Mix", "url", ModeFull, true, false, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "skipped_empty", result.Action)
	require.Empty(t, target.created)
}
