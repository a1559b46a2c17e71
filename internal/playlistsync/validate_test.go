package playlistsync

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmdarr/cmdarr/internal/capability"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeMediaServer struct {
	playlists map[string]capability.PlaylistRef // id -> ref
	tracks    map[string][]string               // id -> track ids
	deleted   []string
	created   []capability.PlaylistRef
	added     map[string][]string // id -> ids added (in call order, one AddTracks call per slice)
}

func newFakeMediaServer() *fakeMediaServer {
	return &fakeMediaServer{
		playlists: map[string]capability.PlaylistRef{},
		tracks:    map[string][]string{},
		added:     map[string][]string{},
	}
}

func (f *fakeMediaServer) BuildLibraryCache(ctx context.Context, libraryKey string) (capability.Catalogue, error) {
	return nil, nil
}
func (f *fakeMediaServer) IncrementalTracks(ctx context.Context, libraryKey string, since int64) (capability.Catalogue, error) {
	return nil, nil
}
func (f *fakeMediaServer) VerifyTrackExists(ctx context.Context, libraryKey string, ids []string) (map[string]bool, error) {
	return nil, nil
}
func (f *fakeMediaServer) CacheKey() (string, string) { return "fake", "lib" }

func (f *fakeMediaServer) ListPlaylists(ctx context.Context, prefix string) ([]capability.PlaylistRef, error) {
	var out []capability.PlaylistRef
	for _, p := range f.playlists {
		if len(prefix) == 0 || (len(p.Name) >= len(prefix) && p.Name[:len(prefix)] == prefix) {
			out = append(out, p)
		}
	}
	return out, nil
}
func (f *fakeMediaServer) FindPlaylistByName(ctx context.Context, name string) (*capability.PlaylistRef, error) {
	for _, p := range f.playlists {
		if p.Name == name {
			ref := p
			return &ref, nil
		}
	}
	return nil, nil
}
func (f *fakeMediaServer) CreatePlaylist(ctx context.Context, name string, ids []string, summary string) (*capability.PlaylistRef, error) {
	id := name + "-new"
	ref := capability.PlaylistRef{ID: id, Name: name, TrackCount: len(ids)}
	f.playlists[id] = ref
	f.tracks[id] = append([]string{}, ids...)
	f.created = append(f.created, ref)
	return &ref, nil
}
func (f *fakeMediaServer) AddTracks(ctx context.Context, playlistID string, ids []string) error {
	f.tracks[playlistID] = append(f.tracks[playlistID], ids...)
	f.added[playlistID] = append(f.added[playlistID], ids...)
	if p, ok := f.playlists[playlistID]; ok {
		p.TrackCount = len(f.tracks[playlistID])
		f.playlists[playlistID] = p
	}
	return nil
}
func (f *fakeMediaServer) RemoveTracks(ctx context.Context, playlistID string, ids []string) error {
	remove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
	}
	kept := f.tracks[playlistID][:0]
	for _, id := range f.tracks[playlistID] {
		if _, ok := remove[id]; !ok {
			kept = append(kept, id)
		}
	}
	f.tracks[playlistID] = kept
	if p, ok := f.playlists[playlistID]; ok {
		p.TrackCount = len(kept)
		f.playlists[playlistID] = p
	}
	return nil
}
func (f *fakeMediaServer) DeletePlaylist(ctx context.Context, playlistID string) error {
	delete(f.playlists, playlistID)
	delete(f.tracks, playlistID)
	f.deleted = append(f.deleted, playlistID)
	return nil
}
func (f *fakeMediaServer) GetPlaylistTracks(ctx context.Context, playlistID string) ([]string, error) {
	return f.tracks[playlistID], nil
}
func (f *fakeMediaServer) Close() error { return nil }

func TestPreSyncValidateKeepsPlaylistWithMostTracksAndDropsDuplicates(t *testing.T) {
	target := newFakeMediaServer()
	target.playlists["p1"] = capability.PlaylistRef{ID: "p1", Name: "[LB] Daily Mix", TrackCount: 5}
	target.playlists["p2"] = capability.PlaylistRef{ID: "p2", Name: "[LB] Daily Mix", TrackCount: 20}
	target.playlists["p3"] = capability.PlaylistRef{ID: "p3", Name: "[LB] Daily Mix", TrackCount: 1}

	deleted, err := PreSyncValidate(context.Background(), target, "[LB] ", discardLogger())
	require.NoError(t, err)
	require.Equal(t, 2, deleted)

	_, stillThere := target.playlists["p2"]
	require.True(t, stillThere, "the playlist with the most tracks must survive")
	require.Len(t, target.playlists, 1)
}

func TestPreSyncValidateDeletesEmptyPlaylists(t *testing.T) {
	target := newFakeMediaServer()
	target.playlists["p1"] = capability.PlaylistRef{ID: "p1", Name: "[LB] Empty", TrackCount: 0}
	target.playlists["p2"] = capability.PlaylistRef{ID: "p2", Name: "[LB] Nonempty", TrackCount: 3}

	deleted, err := PreSyncValidate(context.Background(), target, "[LB] ", discardLogger())
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
	require.Contains(t, target.playlists, "p2")
	require.NotContains(t, target.playlists, "p1")
}
