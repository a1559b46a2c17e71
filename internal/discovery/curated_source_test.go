package discovery

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmdarr/cmdarr/internal/capability"
)

type fakePlaylistSource struct {
	curated map[string]string
	tracks  map[string][]capability.PlaylistTrack
}

func (f *fakePlaylistSource) PlaylistInfo(ctx context.Context, url string) (capability.PlaylistInfo, error) {
	return capability.PlaylistInfo{}, nil
}
func (f *fakePlaylistSource) PlaylistTracks(ctx context.Context, url string) ([]capability.PlaylistTrack, error) {
	return f.tracks[url], nil
}
func (f *fakePlaylistSource) CuratedPlaylists(ctx context.Context, user string) (map[string]string, error) {
	return f.curated, nil
}
func (f *fakePlaylistSource) Close() error { return nil }

func TestCuratedSourceDedupesArtistsAcrossPlaylists(t *testing.T) {
	src := &fakePlaylistSource{
		curated: map[string]string{"New Music Friday": "url-1", "Discover": "url-2"},
		tracks: map[string][]capability.PlaylistTrack{
			"url-1": {{Artist: "Artist A", Track: "Song 1"}, {Artist: "Artist B", Track: "Song 2"}},
			"url-2": {{Artist: "Artist A", Track: "Song 3"}},
		},
	}
	c := NewCuratedSource("spotify-curated", "user-1", src)

	ledger, err := LoadLedger(filepath.Join(t.TempDir(), "ledger.json"))
	require.NoError(t, err)

	candidates, err := c.Sample(context.Background(), ledger, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	names := map[string]bool{}
	for _, cand := range candidates {
		names[cand.ArtistName] = true
		require.Empty(t, cand.Identifier, "curated candidates carry no identifier until recovery")
	}
	require.True(t, names["Artist A"])
	require.True(t, names["Artist B"])
}

func TestCuratedSourceSkipsTracksWithoutArtist(t *testing.T) {
	src := &fakePlaylistSource{
		curated: map[string]string{"P": "url-1"},
		tracks: map[string][]capability.PlaylistTrack{
			"url-1": {{Artist: "", Track: "Untagged"}},
		},
	}
	c := NewCuratedSource("spotify-curated", "user-1", src)

	candidates, err := c.Sample(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Empty(t, candidates)
}
