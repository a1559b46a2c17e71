package newreleases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmdarr/cmdarr/internal/capability"
)

type fakeManager struct {
	artists []capability.ArtistRef
}

func (f *fakeManager) ListArtists(ctx context.Context) ([]capability.ArtistRef, error) { return f.artists, nil }
func (f *fakeManager) ListAlbums(ctx context.Context) ([]capability.AlbumRef, error)    { return nil, nil }
func (f *fakeManager) ListExclusions(ctx context.Context) (map[string]struct{}, error)  { return nil, nil }
func (f *fakeManager) AddArtist(ctx context.Context, identifier, name string) (capability.Result, error) {
	return capability.Result{}, nil
}
func (f *fakeManager) TestConnection(ctx context.Context) (bool, error) { return true, nil }
func (f *fakeManager) Close() error                                     { return nil }

type fakeStreaming struct {
	searchResults map[string]streamingHit
	albums        map[string][]capability.StreamingAlbum
}

type streamingHit struct {
	id   string
	name string
}

func (f *fakeStreaming) SearchArtist(ctx context.Context, name string) (string, string, bool, error) {
	hit, ok := f.searchResults[name]
	if !ok {
		return "", "", false, nil
	}
	return hit.id, hit.name, true, nil
}

func (f *fakeStreaming) ArtistAlbums(ctx context.Context, artistID string) ([]capability.StreamingAlbum, error) {
	return f.albums[artistID], nil
}
func (f *fakeStreaming) Close() error { return nil }

type fakeMetadata struct {
	releaseGroups map[string][]string
}

func (f *fakeMetadata) FuzzySearchArtist(ctx context.Context, name string) (*capability.ArtistMatch, error) {
	return nil, nil
}
func (f *fakeMetadata) ArtistReleaseGroups(ctx context.Context, identifier string) ([]string, error) {
	return f.releaseGroups[identifier], nil
}
func (f *fakeMetadata) Close() error { return nil }

func TestScanReturnsAlbumsMissingFromMetadata(t *testing.T) {
	manager := &fakeManager{artists: []capability.ArtistRef{{Identifier: "mbid-1", Name: "Emmure"}}}
	streaming := &fakeStreaming{
		searchResults: map[string]streamingHit{"Emmure": {id: "sp-1", name: "Emmure"}},
		albums: map[string][]capability.StreamingAlbum{
			"sp-1": {
				{Name: "Goodbye, To The Gallows", AlbumType: "album", TotalTracks: 11, ExternalURL: "https://open.spotify.com/album/1", PrimaryArtistID: "sp-1"},
				{Name: "Deconstructed", AlbumType: "album", TotalTracks: 10, ExternalURL: "https://open.spotify.com/album/2", PrimaryArtistID: "sp-1"},
			},
		},
	}
	metadata := &fakeMetadata{releaseGroups: map[string][]string{"mbid-1": {"Deconstructed"}}}

	scanner := New(manager, streaming, metadata)
	result, err := scanner.Scan(context.Background(), 10, []string{"album"})
	require.NoError(t, err)

	require.Equal(t, 1, result.ArtistsChecked)
	require.Equal(t, 1, result.ArtistsWithReleases)
	require.Equal(t, 1, result.SkippedInMetadata)
	require.Len(t, result.Artists, 1)
	require.Len(t, result.Artists[0].Albums, 1)
	require.Equal(t, "Goodbye, To The Gallows", result.Artists[0].Albums[0].Name)
	require.Contains(t, result.Artists[0].Albums[0].HarmonyURL, "harmony.pulsewidth.org.uk")
}

func TestScanRejectsCrossArtistNameCollision(t *testing.T) {
	manager := &fakeManager{artists: []capability.ArtistRef{{Identifier: "mbid-1", Name: "Emmure"}}}
	streaming := &fakeStreaming{
		searchResults: map[string]streamingHit{"Emmure": {id: "sp-wrong", name: "emmurée"}},
		albums: map[string][]capability.StreamingAlbum{
			"sp-wrong": {{Name: "Unrelated", AlbumType: "album", TotalTracks: 10, ExternalURL: "https://x", PrimaryArtistID: "sp-wrong"}},
		},
	}
	scanner := New(manager, streaming, &fakeMetadata{})
	result, err := scanner.Scan(context.Background(), 10, nil)
	require.NoError(t, err)
	require.Empty(t, result.Artists)
}

func TestScanFiltersLiveReleases(t *testing.T) {
	manager := &fakeManager{artists: []capability.ArtistRef{{Identifier: "mbid-1", Name: "Emmure"}}}
	streaming := &fakeStreaming{
		searchResults: map[string]streamingHit{"Emmure": {id: "sp-1", name: "Emmure"}},
		albums: map[string][]capability.StreamingAlbum{
			"sp-1": {{Name: "Goodbye (Live At Wherever)", AlbumType: "album", TotalTracks: 10, ExternalURL: "https://x", PrimaryArtistID: "sp-1"}},
		},
	}
	scanner := New(manager, streaming, &fakeMetadata{})
	result, err := scanner.Scan(context.Background(), 10, nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.SkippedLive)
	require.Empty(t, result.Artists)
}

func TestScanDistinguishesAlbumFromEPByTrackCount(t *testing.T) {
	manager := &fakeManager{artists: []capability.ArtistRef{{Identifier: "mbid-1", Name: "Emmure"}}}
	streaming := &fakeStreaming{
		searchResults: map[string]streamingHit{"Emmure": {id: "sp-1", name: "Emmure"}},
		albums: map[string][]capability.StreamingAlbum{
			"sp-1": {{Name: "Short Release", AlbumType: "album", TotalTracks: 4, ExternalURL: "https://x", PrimaryArtistID: "sp-1"}},
		},
	}
	scanner := New(manager, streaming, &fakeMetadata{})

	result, err := scanner.Scan(context.Background(), 10, []string{"album"})
	require.NoError(t, err)
	require.Empty(t, result.Artists, "a 4-track release must not count as a full album")

	result, err = scanner.Scan(context.Background(), 10, []string{"ep"})
	require.NoError(t, err)
	require.Len(t, result.Artists, 1)
}

func TestScanSkipsArtistsWithNoStreamingMatch(t *testing.T) {
	manager := &fakeManager{artists: []capability.ArtistRef{{Identifier: "mbid-1", Name: "Obscure Band"}}}
	streaming := &fakeStreaming{searchResults: map[string]streamingHit{}}
	scanner := New(manager, streaming, &fakeMetadata{})

	result, err := scanner.Scan(context.Background(), 10, nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.ArtistsChecked)
	require.Empty(t, result.Artists)
}

func TestScanReturnsErrNotConfiguredWithoutCapabilities(t *testing.T) {
	scanner := New(nil, nil, nil)
	_, err := scanner.Scan(context.Background(), 10, nil)
	require.ErrorIs(t, err, ErrNotConfigured)
}
