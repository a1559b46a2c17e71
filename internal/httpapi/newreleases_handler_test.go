package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmdarr/cmdarr/internal/capability"
	"github.com/cmdarr/cmdarr/internal/newreleases"
)

func TestNewReleasesReturns503WhenNotConfigured(t *testing.T) {
	cfg := newTestConfig(t)
	router := NewRouter(cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/new-releases", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type stubManager struct{ artists []capability.ArtistRef }

func (s *stubManager) ListArtists(ctx context.Context) ([]capability.ArtistRef, error) {
	return s.artists, nil
}
func (s *stubManager) ListAlbums(ctx context.Context) ([]capability.AlbumRef, error) { return nil, nil }
func (s *stubManager) ListExclusions(ctx context.Context) (map[string]struct{}, error) {
	return nil, nil
}
func (s *stubManager) AddArtist(ctx context.Context, identifier, name string) (capability.Result, error) {
	return capability.Result{}, nil
}
func (s *stubManager) TestConnection(ctx context.Context) (bool, error) { return true, nil }
func (s *stubManager) Close() error                                     { return nil }

type stubStreaming struct {
	id, name string
	albums   []capability.StreamingAlbum
}

func (s *stubStreaming) SearchArtist(ctx context.Context, name string) (string, string, bool, error) {
	return s.id, s.name, true, nil
}
func (s *stubStreaming) ArtistAlbums(ctx context.Context, artistID string) ([]capability.StreamingAlbum, error) {
	return s.albums, nil
}
func (s *stubStreaming) Close() error { return nil }

type stubMetadata struct{ releaseGroups map[string][]string }

func (s *stubMetadata) FuzzySearchArtist(ctx context.Context, name string) (*capability.ArtistMatch, error) {
	return nil, nil
}
func (s *stubMetadata) ArtistReleaseGroups(ctx context.Context, identifier string) ([]string, error) {
	return s.releaseGroups[identifier], nil
}
func (s *stubMetadata) Close() error { return nil }

func TestNewReleasesReturnsAlbumsMissingFromMetadata(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.NewReleases = newreleases.New(
		&stubManager{artists: []capability.ArtistRef{{Identifier: "mbid-1", Name: "Emmure"}}},
		&stubStreaming{
			id:   "sp-1",
			name: "Emmure",
			albums: []capability.StreamingAlbum{
				{Name: "Goodbye, To The Gallows", AlbumType: "album", TotalTracks: 11, ExternalURL: "https://open.spotify.com/album/1", PrimaryArtistID: "sp-1"},
			},
		},
		&stubMetadata{releaseGroups: map[string][]string{}},
	)

	router := NewRouter(cfg)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/new-releases?artist_limit=5&album_types=album", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result newreleases.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.ArtistsChecked)
	require.Equal(t, 1, result.ArtistsWithReleases)
}
