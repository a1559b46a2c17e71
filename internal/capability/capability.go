// Package capability declares the narrow interfaces the core depends on
// for every external collaborator (spec §4.4, C4). The core never imports
// a concrete client package — it is constructed against these interfaces
// only, matching the teacher's internal/business/publishing pattern of
// depending on small capability interfaces (e.g. Notifier, HealthChecker)
// rather than concrete SDK clients.
package capability

import "context"

// ArtistRef is a minimal artist reference as reported by a library manager.
type ArtistRef struct {
	Identifier string
	Name       string
}

// AlbumRef is a minimal album reference as reported by a library manager.
type AlbumRef struct {
	Identifier string
	Title      string
	ArtistName string
}

// Result is the outcome of a manager mutation, e.g. AddArtist.
type Result struct {
	Success bool
	Message string
}

// ManagerClient is the capability set required of a library manager (e.g.
// Lidarr): the discovery pipeline's source of truth for what is already
// managed and what is excluded.
type ManagerClient interface {
	ListArtists(ctx context.Context) ([]ArtistRef, error)
	ListAlbums(ctx context.Context) ([]AlbumRef, error)
	ListExclusions(ctx context.Context) (map[string]struct{}, error)
	AddArtist(ctx context.Context, identifier, name string) (Result, error)
	TestConnection(ctx context.Context) (bool, error)
	Close() error
}

// Similar is one recommendation candidate from a RecommenderClient.
type Similar struct {
	Identifier string // empty when unresolved; see RecommenderClient.GetSimilar
	Name       string
	MatchScore float64 // 0..1, recommender-reported similarity
}

// RecommenderClient is the capability set required of a similar-artist
// recommender (e.g. Last.fm, ListenBrainz).
type RecommenderClient interface {
	// GetSimilar returns accepted candidates (identifier already resolved)
	// and rejected candidates (identifier missing, recoverable via
	// MetadataClient.FuzzySearchArtist).
	GetSimilar(ctx context.Context, identifier, name string, limit int) (accepted, rejected []Similar, err error)
	Close() error
}

// ArtistMatch is a MetadataClient fuzzy-search result.
type ArtistMatch struct {
	Identifier    string
	CanonicalName string
	Similarity    float64
}

// MetadataClient is the capability set required of a canonical metadata
// service (e.g. MusicBrainz): identifier recovery and release-group lookup.
type MetadataClient interface {
	// FuzzySearchArtist returns nil when no candidate is found (not an
	// error — a genuine no-match).
	FuzzySearchArtist(ctx context.Context, name string) (*ArtistMatch, error)
	// ArtistReleaseGroups returns nil on a transient error (do not cache
	// negatively) and an empty, non-nil slice when the artist genuinely
	// has no release groups (cacheable). Preserving this distinction is
	// load-bearing for /api/new-releases.
	ArtistReleaseGroups(ctx context.Context, identifier string) ([]string, error)
	Close() error
}

// PlaylistTrack is one row returned by PlaylistSource.PlaylistTracks.
type PlaylistTrack struct {
	Artist string
	Album  string
	Track  string
}

// PlaylistInfo describes a source playlist.
type PlaylistInfo struct {
	Name       string
	TrackCount int
}

// PlaylistSource is the capability set required of a playlist origin (e.g.
// Spotify, Deezer, a curated ListenBrainz feed).
type PlaylistSource interface {
	PlaylistInfo(ctx context.Context, url string) (PlaylistInfo, error)
	PlaylistTracks(ctx context.Context, url string) ([]PlaylistTrack, error)
	// CuratedPlaylists is optional: sources without curated feeds return
	// (nil, nil).
	CuratedPlaylists(ctx context.Context, user string) (map[string]string, error)
	Close() error
}

// MediaServerClient is the capability set required of a playlist target
// and library-cache source (e.g. Plex, Jellyfin): library build/verify
// plus playlist CRUD.
type MediaServerClient interface {
	// BuildLibraryCache fetches the full track catalogue for libraryKey.
	BuildLibraryCache(ctx context.Context, libraryKey string) (Catalogue, error)
	// IncrementalTracks fetches tracks added or changed since `since`.
	IncrementalTracks(ctx context.Context, libraryKey string, sinceUnixSeconds int64) (Catalogue, error)
	// VerifyTrackExists reports existence for each sampled id.
	VerifyTrackExists(ctx context.Context, libraryKey string, ids []string) (map[string]bool, error)
	CacheKey() (service, baseURL string)

	// ListPlaylists returns every playlist whose name starts with prefix,
	// for pre-sync validation (dedup-by-name, drop-empty) and
	// retention pruning.
	ListPlaylists(ctx context.Context, prefix string) ([]PlaylistRef, error)
	FindPlaylistByName(ctx context.Context, name string) (*PlaylistRef, error)
	CreatePlaylist(ctx context.Context, name string, ids []string, summary string) (*PlaylistRef, error)
	AddTracks(ctx context.Context, playlistID string, ids []string) error
	// RemoveTracks is used only by additive-mode sync's optional
	// prune_additive behaviour (spec §9 Open Question, default off).
	RemoveTracks(ctx context.Context, playlistID string, ids []string) error
	DeletePlaylist(ctx context.Context, playlistID string) error
	GetPlaylistTracks(ctx context.Context, playlistID string) ([]string, error)

	Close() error
}

// CatalogueTrack is the raw shape a MediaServerClient reports a track in,
// converted by the caller into a librarycache.Track.
type CatalogueTrack struct {
	ID        string
	Title     string
	Artist    string
	Album     string
	Duration  float64
	UpdatedAt int64 // unix seconds
}

// Catalogue is a flat track list returned by a build/incremental fetch.
type Catalogue []CatalogueTrack

// PlaylistRef identifies a playlist on the target, with enough shape to
// drive pre-sync validation (dedup by name, empty-playlist pruning).
type PlaylistRef struct {
	ID         string
	Name       string
	TrackCount int
}

// DiscoveryArtifactWriter persists the discovery pipeline's JSON output.
type DiscoveryArtifactWriter interface {
	Write(ctx context.Context, path string, artifacts any) error
}

// StreamingAlbum is one release as reported by a streaming provider's
// artist-catalogue endpoint.
type StreamingAlbum struct {
	Name            string
	ReleaseDate     string
	AlbumType       string // album, single, compilation, appears_on
	TotalTracks     int
	ExternalURL     string
	PrimaryArtistID string
}

// StreamingCatalogClient is the capability set required of a streaming
// provider (e.g. Spotify) for the new-releases cross-check (spec §6
// GET /api/new-releases): find an artist, then list its releases.
type StreamingCatalogClient interface {
	// SearchArtist returns found=false on a genuine no-match, never an
	// error, so callers can distinguish "nothing on this provider" from
	// a transient lookup failure.
	SearchArtist(ctx context.Context, name string) (artistID, canonicalName string, found bool, err error)
	ArtistAlbums(ctx context.Context, artistID string) ([]StreamingAlbum, error)
	Close() error
}
