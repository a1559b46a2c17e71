package config

import "github.com/cmdarr/cmdarr/internal/store"

// Default declares one code-owned config setting seeded on first start.
type Default struct {
	Key          string
	DefaultValue string
	DataType     store.DataType
	Category     string
	Description  string
	IsSensitive  bool
	IsRequired   bool
	IsHidden     bool
	EnumOptions  []string
}

// Defaults is the full declared set of Cmdarr settings (spec §3 and the
// per-service sections of §4). Ordering is cosmetic; category groups the
// settings for /api/config/ listing.
func Defaults() []Default {
	return []Default{
		// Core / server
		{Key: "HTTP_ADDR", DefaultValue: ":8080", DataType: store.TypeString, Category: "core", Description: "address the HTTP API listens on"},
		{Key: "MAX_PARALLEL_COMMANDS", DefaultValue: "2", DataType: store.TypeInt, Category: "core", Description: "maximum commands executing concurrently"},
		{Key: "LOG_LEVEL", DefaultValue: "info", DataType: store.TypeEnum, Category: "core", Description: "minimum log level", EnumOptions: []string{"debug", "info", "warn", "error"}},

		// Lidarr
		{Key: "LIDARR_URL", DefaultValue: "", DataType: store.TypeString, Category: "lidarr", Description: "base URL of the Lidarr instance", IsRequired: true},
		{Key: "LIDARR_API_KEY", DefaultValue: "", DataType: store.TypeString, Category: "lidarr", Description: "Lidarr API key", IsSensitive: true, IsRequired: true},

		// Plex
		{Key: "PLEX_URL", DefaultValue: "", DataType: store.TypeString, Category: "plex", Description: "base URL of the Plex server"},
		{Key: "PLEX_TOKEN", DefaultValue: "", DataType: store.TypeString, Category: "plex", Description: "Plex auth token", IsSensitive: true},
		{Key: "PLEX_LIBRARY_CACHE_TTL_HOURS", DefaultValue: "24", DataType: store.TypeFloat, Category: "plex", Description: "TTL of the cached Plex library snapshot"},

		// Jellyfin
		{Key: "JELLYFIN_URL", DefaultValue: "", DataType: store.TypeString, Category: "jellyfin", Description: "base URL of the Jellyfin server"},
		{Key: "JELLYFIN_API_KEY", DefaultValue: "", DataType: store.TypeString, Category: "jellyfin", Description: "Jellyfin API key", IsSensitive: true},
		{Key: "JELLYFIN_LIBRARY_CACHE_TTL_HOURS", DefaultValue: "24", DataType: store.TypeFloat, Category: "jellyfin", Description: "TTL of the cached Jellyfin library snapshot"},

		// Last.fm
		{Key: "LASTFM_API_KEY", DefaultValue: "", DataType: store.TypeString, Category: "lastfm", Description: "Last.fm API key", IsSensitive: true},
		{Key: "LASTFM_CACHE_TTL_HOURS", DefaultValue: "168", DataType: store.TypeFloat, Category: "lastfm", Description: "TTL of cached Last.fm similar-artist responses"},
		{Key: "LASTFM_RATE_LIMIT_PER_SEC", DefaultValue: "5", DataType: store.TypeFloat, Category: "lastfm", Description: "max Last.fm requests per second"},

		// ListenBrainz
		{Key: "LISTENBRAINZ_USER", DefaultValue: "", DataType: store.TypeString, Category: "listenbrainz", Description: "ListenBrainz username for recommendation lookups"},
		{Key: "LISTENBRAINZ_CACHE_TTL_HOURS", DefaultValue: "168", DataType: store.TypeFloat, Category: "listenbrainz", Description: "TTL of cached ListenBrainz recommendations"},
		{Key: "LISTENBRAINZ_RATE_LIMIT_PER_SEC", DefaultValue: "2", DataType: store.TypeFloat, Category: "listenbrainz", Description: "max ListenBrainz requests per second"},

		// MusicBrainz
		{Key: "MUSICBRAINZ_CACHE_TTL_HOURS", DefaultValue: "720", DataType: store.TypeFloat, Category: "musicbrainz", Description: "TTL of cached MusicBrainz metadata lookups"},
		{Key: "MUSICBRAINZ_RATE_LIMIT_PER_SEC", DefaultValue: "1", DataType: store.TypeFloat, Category: "musicbrainz", Description: "max MusicBrainz requests per second (courtesy-limited upstream)"},

		// Spotify
		{Key: "SPOTIFY_CLIENT_ID", DefaultValue: "", DataType: store.TypeString, Category: "spotify", Description: "Spotify application client id"},
		{Key: "SPOTIFY_CLIENT_SECRET", DefaultValue: "", DataType: store.TypeString, Category: "spotify", Description: "Spotify application client secret", IsSensitive: true},
		{Key: "SPOTIFY_CACHE_TTL_HOURS", DefaultValue: "24", DataType: store.TypeFloat, Category: "spotify", Description: "TTL of cached Spotify playlist/track lookups"},

		// Deezer
		{Key: "DEEZER_CACHE_TTL_HOURS", DefaultValue: "24", DataType: store.TypeFloat, Category: "deezer", Description: "TTL of cached Deezer playlist/track lookups"},

		// Discovery tuning (C7)
		{Key: "DISCOVERY_MIN_MATCH_SCORE", DefaultValue: "0.9", DataType: store.TypeFloat, Category: "discovery", Description: "minimum recommender-reported match score a recommender candidate must reach (0-1)"},
		{Key: "DISCOVERY_MIN_SIMILARITY", DefaultValue: "0.85", DataType: store.TypeFloat, Category: "discovery", Description: "minimum metadata-service similarity to adopt a recovered artist identifier"},
		{Key: "DISCOVERY_LIMIT", DefaultValue: "5", DataType: store.TypeInt, Category: "discovery", Description: "maximum artists added per discovery run"},
		{Key: "DISCOVERY_COOLDOWN_DAYS", DefaultValue: "30", DataType: store.TypeInt, Category: "discovery", Description: "days before a previously-rejected artist may be reconsidered"},
		{Key: "DISCOVERY_CROSS_ARTIST_GUARD_THRESHOLD", DefaultValue: "50", DataType: store.TypeInt, Category: "discovery", Description: "artist-name score (0-100) below which a match candidate is rejected as a different artist"},

		// Playlist sync tuning (C8)
		{Key: "PLAYLIST_SYNC_PRUNE_ADDITIVE", DefaultValue: "false", DataType: store.TypeBool, Category: "playlistsync", Description: "prune tracks from additive-mode playlists that fell out of the source"},
		{Key: "PLAYLIST_SYNC_MIN_MATCH_SCORE", DefaultValue: "70", DataType: store.TypeInt, Category: "playlistsync", Description: "minimum library-match confidence to include a synced track"},

		// Library cache (C3)
		{Key: "LIBRARY_CACHE_MAX_MEMORY_MB", DefaultValue: "500", DataType: store.TypeInt, Category: "librarycache", Description: "ceiling on in-memory library snapshot size before eviction", IsHidden: true},

		// Discovery artifacts (C7, GET /import_lists/<name>)
		{Key: "DISCOVERY_ARTIFACT_DIR", DefaultValue: "./data/import_lists", DataType: store.TypeString, Category: "discovery", Description: "directory holding one JSON artifact file per discovery source"},

		// New-releases cross-check
		{Key: "NEW_RELEASES_ARTIST_LIMIT", DefaultValue: "20", DataType: store.TypeInt, Category: "newreleases", Description: "default number of managed artists sampled per /api/new-releases call"},
	}
}
