package librarycache

import "time"

// Track is one row of a LibrarySnapshot (spec §4.3).
type Track struct {
	ID              string    `json:"id"`
	TitleLC         string    `json:"title_lc"`
	ArtistLC        string    `json:"artist_lc"`
	AlbumLCTrunc50  string    `json:"album_lc_trunc50"`
	DurationSeconds float64   `json:"duration_s"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Snapshot is the immutable materialised catalogue for one (service,
// library) key, once published.
type Snapshot struct {
	LibraryKey  string             `json:"library_key"`
	TotalTracks int                `json:"total_tracks"`
	Tracks      []Track            `json:"tracks"`
	ArtistIndex map[string][]string `json:"artist_index"`
	TrackIndex  map[string][]string `json:"track_index"`
	BuiltAt     time.Time          `json:"built_at"`
}

// BuildSnapshot constructs a Snapshot (and its two inverted indices) from a
// flat track list, normalizing index keys per the canonical text pipeline.
func BuildSnapshot(libraryKey string, tracks []Track) *Snapshot {
	s := &Snapshot{
		LibraryKey:  libraryKey,
		Tracks:      tracks,
		ArtistIndex: make(map[string][]string),
		TrackIndex:  make(map[string][]string),
		BuiltAt:     time.Now().UTC(),
	}
	s.reindex()
	return s
}

func (s *Snapshot) reindex() {
	s.ArtistIndex = make(map[string][]string, len(s.ArtistIndex))
	s.TrackIndex = make(map[string][]string, len(s.TrackIndex))
	for _, t := range s.Tracks {
		s.ArtistIndex[t.ArtistLC] = append(s.ArtistIndex[t.ArtistLC], t.ID)
		s.TrackIndex[t.TitleLC] = append(s.TrackIndex[t.TitleLC], t.ID)
	}
	s.TotalTracks = len(s.Tracks)
}

// ByID returns the track with the given id, or nil.
func (s *Snapshot) ByID(id string) *Track {
	for i := range s.Tracks {
		if s.Tracks[i].ID == id {
			return &s.Tracks[i]
		}
	}
	return nil
}

// Upsert adds a new track or replaces the metadata of an existing one
// (matched by ID), then rebuilds the indices. Used by SmartRefresh.
func (s *Snapshot) Upsert(t Track) {
	for i := range s.Tracks {
		if s.Tracks[i].ID == t.ID {
			s.Tracks[i] = t
			s.reindex()
			return
		}
	}
	s.Tracks = append(s.Tracks, t)
	s.reindex()
}

// RemoveMissing drops tracks whose id is not present in keep.
// VerifyAndRefresh does not use it; its rebuild path calls Build.
func (s *Snapshot) RemoveMissing(keep map[string]struct{}) int {
	out := s.Tracks[:0]
	removed := 0
	for _, t := range s.Tracks {
		if _, ok := keep[t.ID]; ok {
			out = append(out, t)
		} else {
			removed++
		}
	}
	s.Tracks = out
	s.reindex()
	return removed
}

// ChangedFields reports whether any of {title, artist, album, updated_at}
// differ between stored and incoming, the SmartRefresh "metadata-changed"
// test (spec §4.3).
func ChangedFields(stored, incoming Track) bool {
	return stored.TitleLC != incoming.TitleLC ||
		stored.ArtistLC != incoming.ArtistLC ||
		stored.AlbumLCTrunc50 != incoming.AlbumLCTrunc50 ||
		!stored.UpdatedAt.Equal(incoming.UpdatedAt)
}

// Stats holds per-service hit/miss counters for the status surface.
type Stats struct {
	Service string
	Hits    int64
	Misses  int64
}
