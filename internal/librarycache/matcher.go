package librarycache

import "strings"

// MatchingPolicy centralizes the scoring constants the original source
// scattered across utils/library_cache_manager.py and its companion
// normalizer/model modules (per the Design Note in spec.md §9). Manager
// holds one and SetPolicy can replace it; no C1 configuration key feeds it.
type MatchingPolicy struct {
	AlbumExactBonus       float64
	AlbumSubstringBonus   float64
	AlbumFuzzyBonus       float64
	FuzzyWordOverlapMin   float64
	FuzzyMatchScore       float64
	CrossArtistGuardScore float64 // out of 100
}

// DefaultMatchingPolicy is the policy spec.md §4.3 describes.
func DefaultMatchingPolicy() MatchingPolicy {
	return MatchingPolicy{
		AlbumExactBonus:       1.0,
		AlbumSubstringBonus:   0.7,
		AlbumFuzzyBonus:       0.5,
		FuzzyWordOverlapMin:   0.7,
		FuzzyMatchScore:       0.8,
		CrossArtistGuardScore: 50,
	}
}

// Match is a scored candidate from a lookup.
type Match struct {
	TrackID string
	Score   float64
}

// Lookup resolves (title, artist, album) against the snapshot's indices
// using the three-stage strategy from spec §4.3: exact intersection, then
// fuzzy-on-either-axis, then miss. Returns false on miss.
func (s *Snapshot) Lookup(policy MatchingPolicy, title, artist, album string) (Match, bool) {
	nTitle := Normalize(title)
	nArtist := Normalize(artist)
	nAlbum := ""
	if album != "" {
		nAlbum = Normalize(album)
	}

	if ids, ok := s.exactIntersection(nArtist, nTitle); ok {
		best, bestScore := s.bestByAlbum(policy, ids, nAlbum)
		if best != "" {
			return Match{TrackID: best, Score: bestScore}, true
		}
	}

	if m, ok := s.fuzzyEitherAxis(policy, nTitle, nArtist, nAlbum); ok {
		return m, true
	}

	return Match{}, false
}

func (s *Snapshot) exactIntersection(artist, title string) ([]string, bool) {
	artistIDs, ok1 := s.ArtistIndex[artist]
	titleIDs, ok2 := s.TrackIndex[title]
	if !ok1 || !ok2 {
		return nil, false
	}
	titleSet := make(map[string]struct{}, len(titleIDs))
	for _, id := range titleIDs {
		titleSet[id] = struct{}{}
	}
	var out []string
	for _, id := range artistIDs {
		if _, ok := titleSet[id]; ok {
			out = append(out, id)
		}
	}
	return out, len(out) > 0
}

// bestByAlbum scores candidates sharing exact artist+title by album
// agreement; returns an arbitrary member when album is unspecified.
func (s *Snapshot) bestByAlbum(policy MatchingPolicy, ids []string, album string) (string, float64) {
	if album == "" {
		return ids[0], 1.0
	}
	var bestID string
	var bestScore float64 = -1
	for _, id := range ids {
		t := s.ByID(id)
		if t == nil {
			continue
		}
		score := albumBonus(policy, t.AlbumLCTrunc50, album)
		if score > bestScore {
			bestScore = score
			bestID = id
		}
	}
	return bestID, bestScore
}

func albumBonus(policy MatchingPolicy, stored, want string) float64 {
	if stored == want {
		return policy.AlbumExactBonus
	}
	if stored != "" && want != "" && (strings.Contains(stored, want) || strings.Contains(want, stored)) {
		return policy.AlbumSubstringBonus
	}
	if fuzzyWordOverlap(stored, want) >= policy.FuzzyWordOverlapMin {
		return policy.AlbumFuzzyBonus
	}
	return 0
}

// fuzzyEitherAxis runs the two symmetric fuzzy passes: fuzzy-artist against
// exact-title, and fuzzy-title against exact-artist, keeping the best
// candidate scoring at least FuzzyMatchScore.
func (s *Snapshot) fuzzyEitherAxis(policy MatchingPolicy, title, artist, album string) (Match, bool) {
	var bestID string
	var bestScore float64

	// fuzzy artist, exact title
	if titleIDs, ok := s.TrackIndex[title]; ok {
		titleSet := make(map[string]struct{}, len(titleIDs))
		for _, id := range titleIDs {
			titleSet[id] = struct{}{}
		}
		for idxArtist, ids := range s.ArtistIndex {
			if fuzzyWordOverlap(idxArtist, artist) < policy.FuzzyWordOverlapMin {
				continue
			}
			for _, id := range ids {
				if _, ok := titleSet[id]; !ok {
					continue
				}
				t := s.ByID(id)
				if t == nil {
					continue
				}
				score := policy.FuzzyMatchScore + albumBonus(policy, t.AlbumLCTrunc50, album)
				if score > bestScore {
					bestScore, bestID = score, id
				}
			}
		}
	}

	// fuzzy title, exact artist
	if artistIDs, ok := s.ArtistIndex[artist]; ok {
		artistSet := make(map[string]struct{}, len(artistIDs))
		for _, id := range artistIDs {
			artistSet[id] = struct{}{}
		}
		for idxTitle, ids := range s.TrackIndex {
			if fuzzyWordOverlap(idxTitle, title) < policy.FuzzyWordOverlapMin {
				continue
			}
			for _, id := range ids {
				if _, ok := artistSet[id]; !ok {
					continue
				}
				t := s.ByID(id)
				if t == nil {
					continue
				}
				score := policy.FuzzyMatchScore + albumBonus(policy, t.AlbumLCTrunc50, album)
				if score > bestScore {
					bestScore, bestID = score, id
				}
			}
		}
	}

	if bestID == "" || bestScore < policy.FuzzyMatchScore {
		return Match{}, false
	}
	return Match{TrackID: bestID, Score: bestScore}, true
}

// ArtistScore computes the cross-artist guard score (0-100) between a
// candidate track's artist and the wanted artist, both already normalized.
// Every matcher caller MUST reject a candidate scoring below
// CrossArtistGuardScore regardless of title score (spec §4.3).
func ArtistScore(candidateArtist, wantArtist string) float64 {
	if candidateArtist == wantArtist {
		return 100
	}
	return fuzzyWordOverlap(candidateArtist, wantArtist) * 100
}
