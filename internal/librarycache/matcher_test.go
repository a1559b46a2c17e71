package librarycache

import "testing"

func buildTestSnapshot() *Snapshot {
	tracks := []Track{
		{ID: "1", TitleLC: Normalize("Yesterday"), ArtistLC: Normalize("The Beatles"), AlbumLCTrunc50: TruncateAlbum("Help!")},
		{ID: "2", TitleLC: Normalize("Yesterday"), ArtistLC: Normalize("Leona Lewis"), AlbumLCTrunc50: TruncateAlbum("Spirit")},
		{ID: "3", TitleLC: Normalize("Let It Be"), ArtistLC: Normalize("The Beatles"), AlbumLCTrunc50: TruncateAlbum("Let It Be")},
	}
	return BuildSnapshot("lib1", tracks)
}

func TestLookupExactIntersection(t *testing.T) {
	snap := buildTestSnapshot()
	policy := DefaultMatchingPolicy()

	m, ok := snap.Lookup(policy, "Yesterday", "The Beatles", "Help!")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.TrackID != "1" {
		t.Fatalf("got track %s, want 1", m.TrackID)
	}
}

func TestLookupSameTitleDifferentArtistDoesNotCrossMatch(t *testing.T) {
	snap := buildTestSnapshot()
	policy := DefaultMatchingPolicy()

	m, ok := snap.Lookup(policy, "Yesterday", "Leona Lewis", "Spirit")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.TrackID != "2" {
		t.Fatalf("got track %s, want 2 (exact artist intersection must not fall through to Beatles)", m.TrackID)
	}
}

func TestLookupMiss(t *testing.T) {
	snap := buildTestSnapshot()
	policy := DefaultMatchingPolicy()

	_, ok := snap.Lookup(policy, "Some Unknown Song", "Some Unknown Band", "")
	if ok {
		t.Fatal("expected a miss")
	}
}

func TestArtistScoreCrossArtistGuard(t *testing.T) {
	policy := DefaultMatchingPolicy()
	score := ArtistScore(Normalize("Leona Lewis"), Normalize("The Beatles"))
	if score >= policy.CrossArtistGuardScore {
		t.Fatalf("ArtistScore() = %f, want below guard threshold %f", score, policy.CrossArtistGuardScore)
	}
}

func TestArtistScoreExactMatch(t *testing.T) {
	score := ArtistScore(Normalize("The Beatles"), Normalize("The Beatles"))
	if score != 100 {
		t.Fatalf("ArtistScore() = %f, want 100", score)
	}
}

func TestAlbumBonusTiers(t *testing.T) {
	policy := DefaultMatchingPolicy()

	if got := albumBonus(policy, "help", "help"); got != policy.AlbumExactBonus {
		t.Errorf("exact album bonus = %f, want %f", got, policy.AlbumExactBonus)
	}
	if got := albumBonus(policy, "help deluxe edition", "help"); got != policy.AlbumSubstringBonus {
		t.Errorf("substring album bonus = %f, want %f", got, policy.AlbumSubstringBonus)
	}
	if got := albumBonus(policy, "totally unrelated words here", "nothing in common"); got != 0 {
		t.Errorf("unrelated album bonus = %f, want 0", got)
	}
}
