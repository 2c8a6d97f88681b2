package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/justestif/go-spotify-listen-reconciler/internal/db"
)

type fakeArtistCatalog struct {
	tracks map[string][]string
	err    error

	gotArtistIDs []string
	gotGroups    []string
}

func (f *fakeArtistCatalog) ArtistTracks(_ context.Context, artistIDs, groups []string) (map[string][]string, error) {
	f.gotArtistIDs = artistIDs
	f.gotGroups = groups
	if f.err != nil {
		return nil, f.err
	}
	return f.tracks, nil
}

func playWithDuration(trackID, artistID string, msPlayed, durationMS int) db.KnownPlay {
	p := knownPlay(trackID, artistID, msPlayed)
	p.TrackDurationMS = &durationMS
	return p
}

func TestDiscographyCompletion(t *testing.T) {
	plays := []db.KnownPlay{
		// ar1: both catalog tracks past the 75% threshold.
		playWithDuration("t1", "ar1", 90000, 100000),
		playWithDuration("t2", "ar1", 75000, 100000),
		// ar2: one of two catalog tracks listened; the 10000ms play of
		// t4 is below threshold even with an earlier shorter play.
		playWithDuration("t3", "ar2", 100000, 100000),
		playWithDuration("t4", "ar2", 5000, 100000),
		playWithDuration("t4", "ar2", 10000, 100000),
	}

	cat := &fakeArtistCatalog{tracks: map[string][]string{
		"ar1": {"t1", "t2"},
		"ar2": {"t3", "t4"},
	}}
	engine := NewEngine(cat, nil)

	got, err := engine.DiscographyCompletion(context.Background(), plays, DefaultCompletionConfig())
	if err != nil {
		t.Fatalf("DiscographyCompletion() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("DiscographyCompletion() = %+v, want 2 artists", got)
	}
	if got[0].ArtistID != "ar1" || got[0].ListenedTracks != 2 || got[0].PercentListened != 100 {
		t.Errorf("completion[0] = %+v, want ar1 fully listened", got[0])
	}
	if got[1].ArtistID != "ar2" || got[1].ListenedTracks != 1 || got[1].PercentListened != 50 {
		t.Errorf("completion[1] = %+v, want ar2 at 50%%", got[1])
	}
}

func TestDiscographyCompletionFractionBounds(t *testing.T) {
	duration := 100000
	tests := []struct {
		name         string
		fraction     float64
		msPlayed     int
		wantListened int
	}{
		{name: "fraction 0 counts a zero-ms play", fraction: 0, msPlayed: 0, wantListened: 1},
		{name: "fraction 1 rejects a near-complete play", fraction: 1, msPlayed: duration - 1, wantListened: 0},
		{name: "fraction 1 accepts a full play", fraction: 1, msPlayed: duration, wantListened: 1},
		{name: "fraction above 1 clamps to 1", fraction: 2.5, msPlayed: duration, wantListened: 1},
		{name: "negative fraction clamps to 0", fraction: -1, msPlayed: 0, wantListened: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plays := []db.KnownPlay{
				// A second, clearly-listened track keeps the artist in
				// the top set even when the probe play has 0ms.
				playWithDuration("anchor", "ar1", duration, duration),
				playWithDuration("probe", "ar1", tt.msPlayed, duration),
			}
			cat := &fakeArtistCatalog{tracks: map[string][]string{"ar1": {"probe"}}}
			engine := NewEngine(cat, nil)

			got, err := engine.DiscographyCompletion(context.Background(), plays, CompletionConfig{
				TopArtists:        5,
				MinListenFraction: tt.fraction,
			})
			if err != nil {
				t.Fatalf("DiscographyCompletion() error = %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("DiscographyCompletion() = %+v, want 1 artist", got)
			}
			if got[0].ListenedTracks != tt.wantListened {
				t.Errorf("ListenedTracks = %d, want %d", got[0].ListenedTracks, tt.wantListened)
			}
		})
	}
}

func TestDiscographyCompletionTopArtistLimit(t *testing.T) {
	plays := []db.KnownPlay{
		playWithDuration("t1", "ar1", 900000, 100000),
		playWithDuration("t2", "ar2", 1000, 100000),
	}
	cat := &fakeArtistCatalog{tracks: map[string][]string{"ar1": {"t1"}}}
	engine := NewEngine(cat, nil)

	got, err := engine.DiscographyCompletion(context.Background(), plays, CompletionConfig{
		TopArtists:        1,
		MinListenFraction: 0.75,
		AlbumGroups:       []string{"album"},
	})
	if err != nil {
		t.Fatalf("DiscographyCompletion() error = %v", err)
	}

	if len(got) != 1 || got[0].ArtistID != "ar1" {
		t.Fatalf("DiscographyCompletion() = %+v, want only the top artist ar1", got)
	}
	if len(cat.gotArtistIDs) != 1 || cat.gotArtistIDs[0] != "ar1" {
		t.Errorf("catalog queried for %v, want [ar1]", cat.gotArtistIDs)
	}
	if len(cat.gotGroups) != 1 || cat.gotGroups[0] != "album" {
		t.Errorf("catalog queried with groups %v, want [album]", cat.gotGroups)
	}
}

func TestDiscographyCompletionNoPlays(t *testing.T) {
	engine := NewEngine(&fakeArtistCatalog{}, nil)

	got, err := engine.DiscographyCompletion(context.Background(), nil, DefaultCompletionConfig())
	if err != nil {
		t.Fatalf("DiscographyCompletion() error = %v", err)
	}
	if got != nil {
		t.Errorf("DiscographyCompletion() = %+v, want nil for empty history", got)
	}
}

func TestDiscographyCompletionCatalogError(t *testing.T) {
	wantErr := errors.New("catalog down")
	plays := []db.KnownPlay{playWithDuration("t1", "ar1", 90000, 100000)}
	engine := NewEngine(&fakeArtistCatalog{err: wantErr}, nil)

	if _, err := engine.DiscographyCompletion(context.Background(), plays, DefaultCompletionConfig()); !errors.Is(err, wantErr) {
		t.Fatalf("DiscographyCompletion() error = %v, want wrapped catalog error", err)
	}
}
