package history

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func strptr(s string) *string { return &s }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		rows []RawPlay
		want []PlayEvent
	}{
		{
			name: "track URI stripped to raw ID",
			rows: []RawPlay{
				{TS: "2023-01-02T03:04:05Z", Username: "u1", MsPlayed: 30000, SpotifyTrackURI: strptr("spotify:track:abc123")},
			},
			want: []PlayEvent{
				{Username: "u1", Timestamp: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), TrackID: "abc123", TrackURI: "spotify:track:abc123", MsPlayed: 30000},
			},
		},
		{
			name: "rows without a track URI are dropped",
			rows: []RawPlay{
				{TS: "2023-01-02T03:04:05Z", Username: "u1", EpisodeName: strptr("Some Podcast")},
				{TS: "2023-01-02T03:05:05Z", Username: "u1", SpotifyTrackURI: strptr("spotify:track:abc123")},
			},
			want: []PlayEvent{
				{Username: "u1", Timestamp: time.Date(2023, 1, 2, 3, 5, 5, 0, time.UTC), TrackID: "abc123", TrackURI: "spotify:track:abc123"},
			},
		},
		{
			name: "duplicate key keeps the larger ms_played",
			rows: []RawPlay{
				{TS: "2023-01-02T03:04:05Z", Username: "u1", MsPlayed: 45000, SpotifyTrackURI: strptr("spotify:track:abc123")},
				{TS: "2023-01-02T03:04:05Z", Username: "u1", MsPlayed: 1000, SpotifyTrackURI: strptr("spotify:track:abc123")},
			},
			want: []PlayEvent{
				{Username: "u1", Timestamp: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), TrackID: "abc123", TrackURI: "spotify:track:abc123", MsPlayed: 45000},
			},
		},
		{
			name: "distinct tracks at the same timestamp both survive",
			rows: []RawPlay{
				{TS: "2023-01-02T03:04:05Z", Username: "u1", SpotifyTrackURI: strptr("spotify:track:bbb")},
				{TS: "2023-01-02T03:04:05Z", Username: "u1", SpotifyTrackURI: strptr("spotify:track:aaa")},
			},
			want: []PlayEvent{
				{Username: "u1", Timestamp: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), TrackID: "bbb", TrackURI: "spotify:track:bbb"},
				{Username: "u1", Timestamp: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), TrackID: "aaa", TrackURI: "spotify:track:aaa"},
			},
		},
		{
			name: "sorted by username then timestamp",
			rows: []RawPlay{
				{TS: "2023-06-01T00:00:00Z", Username: "zoe", SpotifyTrackURI: strptr("spotify:track:t1")},
				{TS: "2023-06-02T00:00:00Z", Username: "amy", SpotifyTrackURI: strptr("spotify:track:t2")},
				{TS: "2023-01-01T00:00:00Z", Username: "amy", SpotifyTrackURI: strptr("spotify:track:t3")},
			},
			want: []PlayEvent{
				{Username: "amy", Timestamp: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), TrackID: "t3", TrackURI: "spotify:track:t3"},
				{Username: "amy", Timestamp: time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC), TrackID: "t2", TrackURI: "spotify:track:t2"},
				{Username: "zoe", Timestamp: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), TrackID: "t1", TrackURI: "spotify:track:t1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.rows)
			if len(got) != len(tt.want) {
				t.Fatalf("Normalize() returned %d events, want %d: %+v", len(got), len(tt.want), got)
			}
			for i, want := range tt.want {
				g := got[i]
				if g.Username != want.Username || !g.Timestamp.Equal(want.Timestamp) || g.TrackID != want.TrackID || g.TrackURI != want.TrackURI || g.MsPlayed != want.MsPlayed {
					t.Errorf("Normalize()[%d] = %+v, want %+v", i, g, want)
				}
			}
		})
	}
}

func TestNormalizeEscapesArtistName(t *testing.T) {
	rows := []RawPlay{
		{TS: "2023-01-02T03:04:05Z", Username: "u1", SpotifyTrackURI: strptr("spotify:track:t1"), AlbumArtistName: strptr("Joey Bada$$")},
		{TS: "2023-01-02T03:05:05Z", Username: "u1", SpotifyTrackURI: strptr("spotify:track:t2"), AlbumArtistName: strptr("Kendrick Lamar")},
	}

	got := Normalize(rows)
	if len(got) != 2 {
		t.Fatalf("Normalize() returned %d events, want 2", len(got))
	}
	if got[0].AlbumArtistName == nil || *got[0].AlbumArtistName != `Joey Bada\$\$` {
		t.Errorf("AlbumArtistName = %v, want escaped dollar signs", got[0].AlbumArtistName)
	}
	if got[1].AlbumArtistName == nil || *got[1].AlbumArtistName != "Kendrick Lamar" {
		t.Errorf("AlbumArtistName = %v, want unchanged", got[1].AlbumArtistName)
	}
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()

	good := `[{"ts":"2023-01-02T03:04:05Z","username":"u1","ms_played":1000,"spotify_track_uri":"spotify:track:t1"}]`
	if err := os.WriteFile(filepath.Join(dir, "endsong_0.json"), []byte(good), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "endsong_1.json"), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Wrong prefix and wrong extension must both be ignored.
	if err := os.WriteFile(filepath.Join(dir, "playlist_0.json"), []byte(good), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "endsong_2.txt"), []byte(good), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	rows, err := ReadDir(dir, "endsong", logger)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}

	if len(rows) != 1 {
		t.Fatalf("ReadDir() returned %d rows, want 1: %+v", len(rows), rows)
	}
	if rows[0].Username != "u1" || rows[0].MsPlayed != 1000 {
		t.Errorf("ReadDir()[0] = %+v, want the row from the good file", rows[0])
	}
	if rows[0].SpotifyTrackURI == nil || *rows[0].SpotifyTrackURI != "spotify:track:t1" {
		t.Errorf("ReadDir()[0].SpotifyTrackURI = %v, want spotify:track:t1", rows[0].SpotifyTrackURI)
	}
}

func TestReadDirMissingDir(t *testing.T) {
	if _, err := ReadDir(filepath.Join(t.TempDir(), "nope"), "endsong", nil); err == nil {
		t.Fatal("ReadDir() on a missing directory returned nil error")
	}
}
