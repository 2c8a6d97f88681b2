package history

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"
)

func TestWriteCSV(t *testing.T) {
	skipped := true
	events := []PlayEvent{
		{
			Username:        "u1",
			Timestamp:       time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC),
			TrackID:         "t1",
			TrackURI:        "spotify:track:t1",
			TrackName:       strptr("Song"),
			AlbumArtistName: strptr("Artist"),
			MsPlayed:        30000,
			ReasonStart:     "clickrow",
			ReasonEnd:       "trackdone",
			Skipped:         &skipped,
		},
		{
			Username:  "u1",
			Timestamp: time.Date(2023, 1, 2, 4, 0, 0, 0, time.UTC),
			TrackID:   "t2",
			TrackURI:  "spotify:track:t2",
		},
	}

	var sb strings.Builder
	if err := WriteCSV(&sb, events); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	if err != nil {
		t.Fatalf("reading written csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("csv has %d rows, want header plus 2 events", len(rows))
	}

	if rows[0][0] != "username" || rows[0][1] != "time_stamp" {
		t.Errorf("header = %v, want storage column names", rows[0])
	}

	first := rows[1]
	if first[0] != "u1" || first[1] != "2023-01-02T03:04:05Z" || first[2] != "t1" {
		t.Errorf("row 1 = %v, want key columns filled", first)
	}
	if first[4] != "Song" || first[10] != "true" {
		t.Errorf("row 1 = %v, want track name and skipped flag", first)
	}

	// Absent optional fields come out as empty strings, not "<nil>".
	second := rows[2]
	if second[4] != "" || second[10] != "" {
		t.Errorf("row 2 = %v, want empty optional columns", second)
	}
}
