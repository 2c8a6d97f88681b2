package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// csvHeader matches the canonical column naming used by storage.
var csvHeader = []string{
	"username", "time_stamp", "track_id", "uri", "track_name",
	"album_artist_name", "album_name", "ms_played", "reason_start",
	"reason_end", "skipped", "platform", "conn_country", "shuffle",
	"offline", "incognito_mode",
}

// WriteCSV writes the normalized listen history as CSV, for inspection
// or downstream spreadsheet use. It is a convenience export and not
// part of the reconciliation run.
func WriteCSV(w io.Writer, events []PlayEvent) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, e := range events {
		record := []string{
			e.Username,
			e.Timestamp.Format(time.RFC3339),
			e.TrackID,
			e.TrackURI,
			stringOrEmpty(e.TrackName),
			stringOrEmpty(e.AlbumArtistName),
			stringOrEmpty(e.AlbumName),
			strconv.Itoa(e.MsPlayed),
			e.ReasonStart,
			e.ReasonEnd,
			boolOrEmpty(e.Skipped),
			e.Platform,
			e.ConnCountry,
			boolOrEmpty(e.Shuffle),
			boolOrEmpty(e.Offline),
			boolOrEmpty(e.IncognitoMode),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolOrEmpty(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
