// Package history reads and normalizes Spotify listen-history exports.
//
// An export is a set of endsong*.json files, one JSON array of raw play
// rows per file. Normalization turns them into a canonical, uniquely
// keyed PlayEvent table ready to join against resolved catalog
// identities.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// trackURIPrefix starts every track URI in the export; everything after
// it is the raw catalog track ID.
const trackURIPrefix = "spotify:track:"

// DefaultFilePrefix is the filename prefix Spotify uses for listen
// history export files.
const DefaultFilePrefix = "endsong"

// RawPlay is one row of the export as Spotify delivers it. Fields the
// export may omit or null are pointers.
type RawPlay struct {
	TS              string  `json:"ts"`
	Username        string  `json:"username"`
	Platform        string  `json:"platform"`
	MsPlayed        int     `json:"ms_played"`
	ConnCountry     string  `json:"conn_country"`
	TrackName       *string `json:"master_metadata_track_name"`
	AlbumArtistName *string `json:"master_metadata_album_artist_name"`
	AlbumName       *string `json:"master_metadata_album_album_name"`
	SpotifyTrackURI *string `json:"spotify_track_uri"`
	EpisodeName     *string `json:"episode_name"`
	EpisodeShowName *string `json:"episode_show_name"`
	EpisodeURI      *string `json:"spotify_episode_uri"`
	ReasonStart     string  `json:"reason_start"`
	ReasonEnd       string  `json:"reason_end"`
	Shuffle         *bool   `json:"shuffle"`
	Skipped         *bool   `json:"skipped"`
	Offline         *bool   `json:"offline"`
	IncognitoMode   *bool   `json:"incognito_mode"`
}

// PlayEvent is one normalized listening event. It is uniquely keyed by
// (Username, Timestamp, TrackID) and immutable once ingested.
type PlayEvent struct {
	Username        string
	Timestamp       time.Time
	TrackID         string
	TrackURI        string
	TrackName       *string
	AlbumArtistName *string
	AlbumName       *string
	MsPlayed        int
	ReasonStart     string
	ReasonEnd       string
	Skipped         *bool
	Platform        string
	ConnCountry     string
	Shuffle         *bool
	Offline         *bool
	IncognitoMode   *bool
}

// ReadDir reads every export file in dir whose name starts with prefix
// and ends in .json, concatenating their rows. A file that cannot be
// read or parsed is skipped with a warning; ingestion continues with
// the remaining files.
func ReadDir(dir, prefix string, logger *slog.Logger) ([]RawPlay, error) {
	if prefix == "" {
		prefix = DefaultFilePrefix
	}
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading history dir: %w", err)
	}

	var all []RawPlay
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable history file", "file", name, "error", err)
			continue
		}

		var rows []RawPlay
		if err := json.Unmarshal(data, &rows); err != nil {
			logger.Warn("skipping unparsable history file", "file", name, "error", err)
			continue
		}

		logger.Info("read history file", "file", name, "rows", len(rows))
		all = append(all, rows...)
	}
	return all, nil
}

// Normalize cleans raw export rows into the canonical PlayEvent table:
// rows without a track reference (podcast episodes, malformed rows) are
// dropped, the raw track ID is derived from the URI, rows are sorted by
// (username, timestamp, ms_played) ascending, and duplicates on
// (timestamp, username, track_id) are collapsed keeping the last one,
// which the sort guarantees carries the maximal ms_played.
func Normalize(rows []RawPlay) []PlayEvent {
	events := make([]PlayEvent, 0, len(rows))
	for _, row := range rows {
		if row.SpotifyTrackURI == nil {
			continue
		}

		ts, _ := time.Parse(time.RFC3339, row.TS)

		events = append(events, PlayEvent{
			Username:        row.Username,
			Timestamp:       ts,
			TrackID:         strings.TrimPrefix(*row.SpotifyTrackURI, trackURIPrefix),
			TrackURI:        *row.SpotifyTrackURI,
			TrackName:       row.TrackName,
			AlbumArtistName: escapeArtistName(row.AlbumArtistName),
			AlbumName:       row.AlbumName,
			MsPlayed:        row.MsPlayed,
			ReasonStart:     row.ReasonStart,
			ReasonEnd:       row.ReasonEnd,
			Skipped:         row.Skipped,
			Platform:        row.Platform,
			ConnCountry:     row.ConnCountry,
			Shuffle:         row.Shuffle,
			Offline:         row.Offline,
			IncognitoMode:   row.IncognitoMode,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.MsPlayed < b.MsPlayed
	})

	return dedupePlays(events)
}

type playKey struct {
	username string
	ts       time.Time
	trackID  string
}

// dedupePlays collapses repeated plays of the same track at the same
// timestamp, keeping the last occurrence in sort order (the maximal
// ms_played). Distinct tracks at the same timestamp all survive.
func dedupePlays(events []PlayEvent) []PlayEvent {
	last := make(map[playKey]int, len(events))
	for i, e := range events {
		last[playKey{e.Username, e.Timestamp, e.TrackID}] = i
	}

	out := make([]PlayEvent, 0, len(last))
	for i, e := range events {
		if last[playKey{e.Username, e.Timestamp, e.TrackID}] == i {
			out = append(out, e)
		}
	}
	return out
}

// escapeArtistName escapes a literal "$$" in an artist name ("Joey
// Bada$$"), which downstream chart rendering would otherwise read as
// math-text markup.
func escapeArtistName(name *string) *string {
	if name == nil || !strings.Contains(*name, "$$") {
		return name
	}
	escaped := strings.ReplaceAll(*name, "$$", `\$\$`)
	return &escaped
}
