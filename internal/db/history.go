package db

import (
	"context"
	"fmt"
	"time"
)

// KnownPlay is one row of the v_known_listen_history view: a raw play
// joined to its canonical track, album and album artist. Fields coming
// from the joined tables are nullable because an identifier the catalog
// never returned has no metadata row.
type KnownPlay struct {
	Username        string
	Timestamp       time.Time
	TrackListenedID string
	TrackKnownID    string
	TrackName       *string
	TrackDurationMS *int
	AlbumKnownID    *string
	AlbumName       *string
	AlbumArtistID   *string
	AlbumArtistName *string
	MsPlayed        int
	ReasonStart     *string
	ReasonEnd       *string
	Skipped         *bool
	Platform        *string
	ConnCountry     *string
	Shuffle         *bool
	Offline         *bool
}

// KnownListenHistory reads the full joined listen history, ordered by
// user and time of listening.
func (db *DB) KnownListenHistory(ctx context.Context) ([]KnownPlay, error) {
	query := `
		SELECT username, time_stamp, track_listened_id, track_known_id, track_name,
			track_duration_ms, album_known_id, album_name, album_artist_id,
			album_artist_name, ms_played, reason_start, reason_end, skipped,
			platform, conn_country, shuffle, offline
		FROM v_known_listen_history
		ORDER BY username, time_stamp, ms_played
	`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying known listen history: %w", err)
	}
	defer rows.Close()

	var plays []KnownPlay
	for rows.Next() {
		var p KnownPlay
		if err := rows.Scan(
			&p.Username,
			&p.Timestamp,
			&p.TrackListenedID,
			&p.TrackKnownID,
			&p.TrackName,
			&p.TrackDurationMS,
			&p.AlbumKnownID,
			&p.AlbumName,
			&p.AlbumArtistID,
			&p.AlbumArtistName,
			&p.MsPlayed,
			&p.ReasonStart,
			&p.ReasonEnd,
			&p.Skipped,
			&p.Platform,
			&p.ConnCountry,
			&p.Shuffle,
			&p.Offline,
		); err != nil {
			return nil, fmt.Errorf("scanning known play: %w", err)
		}
		plays = append(plays, p)
	}
	return plays, rows.Err()
}
