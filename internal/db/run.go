package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/justestif/go-spotify-listen-reconciler/internal/history"
	"github.com/justestif/go-spotify-listen-reconciler/internal/reconcile"
)

// RunRecord is the journal row written for one reconciliation run.
type RunRecord struct {
	ID           uuid.UUID
	StartedAt    time.Time
	FinishedAt   time.Time
	Plays        int
	Tracks       int
	Albums       int
	Artists      int
	LinkedTracks int
	LinkedAlbums int
}

// RunTx writes the record batches of one reconciliation run inside a
// single transaction. Nothing is visible to readers until Commit; a
// failed run rolls back and leaves storage exactly as it was.
type RunTx struct {
	tx pgx.Tx
}

// BeginRun opens the transaction for one reconciliation run.
func (db *DB) BeginRun(ctx context.Context) (*RunTx, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning run transaction: %w", err)
	}
	return &RunTx{tx: tx}, nil
}

// Commit flushes the run.
func (r *RunTx) Commit(ctx context.Context) error {
	if err := r.tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing run transaction: %w", err)
	}
	return nil
}

// Rollback abandons the run. Calling it after Commit is a no-op.
func (r *RunTx) Rollback(ctx context.Context) error {
	err := r.tx.Rollback(ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("rolling back run transaction: %w", err)
	}
	return nil
}

// InsertTracks upserts track records keyed by track_id.
func (r *RunTx) InsertTracks(ctx context.Context, tracks []reconcile.Track) error {
	if len(tracks) == 0 {
		return nil
	}

	query := `
		INSERT INTO tracks (track_id, name, duration_ms, disc_number, track_number, explicit,
			popularity, is_local, is_playable, isrc, href, uri, preview_url)
		SELECT * FROM unnest($1::text[], $2::text[], $3::int[], $4::int[], $5::int[], $6::bool[],
			$7::int[], $8::bool[], $9::bool[], $10::text[], $11::text[], $12::text[], $13::text[])
		ON CONFLICT (track_id) DO UPDATE SET
			name = EXCLUDED.name,
			duration_ms = EXCLUDED.duration_ms,
			disc_number = EXCLUDED.disc_number,
			track_number = EXCLUDED.track_number,
			explicit = EXCLUDED.explicit,
			popularity = EXCLUDED.popularity,
			is_local = EXCLUDED.is_local,
			is_playable = EXCLUDED.is_playable,
			isrc = EXCLUDED.isrc,
			href = EXCLUDED.href,
			uri = EXCLUDED.uri,
			preview_url = EXCLUDED.preview_url,
			updated_at = now()
	`

	ids := make([]string, len(tracks))
	names := make([]string, len(tracks))
	durations := make([]int, len(tracks))
	discNumbers := make([]int, len(tracks))
	trackNumbers := make([]int, len(tracks))
	explicits := make([]bool, len(tracks))
	popularities := make([]int, len(tracks))
	isLocals := make([]bool, len(tracks))
	isPlayables := make([]*bool, len(tracks))
	isrcs := make([]*string, len(tracks))
	hrefs := make([]string, len(tracks))
	uris := make([]string, len(tracks))
	previewURLs := make([]*string, len(tracks))

	for i, t := range tracks {
		ids[i] = t.ID
		names[i] = t.Name
		durations[i] = t.DurationMS
		discNumbers[i] = t.DiscNumber
		trackNumbers[i] = t.TrackNumber
		explicits[i] = t.Explicit
		popularities[i] = t.Popularity
		isLocals[i] = t.IsLocal
		isPlayables[i] = t.IsPlayable
		isrcs[i] = t.ISRC
		hrefs[i] = t.Href
		uris[i] = t.URI
		previewURLs[i] = t.PreviewURL
	}

	_, err := r.tx.Exec(ctx, query, ids, names, durations, discNumbers, trackNumbers, explicits,
		popularities, isLocals, isPlayables, isrcs, hrefs, uris, previewURLs)
	if err != nil {
		return fmt.Errorf("batch upserting tracks: %w", err)
	}
	return nil
}

// InsertAlbums upserts album records keyed by album_id.
func (r *RunTx) InsertAlbums(ctx context.Context, albums []reconcile.Album) error {
	if len(albums) == 0 {
		return nil
	}

	query := `
		INSERT INTO albums (album_id, name, total_tracks, release_date, release_date_precision,
			album_type, is_available, href, uri)
		SELECT * FROM unnest($1::text[], $2::text[], $3::int[], $4::text[], $5::text[],
			$6::text[], $7::bool[], $8::text[], $9::text[])
		ON CONFLICT (album_id) DO UPDATE SET
			name = EXCLUDED.name,
			total_tracks = EXCLUDED.total_tracks,
			release_date = EXCLUDED.release_date,
			release_date_precision = EXCLUDED.release_date_precision,
			album_type = EXCLUDED.album_type,
			is_available = EXCLUDED.is_available,
			href = EXCLUDED.href,
			uri = EXCLUDED.uri,
			updated_at = now()
	`

	ids := make([]string, len(albums))
	names := make([]string, len(albums))
	totals := make([]int, len(albums))
	releaseDates := make([]string, len(albums))
	precisions := make([]string, len(albums))
	albumTypes := make([]string, len(albums))
	availables := make([]*bool, len(albums))
	hrefs := make([]string, len(albums))
	uris := make([]string, len(albums))

	for i, a := range albums {
		ids[i] = a.ID
		names[i] = a.Name
		totals[i] = a.TotalTracks
		releaseDates[i] = a.ReleaseDate
		precisions[i] = a.ReleaseDatePrecision
		albumTypes[i] = a.AlbumType
		availables[i] = a.IsAvailable
		hrefs[i] = a.Href
		uris[i] = a.URI
	}

	_, err := r.tx.Exec(ctx, query, ids, names, totals, releaseDates, precisions, albumTypes,
		availables, hrefs, uris)
	if err != nil {
		return fmt.Errorf("batch upserting albums: %w", err)
	}
	return nil
}

// InsertArtists upserts artist records keyed by artist_id.
func (r *RunTx) InsertArtists(ctx context.Context, artists []reconcile.Artist) error {
	if len(artists) == 0 {
		return nil
	}

	query := `
		INSERT INTO artists (artist_id, name, total_followers, popularity, href, uri)
		SELECT * FROM unnest($1::text[], $2::text[], $3::int[], $4::int[], $5::text[], $6::text[])
		ON CONFLICT (artist_id) DO UPDATE SET
			name = EXCLUDED.name,
			total_followers = EXCLUDED.total_followers,
			popularity = EXCLUDED.popularity,
			href = EXCLUDED.href,
			uri = EXCLUDED.uri,
			updated_at = now()
	`

	ids := make([]string, len(artists))
	names := make([]string, len(artists))
	followers := make([]int, len(artists))
	popularities := make([]int, len(artists))
	hrefs := make([]string, len(artists))
	uris := make([]string, len(artists))

	for i, a := range artists {
		ids[i] = a.ID
		names[i] = a.Name
		followers[i] = a.TotalFollowers
		popularities[i] = a.Popularity
		hrefs[i] = a.Href
		uris[i] = a.URI
	}

	_, err := r.tx.Exec(ctx, query, ids, names, followers, popularities, hrefs, uris)
	if err != nil {
		return fmt.Errorf("batch upserting artists: %w", err)
	}
	return nil
}

// InsertGenres upserts independent genre names.
func (r *RunTx) InsertGenres(ctx context.Context, genres []reconcile.Genre) error {
	if len(genres) == 0 {
		return nil
	}

	query := `
		INSERT INTO genres (genre_name)
		SELECT * FROM unnest($1::text[])
		ON CONFLICT (genre_name) DO NOTHING
	`

	names := make([]string, len(genres))
	for i, g := range genres {
		names[i] = g.Name
	}

	if _, err := r.tx.Exec(ctx, query, names); err != nil {
		return fmt.Errorf("batch upserting genres: %w", err)
	}
	return nil
}

// InsertArtistGenres upserts artist↔genre association rows.
func (r *RunTx) InsertArtistGenres(ctx context.Context, rows []reconcile.ArtistGenre) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO artists_genres (artist_id, genre_name)
		SELECT * FROM unnest($1::text[], $2::text[])
		ON CONFLICT (artist_id, genre_name) DO NOTHING
	`

	artistIDs := make([]string, len(rows))
	genreNames := make([]string, len(rows))
	for i, row := range rows {
		artistIDs[i] = row.ArtistID
		genreNames[i] = row.GenreName
	}

	if _, err := r.tx.Exec(ctx, query, artistIDs, genreNames); err != nil {
		return fmt.Errorf("batch upserting artist genres: %w", err)
	}
	return nil
}

// InsertLinkedTracks upserts obsolete→canonical track mappings keyed by
// the obsolete ID.
func (r *RunTx) InsertLinkedTracks(ctx context.Context, rows []reconcile.LinkedTrack) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO linked_tracks (from_id, relinked_id)
		SELECT * FROM unnest($1::text[], $2::text[])
		ON CONFLICT (from_id) DO UPDATE SET relinked_id = EXCLUDED.relinked_id
	`

	fromIDs := make([]string, len(rows))
	knownIDs := make([]string, len(rows))
	for i, row := range rows {
		fromIDs[i] = row.FromID
		knownIDs[i] = row.KnownID
	}

	if _, err := r.tx.Exec(ctx, query, fromIDs, knownIDs); err != nil {
		return fmt.Errorf("batch upserting linked tracks: %w", err)
	}
	return nil
}

// InsertLinkedAlbums upserts obsolete→canonical album mappings keyed by
// the obsolete ID.
func (r *RunTx) InsertLinkedAlbums(ctx context.Context, rows []reconcile.LinkedAlbum) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO linked_albums (from_id, relinked_id)
		SELECT * FROM unnest($1::text[], $2::text[])
		ON CONFLICT (from_id) DO UPDATE SET relinked_id = EXCLUDED.relinked_id
	`

	fromIDs := make([]string, len(rows))
	knownIDs := make([]string, len(rows))
	for i, row := range rows {
		fromIDs[i] = row.FromID
		knownIDs[i] = row.KnownID
	}

	if _, err := r.tx.Exec(ctx, query, fromIDs, knownIDs); err != nil {
		return fmt.Errorf("batch upserting linked albums: %w", err)
	}
	return nil
}

// InsertAlbumTracks upserts album↔track association rows.
func (r *RunTx) InsertAlbumTracks(ctx context.Context, rows []reconcile.AlbumTrack) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO albums_tracks (album_id, track_id)
		SELECT * FROM unnest($1::text[], $2::text[])
		ON CONFLICT (album_id, track_id) DO NOTHING
	`

	albumIDs := make([]string, len(rows))
	trackIDs := make([]string, len(rows))
	for i, row := range rows {
		albumIDs[i] = row.AlbumID
		trackIDs[i] = row.TrackID
	}

	if _, err := r.tx.Exec(ctx, query, albumIDs, trackIDs); err != nil {
		return fmt.Errorf("batch upserting album tracks: %w", err)
	}
	return nil
}

// InsertArtistAlbums upserts artist↔album ownership rows.
func (r *RunTx) InsertArtistAlbums(ctx context.Context, rows []reconcile.ArtistAlbum) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO artists_albums (artist_id, album_id, album_group)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[])
		ON CONFLICT (artist_id, album_id) DO UPDATE SET album_group = EXCLUDED.album_group
	`

	artistIDs := make([]string, len(rows))
	albumIDs := make([]string, len(rows))
	albumGroups := make([]*string, len(rows))
	for i, row := range rows {
		artistIDs[i] = row.ArtistID
		albumIDs[i] = row.AlbumID
		albumGroups[i] = row.AlbumGroup
	}

	if _, err := r.tx.Exec(ctx, query, artistIDs, albumIDs, albumGroups); err != nil {
		return fmt.Errorf("batch upserting artist albums: %w", err)
	}
	return nil
}

// InsertListenHistory upserts normalized play events keyed by
// (username, time_stamp, track_id).
func (r *RunTx) InsertListenHistory(ctx context.Context, events []history.PlayEvent) error {
	if len(events) == 0 {
		return nil
	}

	query := `
		INSERT INTO listen_history (username, time_stamp, track_id, uri, track_name,
			album_artist_name, album_name, ms_played, reason_start, reason_end, skipped,
			platform, conn_country, shuffle, offline, incognito_mode)
		SELECT * FROM unnest($1::text[], $2::timestamptz[], $3::text[], $4::text[], $5::text[],
			$6::text[], $7::text[], $8::int[], $9::text[], $10::text[], $11::bool[],
			$12::text[], $13::text[], $14::bool[], $15::bool[], $16::bool[])
		ON CONFLICT (username, time_stamp, track_id) DO UPDATE SET
			ms_played = EXCLUDED.ms_played,
			reason_start = EXCLUDED.reason_start,
			reason_end = EXCLUDED.reason_end,
			skipped = EXCLUDED.skipped
	`

	usernames := make([]string, len(events))
	timestamps := make([]time.Time, len(events))
	trackIDs := make([]string, len(events))
	uris := make([]string, len(events))
	trackNames := make([]*string, len(events))
	artistNames := make([]*string, len(events))
	albumNames := make([]*string, len(events))
	msPlayed := make([]int, len(events))
	reasonStarts := make([]string, len(events))
	reasonEnds := make([]string, len(events))
	skipped := make([]*bool, len(events))
	platforms := make([]string, len(events))
	connCountries := make([]string, len(events))
	shuffles := make([]*bool, len(events))
	offlines := make([]*bool, len(events))
	incognitos := make([]*bool, len(events))

	for i, e := range events {
		usernames[i] = e.Username
		timestamps[i] = e.Timestamp
		trackIDs[i] = e.TrackID
		uris[i] = e.TrackURI
		trackNames[i] = e.TrackName
		artistNames[i] = e.AlbumArtistName
		albumNames[i] = e.AlbumName
		msPlayed[i] = e.MsPlayed
		reasonStarts[i] = e.ReasonStart
		reasonEnds[i] = e.ReasonEnd
		skipped[i] = e.Skipped
		platforms[i] = e.Platform
		connCountries[i] = e.ConnCountry
		shuffles[i] = e.Shuffle
		offlines[i] = e.Offline
		incognitos[i] = e.IncognitoMode
	}

	_, err := r.tx.Exec(ctx, query, usernames, timestamps, trackIDs, uris, trackNames,
		artistNames, albumNames, msPlayed, reasonStarts, reasonEnds, skipped,
		platforms, connCountries, shuffles, offlines, incognitos)
	if err != nil {
		return fmt.Errorf("batch upserting listen history: %w", err)
	}
	return nil
}

// InsertRun writes the journal row for a completed run.
func (r *RunTx) InsertRun(ctx context.Context, rec RunRecord) error {
	query := `
		INSERT INTO reconcile_runs (run_id, started_at, finished_at, plays, tracks, albums,
			artists, linked_tracks, linked_albums)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.tx.Exec(ctx, query, rec.ID, rec.StartedAt, rec.FinishedAt, rec.Plays,
		rec.Tracks, rec.Albums, rec.Artists, rec.LinkedTracks, rec.LinkedAlbums)
	if err != nil {
		return fmt.Errorf("inserting run record: %w", err)
	}
	return nil
}
