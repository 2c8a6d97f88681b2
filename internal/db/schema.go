package db

// schema defines the reconciler's tables and the joined view. Every
// table is keyed by the catalog's own identifiers; a run only ever
// upserts, so reapplying the schema is safe.
const schema = `
CREATE TABLE IF NOT EXISTS tracks (
	track_id     text PRIMARY KEY,
	name         text NOT NULL,
	duration_ms  integer,
	disc_number  integer,
	track_number integer,
	explicit     boolean,
	popularity   integer,
	is_local     boolean,
	is_playable  boolean,
	isrc         text,
	href         text,
	uri          text,
	preview_url  text,
	created_at   timestamptz NOT NULL DEFAULT now(),
	updated_at   timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS albums (
	album_id               text PRIMARY KEY,
	name                   text NOT NULL,
	total_tracks           integer,
	release_date           text,
	release_date_precision text,
	album_type             text,
	is_available           boolean,
	href                   text,
	uri                    text,
	created_at             timestamptz NOT NULL DEFAULT now(),
	updated_at             timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS artists (
	artist_id       text PRIMARY KEY,
	name            text NOT NULL,
	total_followers integer,
	popularity      integer,
	href            text,
	uri             text,
	created_at      timestamptz NOT NULL DEFAULT now(),
	updated_at      timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS genres (
	genre_name text PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS artists_genres (
	artist_id  text NOT NULL,
	genre_name text NOT NULL,
	PRIMARY KEY (artist_id, genre_name)
);

CREATE TABLE IF NOT EXISTS linked_tracks (
	from_id     text PRIMARY KEY,
	relinked_id text NOT NULL
);

CREATE TABLE IF NOT EXISTS linked_albums (
	from_id     text PRIMARY KEY,
	relinked_id text NOT NULL
);

CREATE TABLE IF NOT EXISTS albums_tracks (
	album_id text NOT NULL,
	track_id text NOT NULL,
	PRIMARY KEY (album_id, track_id)
);

CREATE TABLE IF NOT EXISTS artists_albums (
	artist_id   text NOT NULL,
	album_id    text NOT NULL,
	album_group text,
	PRIMARY KEY (artist_id, album_id)
);

CREATE TABLE IF NOT EXISTS listen_history (
	username          text NOT NULL,
	time_stamp        timestamptz NOT NULL,
	track_id          text NOT NULL,
	uri               text,
	track_name        text,
	album_artist_name text,
	album_name        text,
	ms_played         integer NOT NULL,
	reason_start      text,
	reason_end        text,
	skipped           boolean,
	platform          text,
	conn_country      text,
	shuffle           boolean,
	offline           boolean,
	incognito_mode    boolean,
	PRIMARY KEY (username, time_stamp, track_id)
);

CREATE TABLE IF NOT EXISTS reconcile_runs (
	run_id        uuid PRIMARY KEY,
	started_at    timestamptz NOT NULL,
	finished_at   timestamptz NOT NULL,
	plays         integer NOT NULL,
	tracks        integer NOT NULL,
	albums        integer NOT NULL,
	artists       integer NOT NULL,
	linked_tracks integer NOT NULL,
	linked_albums integer NOT NULL
);

-- Every raw play joined through the identity mappings to its canonical
-- track, album and album artist. A missing linked_tracks or
-- linked_albums row means the identifier is self-canonical, hence the
-- COALESCE fallbacks.
CREATE OR REPLACE VIEW v_known_listen_history AS
SELECT
	lh.username,
	lh.time_stamp,
	lh.track_id AS track_listened_id,
	COALESCE(lt.relinked_id, lh.track_id) AS track_known_id,
	t.name AS track_name,
	t.duration_ms AS track_duration_ms,
	COALESCE(la.relinked_id, abt.album_id) AS album_known_id,
	al.name AS album_name,
	owner.artist_id AS album_artist_id,
	owner.name AS album_artist_name,
	lh.ms_played,
	lh.reason_start,
	lh.reason_end,
	lh.skipped,
	lh.platform,
	lh.conn_country,
	lh.uri,
	lh.shuffle,
	lh.offline,
	lh.incognito_mode
FROM listen_history lh
LEFT JOIN linked_tracks lt ON lt.from_id = lh.track_id
LEFT JOIN tracks t ON t.track_id = COALESCE(lt.relinked_id, lh.track_id)
LEFT JOIN albums_tracks abt ON abt.track_id = lh.track_id
LEFT JOIN linked_albums la ON la.from_id = abt.album_id
LEFT JOIN albums al ON al.album_id = COALESCE(la.relinked_id, abt.album_id)
LEFT JOIN LATERAL (
	SELECT ar.artist_id, ar.name
	FROM artists_albums aa
	JOIN artists ar ON ar.artist_id = aa.artist_id
	WHERE aa.album_id = COALESCE(la.relinked_id, abt.album_id)
	ORDER BY ar.artist_id
	LIMIT 1
) owner ON TRUE;
`
