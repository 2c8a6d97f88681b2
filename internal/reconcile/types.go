// Package reconcile resolves canonical track and album identities from
// Spotify catalog metadata.
//
// Spotify silently relinks deprecated track IDs to canonical ones, but
// only exposes the relation for tracks. The album-level relation has to
// be inferred transitively through the tracks that carry both an
// obsolete and a canonical identity; Resolver implements that chase.
package reconcile

// FullTrack is the catalog's complete representation of a track,
// including its album and artist sub-records and the relink pointer.
// Optional catalog fields are modeled as pointers; a nil value means
// the catalog did not supply one.
type FullTrack struct {
	ID          string
	Name        string
	DurationMS  int
	DiscNumber  int
	TrackNumber int
	Explicit    bool
	Popularity  int
	IsLocal     bool
	IsPlayable  *bool
	ISRC        *string
	Href        string
	URI         string
	PreviewURL  *string

	// LinkedFromID is the deprecated track ID this record was reached
	// through, when the catalog relinked the request ID.
	LinkedFromID *string

	Album   TrackAlbum
	Artists []TrackArtist
}

// TrackAlbum is the album sub-record carried by a FullTrack.
type TrackAlbum struct {
	ID                   string
	Name                 string
	TotalTracks          int
	ReleaseDate          string
	ReleaseDatePrecision string
	AlbumType            string
	Href                 string
	URI                  string
	Artists              []TrackArtist
}

// TrackArtist is the artist sub-record carried by a FullTrack. Follower
// and popularity figures require a dedicated artist fetch and are not
// available here.
type TrackArtist struct {
	ID   string
	Name string
	Href string
	URI  string
}

// FullArtist carries the attributes only available from a dedicated
// bulk artist fetch, including genres.
type FullArtist struct {
	ID             string
	Name           string
	TotalFollowers int
	Popularity     int
	Href           string
	URI            string
	Genres         []string
}

// AlbumAvailability is the result of the bulk album fetch used to fill
// Album.IsAvailable in a join pass after resolution.
type AlbumAvailability struct {
	ID        string
	Available bool
}

// Track is the flat track record handed to storage. ID is always the
// canonical (known) track ID.
type Track struct {
	ID          string
	Name        string
	DurationMS  int
	DiscNumber  int
	TrackNumber int
	Explicit    bool
	Popularity  int
	IsLocal     bool
	IsPlayable  *bool
	ISRC        *string
	Href        string
	URI         string
	PreviewURL  *string
}

// Album is the flat album record handed to storage. IsAvailable stays
// nil until the availability join pass fills it.
type Album struct {
	ID                   string
	Name                 string
	TotalTracks          int
	ReleaseDate          string
	ReleaseDatePrecision string
	AlbumType            string
	IsAvailable          *bool
	Href                 string
	URI                  string
}

// Artist is the flat artist record handed to storage.
type Artist struct {
	ID             string
	Name           string
	TotalFollowers int
	Popularity     int
	Href           string
	URI            string
}

// Genre is an independent genre name, associated to artists through
// ArtistGenre rows.
type Genre struct {
	Name string
}

// LinkedTrack maps a deprecated track ID to its canonical counterpart.
// A track that was never relinked maps to itself.
type LinkedTrack struct {
	FromID  string
	KnownID string
}

// LinkedAlbum maps a deprecated album ID to its canonical counterpart.
// A missing row means the album is self-canonical; consumers must treat
// absence as a reflexive mapping.
type LinkedAlbum struct {
	FromID  string
	KnownID string
}

// AlbumTrack associates a canonical album with a track. TrackID is the
// obsolete ID when the track is relinked, because the association is
// recorded at the moment the relink target is observed.
type AlbumTrack struct {
	AlbumID string
	TrackID string
}

// ArtistAlbum associates an artist with an album they own. Artists
// merely featured on a track do not get a row.
type ArtistAlbum struct {
	ArtistID   string
	AlbumID    string
	AlbumGroup *string
}

// ArtistGenre associates an artist with one of its genres.
type ArtistGenre struct {
	ArtistID  string
	GenreName string
}

// Batches holds the deduplicated flat records produced by one
// reconciliation run, ready for storage.
type Batches struct {
	Tracks       []Track
	Albums       []Album
	Artists      []Artist
	Genres       []Genre
	LinkedTracks []LinkedTrack
	LinkedAlbums []LinkedAlbum
	AlbumTracks  []AlbumTrack
	ArtistAlbums []ArtistAlbum
	ArtistGenres []ArtistGenre
}
