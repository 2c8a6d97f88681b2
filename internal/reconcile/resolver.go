package reconcile

import (
	"fmt"
	"sort"
)

// Resolution is the outcome of an identity lookup during a run. The
// three states are distinct on purpose: an ID that has not been chased
// yet is not the same as an ID the chase confirmed has no mapping.
type Resolution int

const (
	// ResolutionPending means the chase has not produced an answer yet;
	// a later fetch or the suspected-album pass may still resolve it.
	ResolutionPending Resolution = iota

	// ResolutionResolved means a canonical ID is known.
	ResolutionResolved

	// ResolutionUnresolvable means the chase completed without finding
	// a mapping. Consumers treat the ID as self-canonical.
	ResolutionUnresolvable
)

// Resolver accumulates identity mappings and flat entity records over
// one reconciliation run. All state is run-scoped: build a new Resolver
// per run and discard it afterwards.
//
// Usage: feed every record of the first bulk fetch through Observe,
// fetch full tracks for PendingKnownTracks and feed them through
// ObserveKnown, call ResolveSuspectedAlbums, add the bulk artist fetch
// through AddArtists, then collect the deduplicated output with
// Finalize.
type Resolver struct {
	// trackKnown maps every observed track ID, obsolete or not, to its
	// canonical ID. Non-relinked tracks map to themselves.
	trackKnown map[string]string

	// knownTrackAlbums maps a canonical track ID to its album ID, as
	// observed on records taking the non-relinked branch.
	knownTrackAlbums map[string]string

	// albumKnown maps a relinked album ID to its canonical ID. Albums
	// observed only through non-relinked tracks are not entered here;
	// their reflexive mapping exists solely as emitted LinkedAlbum rows.
	albumKnown map[string]string

	// albumTracks is the album → listening-track adjacency used by the
	// suspected-album pass. The member is the obsolete track ID when
	// the track is relinked.
	albumTracks map[string]map[string]struct{}

	// pendingKnown holds canonical IDs of relink targets whose own
	// album membership has not been observed yet.
	pendingKnown map[string]struct{}

	suspectedAlbums map[string]struct{}

	albumIDs  map[string]struct{}
	artistIDs map[string]struct{}
	genres    map[string]struct{}

	batch Batches

	// chased flips once ResolveSuspectedAlbums has run; from then on an
	// unmapped album is confirmed unresolvable rather than pending.
	chased bool
}

// NewResolver creates an empty run-scoped resolver.
func NewResolver() *Resolver {
	return &Resolver{
		trackKnown:       make(map[string]string),
		knownTrackAlbums: make(map[string]string),
		albumKnown:       make(map[string]string),
		albumTracks:      make(map[string]map[string]struct{}),
		pendingKnown:     make(map[string]struct{}),
		suspectedAlbums:  make(map[string]struct{}),
		albumIDs:         make(map[string]struct{}),
		artistIDs:        make(map[string]struct{}),
		genres:           make(map[string]struct{}),
	}
}

// Observe runs the first-pass logic on one full track record from the
// initial bulk fetch.
func (r *Resolver) Observe(ft FullTrack) {
	r.collectEntities(ft)

	if ft.LinkedFromID == nil {
		r.observePlain(ft)
	} else {
		r.observeRelinked(ft, *ft.LinkedFromID)
	}
}

// observePlain handles a record the catalog did not relink. Its album
// is therefore not relinked either.
func (r *Resolver) observePlain(ft FullTrack) {
	// Reflexive rows keep the linkage tables total over every observed ID.
	r.batch.LinkedTracks = append(r.batch.LinkedTracks, LinkedTrack{FromID: ft.ID, KnownID: ft.ID})
	r.batch.LinkedAlbums = append(r.batch.LinkedAlbums, LinkedAlbum{FromID: ft.Album.ID, KnownID: ft.Album.ID})
	r.batch.AlbumTracks = append(r.batch.AlbumTracks, AlbumTrack{AlbumID: ft.Album.ID, TrackID: ft.ID})

	// A track is not supposed to belong to more than one album.
	r.knownTrackAlbums[ft.ID] = ft.Album.ID
	r.addAlbumTrack(ft.Album.ID, ft.ID)
	r.trackKnown[ft.ID] = ft.ID

	// This record may be the relink target of a previously-seen track.
	// It already supplies the target's album membership, so the extra
	// fetch for it is no longer needed.
	delete(r.pendingKnown, ft.ID)
}

// observeRelinked handles a relink target: the record's own ID is
// canonical and fromID is the deprecated ID the play log refers to.
// The record's album is suspected of being relinked too.
func (r *Resolver) observeRelinked(ft FullTrack, fromID string) {
	r.batch.LinkedTracks = append(r.batch.LinkedTracks, LinkedTrack{FromID: fromID, KnownID: ft.ID})

	// The association is keyed by the obsolete track ID, matching how
	// the catalog reports it.
	r.batch.AlbumTracks = append(r.batch.AlbumTracks, AlbumTrack{AlbumID: ft.Album.ID, TrackID: fromID})

	r.addAlbumTrack(ft.Album.ID, fromID)
	r.trackKnown[fromID] = ft.ID

	// The target's own album membership has not been observed yet.
	r.pendingKnown[ft.ID] = struct{}{}

	// Try to resolve the album right away, first through a mapping a
	// previous record established, then along the track link chain.
	knownAlbumID, ok := r.albumKnown[ft.Album.ID]
	if !ok {
		knownAlbumID, ok = r.knownTrackAlbums[r.trackKnown[fromID]]
	}

	if !ok {
		r.suspectedAlbums[ft.Album.ID] = struct{}{}
		return
	}

	r.albumKnown[ft.Album.ID] = knownAlbumID
	r.batch.LinkedAlbums = append(r.batch.LinkedAlbums, LinkedAlbum{FromID: ft.Album.ID, KnownID: knownAlbumID})
}

// ObserveKnown records the album membership of a relink target fetched
// in the follow-up bulk fetch. Only the membership maps and the flat
// entity records are touched; linkage rows for these records were
// already emitted when the relink was first observed.
func (r *Resolver) ObserveKnown(ft FullTrack) {
	r.knownTrackAlbums[ft.ID] = ft.Album.ID
	r.addAlbumTrack(ft.Album.ID, ft.ID)

	r.collectEntities(ft)
}

// collectEntities accumulates the flat Track/Album/ArtistAlbum records
// and the ID sets driving the later bulk fetches.
func (r *Resolver) collectEntities(ft FullTrack) {
	r.batch.Tracks = append(r.batch.Tracks, ExtractTrack(ft))
	r.batch.Albums = append(r.batch.Albums, ExtractAlbum(ft))
	r.batch.ArtistAlbums = append(r.batch.ArtistAlbums, ExtractArtistAlbums(ft)...)

	r.albumIDs[ft.Album.ID] = struct{}{}
	for _, a := range ft.Artists {
		r.artistIDs[a.ID] = struct{}{}
	}
}

func (r *Resolver) addAlbumTrack(albumID, trackID string) {
	set, ok := r.albumTracks[albumID]
	if !ok {
		set = make(map[string]struct{})
		r.albumTracks[albumID] = set
	}
	set[trackID] = struct{}{}
}

// PendingKnownTracks returns the canonical IDs of relink targets whose
// own album membership is still unobserved. Their full records must be
// fetched and fed through ObserveKnown before the suspected-album pass.
func (r *Resolver) PendingKnownTracks() []string {
	return sortedKeys(r.pendingKnown)
}

// ResolveSuspectedAlbums runs the second pass: every album still
// unresolved is chased through its listening tracks, translating each
// obsolete track ID to its canonical track and looking up that track's
// album. The first track that yields a resolved album wins; there is no
// further tie-break. An album no track can resolve is left without a
// LinkedAlbum row, which downstream consumers read as self-canonical.
func (r *Resolver) ResolveSuspectedAlbums() {
	r.chased = true
	for suspectedID := range r.suspectedAlbums {
		if knownAlbumID, ok := r.albumKnown[suspectedID]; ok {
			r.batch.LinkedAlbums = append(r.batch.LinkedAlbums, LinkedAlbum{FromID: suspectedID, KnownID: knownAlbumID})
			continue
		}

		for trackID := range r.albumTracks[suspectedID] {
			knownAlbumID, ok := r.knownTrackAlbums[r.trackKnown[trackID]]
			if !ok {
				continue
			}
			r.albumKnown[suspectedID] = knownAlbumID
			r.batch.LinkedAlbums = append(r.batch.LinkedAlbums, LinkedAlbum{FromID: suspectedID, KnownID: knownAlbumID})
			break
		}
	}
}

// TrackKnownID reports the canonical ID for a track observed during the
// run.
func (r *Resolver) TrackKnownID(id string) (string, Resolution) {
	if known, ok := r.trackKnown[id]; ok {
		return known, ResolutionResolved
	}
	return "", ResolutionUnresolvable
}

// AlbumKnownID reports the canonical ID for an album observed during
// the run. Before ResolveSuspectedAlbums has run, a suspected album is
// Pending; afterwards an album with no mapping is Unresolvable and must
// be treated as self-canonical.
func (r *Resolver) AlbumKnownID(id string) (string, Resolution) {
	if known, ok := r.albumKnown[id]; ok {
		return known, ResolutionResolved
	}
	if _, suspected := r.suspectedAlbums[id]; suspected && !r.chased {
		return "", ResolutionPending
	}
	return "", ResolutionUnresolvable
}

// AlbumIDs returns every album ID observed during the run, sorted for
// deterministic fetch order.
func (r *Resolver) AlbumIDs() []string {
	return sortedKeys(r.albumIDs)
}

// ArtistIDs returns every artist ID observed during the run, sorted for
// deterministic fetch order.
func (r *Resolver) ArtistIDs() []string {
	return sortedKeys(r.artistIDs)
}

// AddArtists accumulates the bulk artist fetch results: flat Artist
// records, the independent genre set, and the artist↔genre rows.
func (r *Resolver) AddArtists(artists []FullArtist) {
	for _, fa := range artists {
		r.batch.Artists = append(r.batch.Artists, ExtractArtist(fa))
		r.batch.ArtistGenres = append(r.batch.ArtistGenres, ExtractArtistGenres(fa)...)
		for _, genre := range fa.Genres {
			r.genres[genre] = struct{}{}
		}
	}
}

// Finalize deduplicates every accumulated batch and returns the result.
// The resolver's record accumulation is done after this call; only the
// identity lookups remain usable.
func (r *Resolver) Finalize() (*Batches, error) {
	var err error
	out := Batches{}

	if out.Tracks, err = Dedupe(r.batch.Tracks); err != nil {
		return nil, fmt.Errorf("deduplicating tracks: %w", err)
	}
	if out.Albums, err = Dedupe(r.batch.Albums); err != nil {
		return nil, fmt.Errorf("deduplicating albums: %w", err)
	}
	if out.Artists, err = Dedupe(r.batch.Artists); err != nil {
		return nil, fmt.Errorf("deduplicating artists: %w", err)
	}
	if out.LinkedTracks, err = Dedupe(r.batch.LinkedTracks); err != nil {
		return nil, fmt.Errorf("deduplicating linked tracks: %w", err)
	}
	if out.LinkedAlbums, err = Dedupe(r.batch.LinkedAlbums); err != nil {
		return nil, fmt.Errorf("deduplicating linked albums: %w", err)
	}
	if out.AlbumTracks, err = Dedupe(r.batch.AlbumTracks); err != nil {
		return nil, fmt.Errorf("deduplicating album tracks: %w", err)
	}
	if out.ArtistAlbums, err = Dedupe(r.batch.ArtistAlbums); err != nil {
		return nil, fmt.Errorf("deduplicating artist albums: %w", err)
	}
	if out.ArtistGenres, err = Dedupe(r.batch.ArtistGenres); err != nil {
		return nil, fmt.Errorf("deduplicating artist genres: %w", err)
	}

	for _, name := range sortedKeys(r.genres) {
		out.Genres = append(out.Genres, Genre{Name: name})
	}

	return &out, nil
}

// FillAlbumAvailability fills Album.IsAvailable on already-deduplicated
// album records from a bulk album-details fetch. Albums the fetch did
// not cover keep a nil availability.
func (b *Batches) FillAlbumAvailability(details []AlbumAvailability) {
	availability := make(map[string]bool, len(details))
	for _, d := range details {
		availability[d.ID] = d.Available
	}

	for i := range b.Albums {
		if avail, ok := availability[b.Albums[i].ID]; ok {
			a := avail
			b.Albums[i].IsAvailable = &a
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
