// Package ingest runs a full reconciliation pass: normalized listen
// history in, resolved identity mappings and deduplicated entity
// records out to storage, all-or-nothing.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/go-spotify-listen-reconciler/internal/db"
	"github.com/justestif/go-spotify-listen-reconciler/internal/history"
	"github.com/justestif/go-spotify-listen-reconciler/internal/reconcile"
)

// Catalog is the remote metadata source a run fetches from. The
// implementation owns chunking and auth; a transient failure must
// surface as an error, which aborts the run.
type Catalog interface {
	FullTracks(ctx context.Context, ids []string) ([]reconcile.FullTrack, error)
	FullAlbums(ctx context.Context, ids []string) ([]reconcile.AlbumAvailability, error)
	FullArtists(ctx context.Context, ids []string) ([]reconcile.FullArtist, error)
}

// RunWriter writes one run's batches inside a single transaction.
type RunWriter interface {
	InsertListenHistory(ctx context.Context, events []history.PlayEvent) error
	InsertTracks(ctx context.Context, tracks []reconcile.Track) error
	InsertAlbums(ctx context.Context, albums []reconcile.Album) error
	InsertArtists(ctx context.Context, artists []reconcile.Artist) error
	InsertGenres(ctx context.Context, genres []reconcile.Genre) error
	InsertArtistGenres(ctx context.Context, rows []reconcile.ArtistGenre) error
	InsertLinkedTracks(ctx context.Context, rows []reconcile.LinkedTrack) error
	InsertLinkedAlbums(ctx context.Context, rows []reconcile.LinkedAlbum) error
	InsertAlbumTracks(ctx context.Context, rows []reconcile.AlbumTrack) error
	InsertArtistAlbums(ctx context.Context, rows []reconcile.ArtistAlbum) error
	InsertRun(ctx context.Context, rec db.RunRecord) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens run transactions.
type Store interface {
	BeginRun(ctx context.Context) (RunWriter, error)
}

// PGStore adapts db.DB to the Store interface.
type PGStore struct {
	DB *db.DB
}

// BeginRun opens a run transaction on the underlying database.
func (s PGStore) BeginRun(ctx context.Context) (RunWriter, error) {
	return s.DB.BeginRun(ctx)
}

// Service runs reconciliation passes.
type Service struct {
	catalog Catalog
	store   Store
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger for run progress.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a reconciliation service.
func New(catalog Catalog, store Store, opts ...Option) *Service {
	s := &Service{
		catalog: catalog,
		store:   store,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunResult summarizes one committed reconciliation run.
type RunResult struct {
	RunID        uuid.UUID
	Plays        int
	Tracks       int
	Albums       int
	Artists      int
	Genres       int
	LinkedTracks int
	LinkedAlbums int
	AlbumTracks  int
	ArtistAlbums int
}

// Run reconciles the given normalized listen history against the
// catalog and persists the result in one transaction. Any error aborts
// the run with storage untouched; the caller may retry from the top.
func (s *Service) Run(ctx context.Context, events []history.PlayEvent) (*RunResult, error) {
	startedAt := time.Now()
	runID := uuid.New()
	logger := s.logger.With("run_id", runID)

	rawIDs := uniqueTrackIDs(events)
	logger.Info("starting reconciliation run", "plays", len(events), "unique_tracks", len(rawIDs))

	fullTracks, err := s.catalog.FullTracks(ctx, rawIDs)
	if err != nil {
		return nil, fmt.Errorf("fetching listened tracks: %w", err)
	}

	resolver := reconcile.NewResolver()
	for _, ft := range fullTracks {
		resolver.Observe(ft)
	}

	// Relink targets whose own album membership was not in the first
	// fetch. Their records always take the non-relinked branch: a known
	// ID is never itself further relinked.
	pending := resolver.PendingKnownTracks()
	if len(pending) > 0 {
		logger.Info("fetching relink targets", "count", len(pending))

		knownTracks, err := s.catalog.FullTracks(ctx, pending)
		if err != nil {
			return nil, fmt.Errorf("fetching relink targets: %w", err)
		}
		for _, ft := range knownTracks {
			resolver.ObserveKnown(ft)
		}
	}

	resolver.ResolveSuspectedAlbums()

	artists, err := s.catalog.FullArtists(ctx, resolver.ArtistIDs())
	if err != nil {
		return nil, fmt.Errorf("fetching artists: %w", err)
	}
	resolver.AddArtists(artists)

	batches, err := resolver.Finalize()
	if err != nil {
		return nil, fmt.Errorf("finalizing batches: %w", err)
	}

	// Availability needs a dedicated album fetch; filled after dedup so
	// the join pass touches each album record once.
	availability, err := s.catalog.FullAlbums(ctx, resolver.AlbumIDs())
	if err != nil {
		return nil, fmt.Errorf("fetching album availability: %w", err)
	}
	batches.FillAlbumAvailability(availability)

	result := &RunResult{
		RunID:        runID,
		Plays:        len(events),
		Tracks:       len(batches.Tracks),
		Albums:       len(batches.Albums),
		Artists:      len(batches.Artists),
		Genres:       len(batches.Genres),
		LinkedTracks: len(batches.LinkedTracks),
		LinkedAlbums: len(batches.LinkedAlbums),
		AlbumTracks:  len(batches.AlbumTracks),
		ArtistAlbums: len(batches.ArtistAlbums),
	}

	if err := s.persist(ctx, events, batches, result, startedAt); err != nil {
		return nil, err
	}

	logger.Info("reconciliation run committed",
		"tracks", result.Tracks,
		"albums", result.Albums,
		"artists", result.Artists,
		"linked_tracks", result.LinkedTracks,
		"linked_albums", result.LinkedAlbums)

	return result, nil
}

// persist writes everything inside one transaction; the commit at the
// end gives the run all-or-nothing durability.
func (s *Service) persist(ctx context.Context, events []history.PlayEvent, batches *reconcile.Batches, result *RunResult, startedAt time.Time) error {
	w, err := s.store.BeginRun(ctx)
	if err != nil {
		return fmt.Errorf("beginning run: %w", err)
	}
	defer w.Rollback(ctx)

	if err := w.InsertListenHistory(ctx, events); err != nil {
		return err
	}
	if err := w.InsertTracks(ctx, batches.Tracks); err != nil {
		return err
	}
	if err := w.InsertLinkedTracks(ctx, batches.LinkedTracks); err != nil {
		return err
	}
	if err := w.InsertLinkedAlbums(ctx, batches.LinkedAlbums); err != nil {
		return err
	}
	if err := w.InsertArtists(ctx, batches.Artists); err != nil {
		return err
	}
	if err := w.InsertGenres(ctx, batches.Genres); err != nil {
		return err
	}
	if err := w.InsertArtistGenres(ctx, batches.ArtistGenres); err != nil {
		return err
	}
	if err := w.InsertAlbums(ctx, batches.Albums); err != nil {
		return err
	}
	if err := w.InsertAlbumTracks(ctx, batches.AlbumTracks); err != nil {
		return err
	}
	if err := w.InsertArtistAlbums(ctx, batches.ArtistAlbums); err != nil {
		return err
	}

	rec := db.RunRecord{
		ID:           result.RunID,
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
		Plays:        result.Plays,
		Tracks:       result.Tracks,
		Albums:       result.Albums,
		Artists:      result.Artists,
		LinkedTracks: result.LinkedTracks,
		LinkedAlbums: result.LinkedAlbums,
	}
	if err := w.InsertRun(ctx, rec); err != nil {
		return err
	}

	return w.Commit(ctx)
}

// uniqueTrackIDs returns the distinct raw track IDs of the play log in
// order of first appearance.
func uniqueTrackIDs(events []history.PlayEvent) []string {
	seen := make(map[string]struct{}, len(events))
	var ids []string
	for _, e := range events {
		if _, ok := seen[e.TrackID]; ok {
			continue
		}
		seen[e.TrackID] = struct{}{}
		ids = append(ids, e.TrackID)
	}
	return ids
}
