package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/justestif/go-spotify-listen-reconciler/internal/db"
)

// ArtistCatalog supplies each artist's full catalog track list,
// restricted to the given album groups.
type ArtistCatalog interface {
	ArtistTracks(ctx context.Context, artistIDs []string, groups []string) (map[string][]string, error)
}

// CompletionConfig controls the discography-completion calculation.
type CompletionConfig struct {
	// TopArtists is how many artists, ranked by total listen time, to
	// measure.
	TopArtists int

	// MinListenFraction is the fraction of a track's duration that must
	// have been played for the track to count as listened. Clamped to
	// [0, 1]: at 0 any recorded play counts, even one of 0ms; at 1 only
	// full-duration plays count.
	MinListenFraction float64

	// AlbumGroups restricts which parts of a discography count. Nil
	// means the catalog's default grouping.
	AlbumGroups []string
}

// DefaultCompletionConfig mirrors the defaults of the calculation this
// tool grew out of: top 10 artists, 75% of a track's duration.
func DefaultCompletionConfig() CompletionConfig {
	return CompletionConfig{
		TopArtists:        10,
		MinListenFraction: 0.75,
	}
}

// ArtistCompletion is how much of one artist's discography was
// listened to.
type ArtistCompletion struct {
	ArtistID        string
	ArtistName      string
	ListenedTracks  int
	TotalTracks     int
	PercentListened float64
}

// Engine computes aggregations that need catalog access.
type Engine struct {
	catalog ArtistCatalog
	logger  *slog.Logger
}

// NewEngine creates an aggregation engine.
func NewEngine(catalog ArtistCatalog, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{catalog: catalog, logger: logger}
}

// DiscographyCompletion ranks the top artists by total listen time and
// measures, for each, the fraction of their catalog tracks whose
// best-matching listen event played at least MinListenFraction of the
// track's duration. Results are ordered by completion percentage,
// descending.
func (e *Engine) DiscographyCompletion(ctx context.Context, plays []db.KnownPlay, cfg CompletionConfig) ([]ArtistCompletion, error) {
	fraction := clampFraction(cfg.MinListenFraction)

	top := TopArtistsByListenTime(plays, cfg.TopArtists)
	if len(top) == 0 {
		return nil, nil
	}

	artistIDs := make([]string, len(top))
	artistNames := make(map[string]string, len(top))
	topSet := make(map[string]struct{}, len(top))
	for i, r := range top {
		artistIDs[i] = r.ArtistID
		artistNames[r.ArtistID] = r.ArtistName
		topSet[r.ArtistID] = struct{}{}
	}

	listened := listenedTracks(plays, topSet, fraction)

	catalogTracks, err := e.catalog.ArtistTracks(ctx, artistIDs, cfg.AlbumGroups)
	if err != nil {
		return nil, fmt.Errorf("fetching artist catalogs: %w", err)
	}

	out := make([]ArtistCompletion, 0, len(artistIDs))
	for _, artistID := range artistIDs {
		tracks := catalogTracks[artistID]

		completion := ArtistCompletion{
			ArtistID:    artistID,
			ArtistName:  artistNames[artistID],
			TotalTracks: len(tracks),
		}
		for _, trackID := range tracks {
			if listened[trackID] {
				completion.ListenedTracks++
			}
		}
		if completion.TotalTracks > 0 {
			completion.PercentListened = float64(completion.ListenedTracks) / float64(completion.TotalTracks) * 100
		}
		out = append(out, completion)

		e.logger.Debug("measured discography completion",
			"artist", artistID,
			"listened", completion.ListenedTracks,
			"total", completion.TotalTracks)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PercentListened != out[j].PercentListened {
			return out[i].PercentListened > out[j].PercentListened
		}
		return out[i].ArtistID < out[j].ArtistID
	})
	return out, nil
}

// listenedTracks decides, per canonical track of the top artists,
// whether its single best listen event satisfies the play-fraction
// threshold. The best event is the one with maximal ms_played, ties
// broken by keeping the last in sort order.
func listenedTracks(plays []db.KnownPlay, topArtists map[string]struct{}, fraction float64) map[string]bool {
	restricted := make([]db.KnownPlay, 0, len(plays))
	for _, p := range plays {
		if p.AlbumArtistID == nil {
			continue
		}
		if _, ok := topArtists[*p.AlbumArtistID]; ok {
			restricted = append(restricted, p)
		}
	}

	sort.SliceStable(restricted, func(i, j int) bool {
		if restricted[i].TrackKnownID != restricted[j].TrackKnownID {
			return restricted[i].TrackKnownID < restricted[j].TrackKnownID
		}
		return restricted[i].MsPlayed < restricted[j].MsPlayed
	})

	best := make(map[string]db.KnownPlay, len(restricted))
	for _, p := range restricted {
		best[p.TrackKnownID] = p
	}

	out := make(map[string]bool, len(best))
	for trackID, p := range best {
		duration := 0
		if p.TrackDurationMS != nil {
			duration = *p.TrackDurationMS
		}
		out[trackID] = float64(p.MsPlayed) >= float64(duration)*fraction
	}
	return out
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
