// Package stats aggregates the reconciled listen history: per-track and
// per-artist listen rollups, and discography completion for top
// artists.
package stats

import (
	"sort"

	"github.com/justestif/go-spotify-listen-reconciler/internal/db"
)

// TrackListens is the aggregated listen rollup of one canonical track.
type TrackListens struct {
	TrackKnownID    string
	TrackName       string
	AlbumKnownID    string
	AlbumName       string
	AlbumArtistID   string
	AlbumArtistName string
	TimesListened   int
	TotalListenMS   int64
}

// UniqueTrackListens aggregates plays per canonical track: listen count
// and total listen time, with the first-seen names attached. Plays of
// exactly zero milliseconds are dropped before counting. The result is
// ordered by total listen time, descending.
func UniqueTrackListens(plays []db.KnownPlay) []TrackListens {
	byTrack := make(map[string]*TrackListens)
	var order []string

	for _, p := range plays {
		if p.MsPlayed == 0 {
			continue
		}

		agg, ok := byTrack[p.TrackKnownID]
		if !ok {
			agg = &TrackListens{
				TrackKnownID:    p.TrackKnownID,
				TrackName:       deref(p.TrackName),
				AlbumKnownID:    deref(p.AlbumKnownID),
				AlbumName:       deref(p.AlbumName),
				AlbumArtistID:   deref(p.AlbumArtistID),
				AlbumArtistName: deref(p.AlbumArtistName),
			}
			byTrack[p.TrackKnownID] = agg
			order = append(order, p.TrackKnownID)
		}

		agg.TimesListened++
		agg.TotalListenMS += int64(p.MsPlayed)
	}

	out := make([]TrackListens, 0, len(order))
	for _, id := range order {
		out = append(out, *byTrack[id])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalListenMS != out[j].TotalListenMS {
			return out[i].TotalListenMS > out[j].TotalListenMS
		}
		return out[i].TrackKnownID < out[j].TrackKnownID
	})
	return out
}

// ArtistRollup is the aggregated listen rollup of one artist across all
// of that artist's canonical tracks.
type ArtistRollup struct {
	ArtistID      string
	ArtistName    string
	TimesListened int
	TotalListenMS int64
}

// TotalListenHours reports the rollup's listen time in hours.
func (r ArtistRollup) TotalListenHours() float64 {
	return float64(r.TotalListenMS) / 1000 / 60 / 60
}

// TopArtistsByListenCount rolls up per-artist listen counts and returns
// the top n artists by count.
func TopArtistsByListenCount(plays []db.KnownPlay, n int) []ArtistRollup {
	rollups := artistRollups(plays)
	sort.SliceStable(rollups, func(i, j int) bool {
		if rollups[i].TimesListened != rollups[j].TimesListened {
			return rollups[i].TimesListened > rollups[j].TimesListened
		}
		return rollups[i].ArtistID < rollups[j].ArtistID
	})
	return head(rollups, n)
}

// TopArtistsByListenTime rolls up per-artist listen time and returns
// the top n artists by total time.
func TopArtistsByListenTime(plays []db.KnownPlay, n int) []ArtistRollup {
	rollups := artistRollups(plays)
	sort.SliceStable(rollups, func(i, j int) bool {
		if rollups[i].TotalListenMS != rollups[j].TotalListenMS {
			return rollups[i].TotalListenMS > rollups[j].TotalListenMS
		}
		return rollups[i].ArtistID < rollups[j].ArtistID
	})
	return head(rollups, n)
}

func artistRollups(plays []db.KnownPlay) []ArtistRollup {
	byArtist := make(map[string]*ArtistRollup)
	var order []string

	for _, t := range UniqueTrackListens(plays) {
		if t.AlbumArtistID == "" {
			continue
		}

		agg, ok := byArtist[t.AlbumArtistID]
		if !ok {
			agg = &ArtistRollup{
				ArtistID:   t.AlbumArtistID,
				ArtistName: t.AlbumArtistName,
			}
			byArtist[t.AlbumArtistID] = agg
			order = append(order, t.AlbumArtistID)
		}

		agg.TimesListened += t.TimesListened
		agg.TotalListenMS += t.TotalListenMS
	}

	out := make([]ArtistRollup, 0, len(order))
	for _, id := range order {
		out = append(out, *byArtist[id])
	}
	return out
}

func head(rollups []ArtistRollup, n int) []ArtistRollup {
	if n > 0 && len(rollups) > n {
		return rollups[:n]
	}
	return rollups
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
