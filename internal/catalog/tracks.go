package catalog

import (
	"context"
	"strings"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-listen-reconciler/internal/reconcile"
)

// localURIPrefix marks tracks that live only in the user's local
// library, not in the catalog.
const localURIPrefix = "spotify:local:"

// FullTracks fetches complete track records for the given IDs, in
// API-sized chunks. IDs the catalog does not recognize are dropped
// silently; a transient API failure surfaces as ErrServiceUnavailable.
func (c *Client) FullTracks(ctx context.Context, ids []string) ([]reconcile.FullTrack, error) {
	var out []reconcile.FullTrack

	var opts []spotify.RequestOption
	if c.market != "" {
		opts = append(opts, spotify.Market(c.market))
	}

	for _, part := range chunk(ids, trackChunkSize) {
		tracks, err := c.api.GetTracks(ctx, spotifyIDs(part), opts...)
		if err != nil {
			return nil, apiError("fetching full tracks", err)
		}

		for _, t := range tracks {
			if t == nil {
				continue
			}
			out = append(out, convertFullTrack(t))
		}

		c.logger.Debug("fetched full tracks", "requested", len(part), "total", len(out))
	}
	return out, nil
}

// convertFullTrack converts a Spotify FullTrack into the resolver's
// input shape. Absent optional fields become nil, never an error.
func convertFullTrack(t *spotify.FullTrack) reconcile.FullTrack {
	ft := reconcile.FullTrack{
		ID:          string(t.ID),
		Name:        t.Name,
		DurationMS:  int(t.Duration),
		DiscNumber:  int(t.DiscNumber),
		TrackNumber: int(t.TrackNumber),
		Explicit:    t.Explicit,
		Popularity:  int(t.Popularity),
		IsLocal:     strings.HasPrefix(string(t.URI), localURIPrefix),
		IsPlayable:  t.IsPlayable,
		Href:        t.Endpoint,
		URI:         string(t.URI),
		Album:       convertTrackAlbum(t.Album),
		Artists:     convertTrackArtists(t.Artists),
	}

	if isrc, ok := t.ExternalIDs["isrc"]; ok && isrc != "" {
		ft.ISRC = &isrc
	}
	if t.PreviewURL != "" {
		preview := t.PreviewURL
		ft.PreviewURL = &preview
	}
	if t.LinkedFrom != nil {
		linkedID := string(t.LinkedFrom.ID)
		ft.LinkedFromID = &linkedID
	}

	return ft
}

func convertTrackAlbum(a spotify.SimpleAlbum) reconcile.TrackAlbum {
	return reconcile.TrackAlbum{
		ID:                   string(a.ID),
		Name:                 a.Name,
		TotalTracks:          int(a.TotalTracks),
		ReleaseDate:          a.ReleaseDate,
		ReleaseDatePrecision: a.ReleaseDatePrecision,
		AlbumType:            a.AlbumType,
		Href:                 a.Endpoint,
		URI:                  string(a.URI),
		Artists:              convertTrackArtists(a.Artists),
	}
}

func convertTrackArtists(artists []spotify.SimpleArtist) []reconcile.TrackArtist {
	out := make([]reconcile.TrackArtist, len(artists))
	for i, a := range artists {
		out[i] = reconcile.TrackArtist{
			ID:   string(a.ID),
			Name: a.Name,
			Href: a.Endpoint,
			URI:  string(a.URI),
		}
	}
	return out
}
