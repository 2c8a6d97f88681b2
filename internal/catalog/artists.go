package catalog

import (
	"context"

	"github.com/justestif/go-spotify-listen-reconciler/internal/reconcile"
)

// FullArtists fetches complete artist records, including follower
// counts, popularity and genres, in API-sized chunks.
func (c *Client) FullArtists(ctx context.Context, ids []string) ([]reconcile.FullArtist, error) {
	var out []reconcile.FullArtist

	for _, part := range chunk(ids, artistChunkSize) {
		artists, err := c.api.GetArtists(ctx, spotifyIDs(part)...)
		if err != nil {
			return nil, apiError("fetching full artists", err)
		}

		for _, a := range artists {
			if a == nil {
				continue
			}
			out = append(out, reconcile.FullArtist{
				ID:             string(a.ID),
				Name:           a.Name,
				TotalFollowers: int(a.Followers.Count),
				Popularity:     int(a.Popularity),
				Href:           a.Endpoint,
				URI:            string(a.URI),
				Genres:         a.Genres,
			})
		}

		c.logger.Debug("fetched full artists", "requested", len(part), "total", len(out))
	}
	return out, nil
}
