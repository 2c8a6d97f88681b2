package catalog

import (
	"context"

	"github.com/justestif/go-spotify-listen-reconciler/internal/reconcile"
)

// FullAlbums fetches album details for the given IDs and reduces them
// to availability: an album is available when it is purchasable in at
// least one market.
func (c *Client) FullAlbums(ctx context.Context, ids []string) ([]reconcile.AlbumAvailability, error) {
	var out []reconcile.AlbumAvailability

	for _, part := range chunk(ids, albumChunkSize) {
		albums, err := c.api.GetAlbums(ctx, spotifyIDs(part))
		if err != nil {
			return nil, apiError("fetching full albums", err)
		}

		for _, a := range albums {
			if a == nil {
				continue
			}
			out = append(out, reconcile.AlbumAvailability{
				ID:        string(a.ID),
				Available: len(a.AvailableMarkets) > 0,
			})
		}

		c.logger.Debug("fetched full albums", "requested", len(part), "total", len(out))
	}
	return out, nil
}
