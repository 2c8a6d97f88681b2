package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// DefaultAlbumGroups is the album-group restriction used when the
// caller does not pick one: an artist's own albums plus compilations
// they appear on.
var DefaultAlbumGroups = []string{"album", "appears_on"}

var albumGroupTypes = map[string]spotify.AlbumType{
	"album":       spotify.AlbumTypeAlbum,
	"single":      spotify.AlbumTypeSingle,
	"appears_on":  spotify.AlbumTypeAppearsOn,
	"compilation": spotify.AlbumTypeCompilation,
}

// ArtistTracks returns every catalog track ID of each given artist,
// restricted to the given album groups (DefaultAlbumGroups when nil).
// Used to measure discography completion against the listen history.
func (c *Client) ArtistTracks(ctx context.Context, artistIDs []string, groups []string) (map[string][]string, error) {
	if len(groups) == 0 {
		groups = DefaultAlbumGroups
	}

	albumTypes := make([]spotify.AlbumType, 0, len(groups))
	for _, group := range groups {
		t, ok := albumGroupTypes[group]
		if !ok {
			return nil, fmt.Errorf("unknown album group %q", group)
		}
		albumTypes = append(albumTypes, t)
	}

	out := make(map[string][]string, len(artistIDs))
	for _, artistID := range artistIDs {
		albumIDs, err := c.artistAlbumIDs(ctx, artistID, albumTypes)
		if err != nil {
			return nil, err
		}

		var trackIDs []string
		for _, albumID := range albumIDs {
			ids, err := c.albumTrackIDs(ctx, albumID)
			if err != nil {
				return nil, err
			}
			trackIDs = append(trackIDs, ids...)
		}
		out[artistID] = trackIDs

		c.logger.Debug("fetched artist discography", "artist", artistID, "albums", len(albumIDs), "tracks", len(trackIDs))
	}
	return out, nil
}

func (c *Client) artistAlbumIDs(ctx context.Context, artistID string, albumTypes []spotify.AlbumType) ([]string, error) {
	page, err := c.api.GetArtistAlbums(ctx, spotify.ID(artistID), albumTypes, spotify.Limit(50))
	if err != nil {
		return nil, apiError("fetching artist albums", err)
	}

	var ids []string
	for {
		for _, album := range page.Albums {
			ids = append(ids, string(album.ID))
		}

		err = c.api.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, apiError("fetching next artist albums page", err)
		}
	}
	return ids, nil
}

func (c *Client) albumTrackIDs(ctx context.Context, albumID string) ([]string, error) {
	page, err := c.api.GetAlbumTracks(ctx, spotify.ID(albumID), spotify.Limit(50))
	if err != nil {
		return nil, apiError("fetching album tracks", err)
	}

	var ids []string
	for {
		for _, track := range page.Tracks {
			ids = append(ids, string(track.ID))
		}

		err = c.api.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, apiError("fetching next album tracks page", err)
		}
	}
	return ids, nil
}
