// Package catalog wraps the Spotify Web API for the bulk metadata
// fetches a reconciliation run needs.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// Bulk endpoint chunk limits imposed by the Web API.
const (
	trackChunkSize  = 50
	albumChunkSize  = 20
	artistChunkSize = 50
)

var (
	// ErrMissingCredentials is returned when SPOTIFY_ID or SPOTIFY_SECRET
	// is not provided.
	ErrMissingCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET environment variable")

	// ErrServiceUnavailable is returned when the API reports a transient
	// failure. Callers abort the current reconciliation run; nothing is
	// committed and the run can be retried from the top.
	ErrServiceUnavailable = errors.New("spotify service unavailable")
)

// Client wraps the Spotify API client with bulk fetch methods.
type Client struct {
	api    *spotify.Client
	market string
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithMarket sets the market passed on track fetches. The API only
// reports relinking when a market is supplied.
func WithMarket(market string) Option {
	return func(c *Client) {
		c.market = market
	}
}

// WithLogger sets the structured logger used for fetch progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a catalog client around an already-authenticated Spotify
// API client.
func New(api *spotify.Client, opts ...Option) *Client {
	c := &Client{
		api:    api,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromCredentials authenticates with the OAuth2 client-credentials
// flow and returns a ready catalog client. Catalog reads need no user
// authorization, so the full authorization-code dance is unnecessary.
func NewFromCredentials(ctx context.Context, clientID, clientSecret string, opts ...Option) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting app token: %w", err)
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	return New(spotify.New(httpClient), opts...), nil
}

// apiError maps transient API failures (rate limiting, server errors)
// to ErrServiceUnavailable and wraps everything else as-is.
func apiError(op string, err error) error {
	var spErr spotify.Error
	if errors.As(err, &spErr) && (spErr.Status == http.StatusTooManyRequests || spErr.Status >= http.StatusInternalServerError) {
		return fmt.Errorf("%s: %w: %s", op, ErrServiceUnavailable, spErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// chunk splits ids into runs of at most size items.
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

func spotifyIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, len(ids))
	for i, id := range ids {
		out[i] = spotify.ID(id)
	}
	return out
}
