// Package config loads the reconciler's TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ErrMissingDatabaseURL is returned when neither the config file nor
// the DATABASE_URL environment variable provides a database URL.
var ErrMissingDatabaseURL = errors.New("missing database URL (set database_url in the config file or DATABASE_URL in the environment)")

// Config is the reconciler's file configuration. Spotify credentials
// are deliberately not part of it; they come from SPOTIFY_ID and
// SPOTIFY_SECRET in the environment.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string. The DATABASE_URL
	// environment variable overrides it.
	DatabaseURL string `toml:"database_url"`

	// HistoryDir holds the Spotify listen-history export files.
	HistoryDir string `toml:"history_dir"`

	// HistoryFilePrefix is the filename prefix of the export files.
	HistoryFilePrefix string `toml:"history_file_prefix"`

	// Market is the country code passed on catalog track fetches. The
	// catalog only reports relinking when a market is given.
	Market string `toml:"market"`

	Stats Stats `toml:"stats"`
}

// Stats configures the aggregation report.
type Stats struct {
	TopArtists        int      `toml:"top_artists"`
	MinListenFraction float64  `toml:"min_listen_fraction"`
	AlbumGroups       []string `toml:"album_groups"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HistoryDir:        "data",
		HistoryFilePrefix: "endsong",
		Market:            "US",
		Stats: Stats{
			TopArtists:        10,
			MinListenFraction: 0.75,
			AlbumGroups:       []string{"album", "appears_on"},
		},
	}
}

// Load reads the configuration file at path, layering it over the
// defaults and applying environment overrides. A missing file is not an
// error; the defaults (plus environment) apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	case err != nil:
		return Config{}, fmt.Errorf("reading config file: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}

	if cfg.DatabaseURL == "" {
		return Config{}, ErrMissingDatabaseURL
	}
	return cfg, nil
}
