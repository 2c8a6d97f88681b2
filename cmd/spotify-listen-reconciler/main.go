// Command spotify-listen-reconciler ingests a Spotify listen-history
// export, reconciles relinked track and album identities against the
// Spotify catalog, and reports listening statistics from the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/justestif/go-spotify-listen-reconciler/internal/catalog"
	"github.com/justestif/go-spotify-listen-reconciler/internal/config"
	"github.com/justestif/go-spotify-listen-reconciler/internal/db"
	"github.com/justestif/go-spotify-listen-reconciler/internal/history"
	"github.com/justestif/go-spotify-listen-reconciler/internal/ingest"
	"github.com/justestif/go-spotify-listen-reconciler/internal/stats"
)

const usage = `Usage: spotify-listen-reconciler [flags] <command>

Commands:
  ingest    normalize the listen-history export, reconcile identities
            against the Spotify catalog and store the result
  stats     report listen counts, top artists and discography completion

Flags:
  -config   path to the TOML configuration file (default "reconciler.toml")
  -csv      with ingest: also write the normalized history to this CSV file
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// Credentials may live in a local .env file; absence is fine.
	_ = godotenv.Load()

	flags := flag.NewFlagSet("spotify-listen-reconciler", flag.ContinueOnError)
	configPath := flags.String("config", "reconciler.toml", "path to the configuration file")
	csvPath := flags.String("csv", "", "also write the normalized history to this CSV file")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() != 1 {
		flags.Usage()
		return fmt.Errorf("expected exactly one command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	switch cmd := flags.Arg(0); cmd {
	case "ingest":
		return runIngest(ctx, cfg, logger, *csvPath)
	case "stats":
		return runStats(ctx, cfg, logger)
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newCatalogClient(ctx context.Context, cfg config.Config, logger *slog.Logger) (*catalog.Client, error) {
	client, err := catalog.NewFromCredentials(ctx,
		os.Getenv("SPOTIFY_ID"),
		os.Getenv("SPOTIFY_SECRET"),
		catalog.WithMarket(cfg.Market),
		catalog.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating catalog client: %w", err)
	}
	return client, nil
}

func openDB(ctx context.Context, cfg config.Config) (*db.DB, error) {
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func runIngest(ctx context.Context, cfg config.Config, logger *slog.Logger, csvPath string) error {
	client, err := newCatalogClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	database, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	raw, err := history.ReadDir(cfg.HistoryDir, cfg.HistoryFilePrefix, logger)
	if err != nil {
		return err
	}
	events := history.Normalize(raw)
	if len(events) == 0 {
		return fmt.Errorf("no track plays found in %s", cfg.HistoryDir)
	}

	if csvPath != "" {
		if err := writeHistoryCSV(csvPath, events); err != nil {
			return err
		}
		logger.Info("wrote normalized history", "file", csvPath, "rows", len(events))
	}

	service := ingest.New(client, ingest.PGStore{DB: database}, ingest.WithLogger(logger))
	result, err := service.Run(ctx, events)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s committed: %d plays, %d tracks, %d albums, %d artists, %d relinked tracks, %d relinked albums.\n",
		result.RunID, result.Plays, result.Tracks, result.Albums, result.Artists,
		result.LinkedTracks, result.LinkedAlbums)
	return nil
}

func writeHistoryCSV(path string, events []history.PlayEvent) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv file: %w", err)
	}
	defer f.Close()

	if err := history.WriteCSV(f, events); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func runStats(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	database, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	plays, err := database.KnownListenHistory(ctx)
	if err != nil {
		return err
	}
	if len(plays) == 0 {
		return fmt.Errorf("no listen history stored; run ingest first")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Top %d artists by listen time\n", cfg.Stats.TopArtists)
	fmt.Fprintln(w, "ARTIST\tLISTENS\tHOURS")
	for _, r := range stats.TopArtistsByListenTime(plays, cfg.Stats.TopArtists) {
		fmt.Fprintf(w, "%s\t%d\t%.1f\n", r.ArtistName, r.TimesListened, r.TotalListenHours())
	}
	fmt.Fprintln(w)

	client, err := newCatalogClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	engine := stats.NewEngine(client, logger)
	completions, err := engine.DiscographyCompletion(ctx, plays, stats.CompletionConfig{
		TopArtists:        cfg.Stats.TopArtists,
		MinListenFraction: cfg.Stats.MinListenFraction,
		AlbumGroups:       cfg.Stats.AlbumGroups,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Discography completion")
	fmt.Fprintln(w, "ARTIST\tLISTENED\tTOTAL\tPERCENT")
	for _, c := range completions {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\n", c.ArtistName, c.ListenedTracks, c.TotalTracks, c.PercentListened)
	}

	return w.Flush()
}
