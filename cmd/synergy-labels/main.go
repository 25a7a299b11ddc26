// Command synergy-labels aggregates per-game draft records into pairwise
// synergy labels.
//
// Usage:
//
//	synergy-labels -games game_data.csv[.gz] -out labels.csv [-cards cards.csv] [-min-games 500] [-watch]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ramonehamilton/draft-synergy/internal/carddb"
	"github.com/ramonehamilton/draft-synergy/internal/config"
	"github.com/ramonehamilton/draft-synergy/internal/gamedata"
	"github.com/ramonehamilton/draft-synergy/internal/labels"
)

var (
	gamesPath = flag.String("games", "", "Path to game data CSV (plain or .gz)")
	cardsPath = flag.String("cards", "", "Path to card list CSV (needed for per-card column datasets)")
	dbPath    = flag.String("db", "", "Path to card directory database (default: from config, or in-memory)")
	outPath   = flag.String("out", "", "Output path for the label table CSV")
	minGames  = flag.Int("min-games", 0, "Minimum games with both cards present for a label (default: from config)")
	watch     = flag.Bool("watch", false, "Re-run aggregation whenever the game data file changes")
)

func main() {
	flag.Parse()

	if *gamesPath == "" || *outPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	threshold := cfg.Labels.MinBothPresent
	if *minGames > 0 {
		threshold = *minGames
	}

	ctx := context.Background()

	directory, err := openDirectory(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open card directory: %v", err)
	}
	defer func() { _ = directory.Close() }()

	if err := runOnce(ctx, directory, threshold); err != nil {
		log.Fatalf("Label generation failed: %v", err)
	}

	if *watch {
		if err := watchAndRerun(ctx, directory, threshold); err != nil {
			log.Fatalf("Watch mode failed: %v", err)
		}
	}
}

// openDirectory opens the card directory and imports the card list when one
// was given. Datasets with explicit ID-list columns work without one.
func openDirectory(ctx context.Context, cfg *config.Config) (*carddb.DB, error) {
	path := *dbPath
	if path == "" {
		path = cfg.Data.DatabasePath
	}
	if path == "" {
		path = ":memory:"
	}

	db, err := carddb.Open(carddb.DefaultConfig(path))
	if err != nil {
		return nil, err
	}

	cards := *cardsPath
	if cards == "" {
		cards = cfg.Data.CardsCSV
	}
	if cards != "" {
		n, err := db.ImportCSV(ctx, cards)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("import cards: %w", err)
		}
		log.Printf("[Labels] Imported %d cards into the directory", n)
	}

	return db, nil
}

// runOnce streams the game data through a fresh aggregator and writes the
// label table.
func runOnce(ctx context.Context, directory *carddb.DB, threshold int) error {
	start := time.Now()

	agg, err := labels.NewAggregator(labels.WithMinBothPresent(uint64(threshold)))
	if err != nil {
		return fmt.Errorf("create aggregator: %w", err)
	}

	reader, err := gamedata.Open(ctx, *gamesPath, directory)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read game data: %w", err)
		}
		if err := agg.Observe(row.Present, row.Won); err != nil {
			return fmt.Errorf("observe game %d: %w", agg.Games(), err)
		}
		if agg.Games()%100000 == 0 {
			log.Printf("[Labels] Processed %d games...", agg.Games())
		}
	}

	winRate := 0.0
	if agg.Games() > 0 {
		winRate = float64(agg.Wins()) / float64(agg.Games())
	}
	log.Printf("[Labels] Aggregation complete: %d games, %d wins (%.4f), %d cards, %d pairs",
		agg.Games(), agg.Wins(), winRate, agg.Cards(), agg.Pairs())

	written, err := labels.WriteCSV(agg, *outPath)
	if err != nil {
		return fmt.Errorf("write labels: %w", err)
	}

	log.Printf("[Labels] Wrote %d labels (pairs with at least %d co-occurrences) to %s in %s",
		written, threshold, *outPath, time.Since(start).Round(time.Millisecond))
	return nil
}

// watchAndRerun re-runs aggregation whenever the game data file is rewritten,
// debounced so editors and downloaders that write in bursts trigger one run.
func watchAndRerun(ctx context.Context, directory *carddb.DB, threshold int) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: many tools replace the file by rename, which
	// drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(*gamesPath)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(*gamesPath), err)
	}

	log.Printf("[Labels] Watching %s for changes...", *gamesPath)

	const debounce = 2 * time.Second
	var timer *time.Timer
	runs := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(*gamesPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case runs <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[Labels] Watch error: %v", err)
		case <-runs:
			log.Printf("[Labels] Game data changed, re-aggregating...")
			if err := runOnce(ctx, directory, threshold); err != nil {
				log.Printf("[Labels] Re-aggregation failed: %v", err)
			}
		}
	}
}
