// Command synergy-predict looks up two cards by name and prints the model's
// predicted synergy for the pair.
//
// Usage:
//
//	synergy-predict -model model.bin -cards cards.csv "Card Name A" "Card Name B"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ramonehamilton/draft-synergy/internal/carddb"
	"github.com/ramonehamilton/draft-synergy/internal/config"
	"github.com/ramonehamilton/draft-synergy/internal/model"
)

var (
	modelPath = flag.String("model", "", "Path to the binary model artifact")
	cardsPath = flag.String("cards", "", "Path to card list CSV (default: from config)")
	dbPath    = flag.String("db", "", "Path to card directory database (default: from config, or in-memory)")
)

func main() {
	flag.Parse()

	if *modelPath == "" || flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s -model model.bin -cards cards.csv \"Card Name A\" \"Card Name B\"\n", os.Args[0])
		os.Exit(2)
	}
	nameA, nameB := flag.Arg(0), flag.Arg(1)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	path := *dbPath
	if path == "" {
		path = cfg.Data.DatabasePath
	}
	if path == "" {
		path = ":memory:"
	}
	directory, err := carddb.Open(carddb.DefaultConfig(path))
	if err != nil {
		log.Fatalf("Failed to open card directory: %v", err)
	}
	defer func() { _ = directory.Close() }()

	cards := *cardsPath
	if cards == "" {
		cards = cfg.Data.CardsCSV
	}
	if cards != "" {
		if _, err := directory.ImportCSV(ctx, cards); err != nil {
			log.Fatalf("Failed to import cards: %v", err)
		}
	}

	idA, err := directory.IDByName(ctx, nameA)
	if err != nil {
		log.Fatalf("Card not found: %q", nameA)
	}
	idB, err := directory.IDByName(ctx, nameB)
	if err != nil {
		log.Fatalf("Card not found: %q", nameB)
	}

	m, err := model.Load(*modelPath, cfg.Training.EmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	log.Printf("[Predict] Loaded model with %d cards, dimension %d", m.NumCards(), m.Dim)

	prediction := m.Predict(idA, idB)

	fmt.Printf("Card A: %s (ID %d)\n", nameA, idA)
	fmt.Printf("Card B: %s (ID %d)\n", nameB, idB)
	fmt.Printf("Predicted synergy: %.6f\n", prediction)
	fmt.Printf("Interpretation: %s\n", interpret(prediction))
}

// interpret buckets a prediction into the reporting bands used for the
// synergy delta scale.
func interpret(p float32) string {
	switch {
	case p > 0.02:
		return "strong positive synergy"
	case p > 0.005:
		return "moderate positive synergy"
	case p > -0.005:
		return "neutral (little to no synergy)"
	case p > -0.02:
		return "moderate negative synergy"
	default:
		return "strong negative synergy"
	}
}
