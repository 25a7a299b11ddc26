// Command synergy-train fits the factorization model to a label table.
//
// Usage:
//
//	synergy-train -labels labels.csv -out model.bin [-lr 0.01] [-l2 0.001] [-epochs 50] [-seed N]
package main

import (
	"flag"
	"log"
	"os"

	"github.com/ramonehamilton/draft-synergy/internal/config"
	"github.com/ramonehamilton/draft-synergy/internal/labels"
	"github.com/ramonehamilton/draft-synergy/internal/model"
	"github.com/ramonehamilton/draft-synergy/internal/train"
)

var (
	labelsPath   = flag.String("labels", "", "Path to the label table CSV")
	outPath      = flag.String("out", "", "Output path for the binary model artifact")
	learningRate = flag.Float64("lr", 0, "Learning rate (default: from config)")
	l2Penalty    = flag.Float64("l2", 0, "L2 regularization strength (default: from config)")
	epochs       = flag.Int("epochs", 0, "Number of training epochs (default: from config)")
	seed         = flag.Int64("seed", 0, "RNG seed for shuffling and initialization (0 = time-based)")
)

func main() {
	flag.Parse()

	if *labelsPath == "" || *outPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	tc := &train.Config{
		LearningRate: cfg.Training.LearningRate,
		L2Penalty:    cfg.Training.L2Penalty,
		Epochs:       cfg.Training.Epochs,
		EmbeddingDim: cfg.Training.EmbeddingDim,
		Seed:         *seed,
	}
	if *learningRate > 0 {
		tc.LearningRate = *learningRate
	}
	if *l2Penalty > 0 {
		tc.L2Penalty = *l2Penalty
	}
	if *epochs > 0 {
		tc.Epochs = *epochs
	}

	log.Printf("[Train] Labels: %s", *labelsPath)
	log.Printf("[Train] Learning rate %.6f, L2 %.6f, %d epochs, dimension %d",
		tc.LearningRate, tc.L2Penalty, tc.Epochs, tc.EmbeddingDim)

	records, err := labels.ReadCSV(*labelsPath)
	if err != nil {
		log.Fatalf("Failed to load labels: %v", err)
	}
	samples := train.SamplesFromRecords(records)
	log.Printf("[Train] Loaded %d training samples", len(samples))

	m, result, err := train.Train(samples, tc)
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	log.Printf("[Train] Training complete: final MSE %.6f, %d cards, global bias %.6f",
		result.FinalMSE, result.Cards, m.GlobalBias)

	if err := model.Save(m, *outPath); err != nil {
		log.Fatalf("Failed to save model: %v", err)
	}
	log.Printf("[Train] Saved model to %s", *outPath)
}
