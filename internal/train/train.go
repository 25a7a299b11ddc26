// Package train fits the synergy factorization model: per-card embeddings
// and biases plus a global bias, trained by weighted stochastic gradient
// descent against the label table's synergy deltas.
package train

import (
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/ramonehamilton/draft-synergy/internal/labels"
	"github.com/ramonehamilton/draft-synergy/internal/model"
)

// ErrNoSamples is returned when training is attempted with an empty sample
// set; a model "trained" on nothing is worse than no model.
var ErrNoSamples = errors.New("train: no training samples")

// MaxWeight caps a sample's weight so very frequent pairs cannot dominate
// the gradient.
const MaxWeight = 1000.0

// Sample is one training example: a card pair, the target synergy delta and
// the evidence weight (the pair's co-occurrence count, clamped).
type Sample struct {
	CardA, CardB uint64
	Target       float64
	Weight       float64
}

// Config holds the training hyperparameters.
type Config struct {
	// LearningRate scales each gradient step.
	LearningRate float64

	// L2Penalty is the regularization strength applied to card biases and
	// embedding coordinates. The global bias is left unregularized.
	L2Penalty float64

	// Epochs is the fixed number of passes over the shuffled samples.
	Epochs int

	// EmbeddingDim is the per-card embedding dimension.
	EmbeddingDim int

	// Seed seeds the shuffle and initialization RNG. Zero means
	// time-based seeding.
	Seed int64
}

// DefaultConfig returns the reference hyperparameters.
func DefaultConfig() *Config {
	return &Config{
		LearningRate: 0.01,
		L2Penalty:    0.001,
		Epochs:       50,
		EmbeddingDim: model.DefaultDim,
	}
}

// SamplesFromRecords converts label records into training samples, weighting
// each pair by its co-occurrence count clamped to [1, MaxWeight].
func SamplesFromRecords(records []labels.Record) []Sample {
	samples := make([]Sample, 0, len(records))
	for _, rec := range records {
		w := float64(rec.N11)
		if w > MaxWeight {
			w = MaxWeight
		}
		if w < 1 {
			w = 1
		}
		samples = append(samples, Sample{
			CardA:  rec.CardA,
			CardB:  rec.CardB,
			Target: rec.SynDelta,
			Weight: w,
		})
	}
	return samples
}

// Result summarizes a completed training run.
type Result struct {
	FinalMSE float64
	Samples  int
	Cards    int
}

// Train fits a fresh model to the samples and returns it together with the
// final weighted mean squared error. The trainer owns the model's parameter
// table exclusively for the duration of the run.
func Train(samples []Sample, cfg *Config) (*model.Model, Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if len(samples) == 0 {
		return nil, Result{}, ErrNoSamples
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	m := model.New(cfg.EmbeddingDim)

	// Materialize every card's parameters up front so the hot loop never
	// allocates.
	for _, s := range samples {
		m.GetOrCreate(s.CardA, rng)
		m.GetOrCreate(s.CardB, rng)
	}

	// Fixed normalizer: gradient magnitude stays insensitive to dataset size.
	var totalWeight float64
	for _, s := range samples {
		totalWeight += s.Weight
	}

	lr := float32(cfg.LearningRate)
	reg := float32(cfg.L2Penalty)
	dim := m.Dim

	var mse float64
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		shuffle(samples, rng)

		var epochLoss, epochWeight float64
		for i := range samples {
			s := &samples[i]
			ca := m.Lookup(s.CardA)
			cb := m.Lookup(s.CardB)

			var dot float32
			for j := 0; j < dim; j++ {
				dot += ca.Embedding[j] * cb.Embedding[j]
			}
			pred := dot + ca.Bias + cb.Bias + m.GlobalBias

			errv := pred - float32(s.Target)
			w := float32(s.Weight)

			epochLoss += float64(errv) * float64(errv) * s.Weight
			epochWeight += s.Weight

			grad := 2 * errv * w / float32(totalWeight)

			ca.Bias -= lr * (grad + reg*ca.Bias)
			cb.Bias -= lr * (grad + reg*cb.Bias)
			m.GlobalBias -= lr * grad

			for j := 0; j < dim; j++ {
				ga := grad*cb.Embedding[j] + reg*ca.Embedding[j]
				gb := grad*ca.Embedding[j] + reg*cb.Embedding[j]
				ca.Embedding[j] -= lr * ga
				cb.Embedding[j] -= lr * gb
			}
		}

		mse = epochLoss / epochWeight
		if (epoch+1)%10 == 0 {
			log.Printf("[Trainer] Epoch %d/%d, MSE: %.6f", epoch+1, cfg.Epochs, mse)
		}
	}

	return m, Result{FinalMSE: mse, Samples: len(samples), Cards: m.NumCards()}, nil
}

// shuffle is a Fisher–Yates pass over the sample order.
func shuffle(samples []Sample, rng *rand.Rand) {
	for i := len(samples) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		samples[i], samples[j] = samples[j], samples[i]
	}
}
