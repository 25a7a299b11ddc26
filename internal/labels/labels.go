// Package labels turns a stream of per-game card-presence observations into
// pairwise synergy labels: four-bucket win statistics plus a smoothed
// win-rate differential for every card pair seen together often enough.
package labels

import (
	"errors"
	"fmt"
	"iter"
	"log"

	"github.com/ramonehamilton/draft-synergy/internal/accum"
)

const (
	// MinBothPresent is the default minimum number of games with both cards
	// present before a pair earns a label.
	MinBothPresent = 500

	// MaxGameCards caps the number of distinct cards counted for one game.
	// 17Lands game rows stay far below this; anything above it is truncated.
	MaxGameCards = 100

	// Beta(1,1) prior for win-rate smoothing.
	betaAlpha = 1.0
	betaBeta  = 1.0
)

// ErrNotEligible is returned by Derive when a pair is below the
// co-occurrence threshold or either card was never observed.
var ErrNotEligible = errors.New("labels: pair below co-occurrence threshold")

// ConsistencyError reports a derived bucket that violates non-negativity or
// the partition identity. It indicates a bookkeeping bug, not bad input.
type ConsistencyError struct {
	CardA, CardB uint64
	Detail       string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("labels: inconsistent buckets for pair (%d, %d): %s", e.CardA, e.CardB, e.Detail)
}

// Record is the derived label for one card pair: counts, win counts and
// smoothed win probabilities for the four presence buckets, plus the synergy
// delta p11 − p10 − p01 + p00.
type Record struct {
	CardA, CardB uint64

	N11, W11 uint64
	N10, W10 uint64
	N01, W01 uint64
	N00, W00 uint64

	P11, P10, P01, P00 float64

	SynDelta float64
}

// Aggregator accumulates global, per-card and per-pair win statistics from a
// stream of game observations. It is built once per run and passed explicitly;
// independent runs (one per draft format, say) can coexist in a process.
//
// Aggregator is not safe for concurrent use.
type Aggregator struct {
	games uint64
	wins  uint64

	cards *accum.Map
	pairs *accum.Map

	minBothPresent uint64

	// scratch buffer for per-game deduplication
	unique []uint64
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMinBothPresent overrides the default co-occurrence threshold.
func WithMinBothPresent(n uint64) Option {
	return func(a *Aggregator) { a.minBothPresent = n }
}

// NewAggregator creates an empty Aggregator.
func NewAggregator(opts ...Option) (*Aggregator, error) {
	cards, err := accum.New(4096)
	if err != nil {
		return nil, fmt.Errorf("card accumulator: %w", err)
	}
	pairs, err := accum.New(65536)
	if err != nil {
		return nil, fmt.Errorf("pair accumulator: %w", err)
	}

	a := &Aggregator{
		cards:          cards,
		pairs:          pairs,
		minBothPresent: MinBothPresent,
		unique:         make([]uint64, 0, MaxGameCards),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Games returns the total number of games observed.
func (a *Aggregator) Games() uint64 { return a.games }

// Wins returns the total number of wins observed.
func (a *Aggregator) Wins() uint64 { return a.wins }

// Cards returns the number of distinct cards observed.
func (a *Aggregator) Cards() int { return a.cards.Len() }

// Pairs returns the number of distinct card pairs observed.
func (a *Aggregator) Pairs() int { return a.pairs.Len() }

// Observe records one game: which cards were present and whether it was won.
// The present set is deduplicated so a card is counted at most once per game;
// every unordered pair of distinct present cards is counted once. Cost is
// quadratic in the per-game card count, which MaxGameCards keeps small.
func (a *Aggregator) Observe(present []uint64, won bool) error {
	a.games++
	if won {
		a.wins++
	}

	unique := a.unique[:0]
	for _, id := range present {
		if len(unique) >= MaxGameCards {
			log.Printf("[Aggregator] Warning: game with more than %d distinct cards, truncating", MaxGameCards)
			break
		}
		seen := false
		for _, u := range unique {
			if u == id {
				seen = true
				break
			}
		}
		if !seen {
			unique = append(unique, id)
		}
	}

	for _, id := range unique {
		if err := a.cards.Increment(id, won); err != nil {
			return fmt.Errorf("card stats: %w", err)
		}
	}

	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			key := accum.PairKey(unique[i], unique[j])
			if err := a.pairs.Increment(key, won); err != nil {
				return fmt.Errorf("pair stats: %w", err)
			}
		}
	}

	return nil
}

// smooth returns the Beta(1,1)-smoothed win probability, strictly inside
// (0, 1) even for an empty bucket.
func smooth(wins, games uint64) float64 {
	return (float64(wins) + betaAlpha) / (float64(games) + betaAlpha + betaBeta)
}

// Derive computes the label for one pair. It returns ErrNotEligible when
// either card is unknown or the pair's co-occurrence count is below the
// threshold, and a *ConsistencyError when the algebraically derived buckets
// contradict the accumulated totals.
func (a *Aggregator) Derive(cardA, cardB uint64) (Record, error) {
	statA, ok := a.cards.Get(cardA)
	if !ok {
		return Record{}, ErrNotEligible
	}
	statB, ok := a.cards.Get(cardB)
	if !ok {
		return Record{}, ErrNotEligible
	}
	statAB, ok := a.pairs.Get(accum.PairKey(cardA, cardB))
	if !ok || statAB.N < a.minBothPresent {
		return Record{}, ErrNotEligible
	}

	n, w := a.games, a.wins
	if w > n || statA.W > statA.N || statB.W > statB.N || statAB.W > statAB.N {
		return Record{}, &ConsistencyError{CardA: cardA, CardB: cardB, Detail: "win count exceeds game count"}
	}

	// The three tracked shapes (global, per-card, per-pair) determine the
	// remaining buckets algebraically; signed arithmetic catches underflow.
	n10 := int64(statA.N) - int64(statAB.N)
	w10 := int64(statA.W) - int64(statAB.W)
	n01 := int64(statB.N) - int64(statAB.N)
	w01 := int64(statB.W) - int64(statAB.W)
	n00 := int64(n) - int64(statA.N) - int64(statB.N) + int64(statAB.N)
	w00 := int64(w) - int64(statA.W) - int64(statB.W) + int64(statAB.W)

	if n10 < 0 || w10 < 0 || n01 < 0 || w01 < 0 || n00 < 0 || w00 < 0 {
		return Record{}, &ConsistencyError{CardA: cardA, CardB: cardB, Detail: "negative bucket count"}
	}

	rec := Record{
		CardA: cardA, CardB: cardB,
		N11: statAB.N, W11: statAB.W,
		N10: uint64(n10), W10: uint64(w10),
		N01: uint64(n01), W01: uint64(w01),
		N00: uint64(n00), W00: uint64(w00),
	}

	if rec.N11+rec.N10+rec.N01+rec.N00 != n || rec.W11+rec.W10+rec.W01+rec.W00 != w {
		return Record{}, &ConsistencyError{CardA: cardA, CardB: cardB, Detail: "bucket totals do not partition the global totals"}
	}

	rec.P11 = smooth(rec.W11, rec.N11)
	rec.P10 = smooth(rec.W10, rec.N10)
	rec.P01 = smooth(rec.W01, rec.N01)
	rec.P00 = smooth(rec.W00, rec.N00)
	rec.SynDelta = rec.P11 - rec.P10 - rec.P01 + rec.P00

	return rec, nil
}

// All returns an iterator over the labels of every eligible pair, derived on
// the fly from the accumulators; no second pass over the game data is needed.
// Pairs whose derived buckets fail validation are logged and skipped so one
// bad pair cannot sink the batch. Re-invoking All re-derives everything; do
// not interleave Observe calls with iteration if the labels must reflect a
// single snapshot.
func (a *Aggregator) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for key := range a.pairs.All() {
			cardA, cardB := accum.DecodePair(key)
			rec, err := a.Derive(cardA, cardB)
			if err != nil {
				var cerr *ConsistencyError
				if errors.As(err, &cerr) {
					log.Printf("[Aggregator] Skipping pair: %v", cerr)
				}
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}
