// Package model holds the learned synergy model: per-card embeddings and
// biases plus a global bias, with a fixed binary serialization format shared
// with the inference tooling.
package model

import (
	"fmt"
	"math/rand"
)

// DefaultDim is the embedding dimension used for newly trained models.
const DefaultDim = 16

// Card is the learned parameters for a single card.
type Card struct {
	ID        uint64
	Bias      float32
	Embedding []float32
}

// Model is the full set of card parameters plus the global bias. Cards keep
// their insertion order, which the binary format preserves. A Model is
// mutated freely by the trainer that owns it and treated as immutable once
// saved for inference.
type Model struct {
	Dim        int
	GlobalBias float32

	cards []*Card
	index map[uint64]int
}

// New creates an empty model with the given embedding dimension.
func New(dim int) *Model {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &Model{
		Dim:   dim,
		index: make(map[uint64]int),
	}
}

// NumCards returns the number of cards with parameters.
func (m *Model) NumCards() int {
	return len(m.cards)
}

// Cards returns the cards in insertion order. The slice is shared; callers
// must not reorder it.
func (m *Model) Cards() []*Card {
	return m.cards
}

// Lookup returns the parameters for a card, or nil if the card is unknown.
func (m *Model) Lookup(id uint64) *Card {
	if i, ok := m.index[id]; ok {
		return m.cards[i]
	}
	return nil
}

// GetOrCreate returns the parameters for a card, creating them on first
// sight: zero bias and a small symmetric random embedding so coordinates
// start distinguishable without large initial dot products.
func (m *Model) GetOrCreate(id uint64, rng *rand.Rand) *Card {
	if c := m.Lookup(id); c != nil {
		return c
	}

	c := &Card{
		ID:        id,
		Embedding: make([]float32, m.Dim),
	}
	for i := range c.Embedding {
		c.Embedding[i] = (rng.Float32() - 0.5) * 0.1
	}

	m.index[id] = len(m.cards)
	m.cards = append(m.cards, c)
	return c
}

// add appends a fully formed card, used when loading a persisted model.
func (m *Model) add(c *Card) error {
	if _, ok := m.index[c.ID]; ok {
		return fmt.Errorf("model: duplicate card %d", c.ID)
	}
	m.index[c.ID] = len(m.cards)
	m.cards = append(m.cards, c)
	return nil
}

// Predict returns the predicted synergy for a card pair: embedding dot
// product plus both card biases plus the global bias. If either card is
// unknown to the model the prediction falls back to the global bias alone.
func (m *Model) Predict(cardA, cardB uint64) float32 {
	a := m.Lookup(cardA)
	b := m.Lookup(cardB)
	if a == nil || b == nil {
		return m.GlobalBias
	}

	var dot float32
	for i := 0; i < m.Dim; i++ {
		dot += a.Embedding[i] * b.Embedding[i]
	}
	return dot + a.Bias + b.Bias + m.GlobalBias
}
