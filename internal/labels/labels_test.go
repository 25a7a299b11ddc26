package labels

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

// observeBatch feeds n identical games into the aggregator, wins of them won.
func observeBatch(t *testing.T, a *Aggregator, present []uint64, n, wins int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := a.Observe(present, i < wins); err != nil {
			t.Fatalf("Observe: %v", err)
		}
	}
}

// TestDeriveConcreteScenario replays a hand-computed dataset: 5000 games with
// 2400 wins overall; cards A and B each present in 1000 games (550 and 560
// wins), together in 500 of them with 300 wins.
func TestDeriveConcreteScenario(t *testing.T) {
	const (
		cardA = uint64(101)
		cardB = uint64(202)
	)

	a, err := NewAggregator(WithMinBothPresent(500))
	if err != nil {
		t.Fatal(err)
	}

	observeBatch(t, a, []uint64{cardA, cardB}, 500, 300) // both present
	observeBatch(t, a, []uint64{cardA}, 500, 250)        // A only
	observeBatch(t, a, []uint64{cardB}, 500, 260)        // B only
	observeBatch(t, a, nil, 3500, 1590)                  // neither

	rec, err := a.Derive(cardA, cardB)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	wantCounts := []struct {
		name      string
		got, want uint64
	}{
		{"n11", rec.N11, 500}, {"w11", rec.W11, 300},
		{"n10", rec.N10, 500}, {"w10", rec.W10, 250},
		{"n01", rec.N01, 500}, {"w01", rec.W01, 260},
		{"n00", rec.N00, 3500}, {"w00", rec.W00, 1590},
	}
	for _, c := range wantCounts {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}

	wantProbs := []struct {
		name      string
		got, want float64
	}{
		{"p11", rec.P11, 301.0 / 502.0},
		{"p10", rec.P10, 251.0 / 502.0},
		{"p01", rec.P01, 261.0 / 502.0},
		{"p00", rec.P00, 1591.0 / 3502.0},
		{"syn_delta", rec.SynDelta, 301.0/502.0 - 251.0/502.0 - 261.0/502.0 + 1591.0/3502.0},
	}
	for _, p := range wantProbs {
		if math.Abs(p.got-p.want) > 1e-6 {
			t.Errorf("%s = %.9f, want %.9f", p.name, p.got, p.want)
		}
	}
}

// TestPartitionIdentity feeds random games through the aggregator and checks
// that for every derivable pair the four buckets partition the global totals
// exactly.
func TestPartitionIdentity(t *testing.T) {
	a, err := NewAggregator(WithMinBothPresent(1))
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(3))
	const cards = 12

	for game := 0; game < 2000; game++ {
		var present []uint64
		for id := uint64(1); id <= cards; id++ {
			if rng.Intn(3) == 0 {
				present = append(present, id)
			}
		}
		if err := a.Observe(present, rng.Intn(2) == 0); err != nil {
			t.Fatal(err)
		}
	}

	n, w := a.Games(), a.Wins()
	derived := 0
	for rec := range a.All() {
		derived++
		if got := rec.N11 + rec.N10 + rec.N01 + rec.N00; got != n {
			t.Fatalf("pair (%d, %d): bucket counts sum to %d, want %d", rec.CardA, rec.CardB, got, n)
		}
		if got := rec.W11 + rec.W10 + rec.W01 + rec.W00; got != w {
			t.Fatalf("pair (%d, %d): bucket wins sum to %d, want %d", rec.CardA, rec.CardB, got, w)
		}
	}
	if derived == 0 {
		t.Fatal("no pairs derived; test input too sparse")
	}
}

// TestDeriveSymmetry checks that swapping the argument order swaps the 10/01
// buckets and leaves p11, p00 and the synergy delta unchanged.
func TestDeriveSymmetry(t *testing.T) {
	a, err := NewAggregator(WithMinBothPresent(1))
	if err != nil {
		t.Fatal(err)
	}

	observeBatch(t, a, []uint64{1, 2}, 40, 25)
	observeBatch(t, a, []uint64{1}, 30, 10)
	observeBatch(t, a, []uint64{2}, 20, 12)
	observeBatch(t, a, nil, 100, 41)

	ab, err := a.Derive(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := a.Derive(2, 1)
	if err != nil {
		t.Fatal(err)
	}

	if ab.P11 != ba.P11 || ab.P00 != ba.P00 {
		t.Errorf("p11/p00 changed under argument swap: %+v vs %+v", ab, ba)
	}
	if ab.P10 != ba.P01 || ab.P01 != ba.P10 {
		t.Errorf("p10/p01 not swapped under argument swap: %+v vs %+v", ab, ba)
	}
	if ab.N10 != ba.N01 || ab.N01 != ba.N10 || ab.W10 != ba.W01 || ab.W01 != ba.W10 {
		t.Errorf("10/01 counts not swapped under argument swap")
	}
	if math.Abs(ab.SynDelta-ba.SynDelta) > 1e-12 {
		t.Errorf("syn_delta changed under argument swap: %v vs %v", ab.SynDelta, ba.SynDelta)
	}
}

func TestThresholdGate(t *testing.T) {
	a, err := NewAggregator(WithMinBothPresent(10))
	if err != nil {
		t.Fatal(err)
	}

	observeBatch(t, a, []uint64{1, 2}, 15, 7) // eligible
	observeBatch(t, a, []uint64{3, 4}, 9, 4)  // one short of the threshold

	if _, err := a.Derive(3, 4); !errors.Is(err, ErrNotEligible) {
		t.Errorf("Derive below threshold returned %v, want ErrNotEligible", err)
	}
	if _, err := a.Derive(1, 99); !errors.Is(err, ErrNotEligible) {
		t.Errorf("Derive with unknown card returned %v, want ErrNotEligible", err)
	}

	for rec := range a.All() {
		if rec.N11 < 10 {
			t.Errorf("emitted pair (%d, %d) with n11 %d below threshold", rec.CardA, rec.CardB, rec.N11)
		}
		if rec.CardA == 3 || rec.CardA == 4 {
			t.Errorf("below-threshold pair leaked into the output")
		}
	}
}

func TestSmoothingBounds(t *testing.T) {
	tests := []struct {
		name        string
		wins, games uint64
	}{
		{name: "empty bucket", wins: 0, games: 0},
		{name: "all losses", wins: 0, games: 1000},
		{name: "all wins", wins: 1000, games: 1000},
		{name: "single win", wins: 1, games: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := smooth(tt.wins, tt.games)
			if p <= 0 || p >= 1 {
				t.Errorf("smooth(%d, %d) = %v, want strictly inside (0, 1)", tt.wins, tt.games, p)
			}
		})
	}

	if got := smooth(0, 0); got != 0.5 {
		t.Errorf("smooth(0, 0) = %v, want 0.5 (the prior mean)", got)
	}
}

// TestObserveDeduplicates checks a card repeated within one game (kept and
// drawn, say) is counted once, and that it forms no pair with itself.
func TestObserveDeduplicates(t *testing.T) {
	a, err := NewAggregator(WithMinBothPresent(1))
	if err != nil {
		t.Fatal(err)
	}

	if err := a.Observe([]uint64{5, 5, 6, 5}, true); err != nil {
		t.Fatal(err)
	}

	rec, err := a.Derive(5, 6)
	if err != nil {
		t.Fatal(err)
	}
	if rec.N11 != 1 || rec.W11 != 1 {
		t.Errorf("pair counts = {%d %d}, want {1 1}", rec.N11, rec.W11)
	}
	if a.Pairs() != 1 {
		t.Errorf("Pairs() = %d, want 1 (no self-pair)", a.Pairs())
	}
	if rec.N10 != 0 {
		t.Errorf("card 5 double-counted within one game: n10 = %d", rec.N10)
	}
}
