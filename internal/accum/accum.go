// Package accum provides the open-addressing accumulator used to collect
// per-card and per-pair game statistics.
package accum

import (
	"fmt"
	"iter"
	"math"
)

const (
	// emptyKey marks a slot that has never held an entry.
	emptyKey uint64 = math.MaxUint64
	// tombstoneKey marks a slot whose entry was deleted.
	tombstoneKey uint64 = math.MaxUint64 - 1

	minCapacity = 16

	// maxCapacity caps table growth so capacity arithmetic cannot overflow.
	maxCapacity = 1 << 40
)

// Counts holds the per-key counters: games observed and games won.
type Counts struct {
	N uint64 // games
	W uint64 // wins
}

type slot struct {
	key uint64
	n   uint64
	w   uint64
}

// Map is an open-addressing hash map from uint64 keys to in-place mutable
// Counts. Keys equal to the two internal sentinel values (the top two uint64
// values) are rejected; card and pair keys never reach that range in practice.
//
// Map is not safe for concurrent use.
type Map struct {
	slots      []slot
	size       int
	tombstones int
}

// New creates a Map sized for roughly capacityHint entries. The actual
// capacity is rounded up to the next power of two, with a floor of 16.
func New(capacityHint int) (*Map, error) {
	capacity := minCapacity
	for capacity < capacityHint {
		capacity *= 2
		if capacity > maxCapacity {
			return nil, fmt.Errorf("accum: capacity hint %d exceeds maximum table size", capacityHint)
		}
	}

	return &Map{slots: newSlots(capacity)}, nil
}

func newSlots(capacity int) []slot {
	slots := make([]slot, capacity)
	for i := range slots {
		slots[i].key = emptyKey
	}
	return slots
}

// hashKey is FNV-1a over the 8 key bytes, little-endian byte order.
func hashKey(key uint64) uint64 {
	h := uint64(14695981039346656037)
	for i := 0; i < 8; i++ {
		h ^= (key >> (i * 8)) & 0xFF
		h *= 1099511628211
	}
	return h
}

// Len returns the number of live entries.
func (m *Map) Len() int {
	return m.size
}

// Get returns the counts for key and whether the key is present.
func (m *Map) Get(key uint64) (Counts, bool) {
	if key >= tombstoneKey {
		return Counts{}, false
	}

	mask := uint64(len(m.slots) - 1)
	idx := hashKey(key) & mask

	for i := 0; i < len(m.slots); i++ {
		s := &m.slots[(idx+uint64(i))&mask]
		if s.key == key {
			return Counts{N: s.n, W: s.w}, true
		}
		if s.key == emptyKey {
			return Counts{}, false
		}
		// Tombstones keep the probe chain alive.
	}
	return Counts{}, false
}

// getOrInsert returns the slot for key, installing a zeroed entry in the
// first tombstone on the probe path (or the terminating empty slot) when the
// key is absent.
func (m *Map) getOrInsert(key uint64) (*slot, error) {
	if key >= tombstoneKey {
		return nil, fmt.Errorf("accum: key %#x collides with a reserved sentinel", key)
	}

	// Grow before the insert can push live + tombstone occupancy past 0.7.
	if (m.size+m.tombstones+1)*10 > len(m.slots)*7 {
		if err := m.grow(); err != nil {
			return nil, err
		}
	}

	mask := uint64(len(m.slots) - 1)
	idx := hashKey(key) & mask
	firstTombstone := -1

	for i := 0; i < len(m.slots); i++ {
		pos := int((idx + uint64(i)) & mask)
		s := &m.slots[pos]

		switch s.key {
		case key:
			return s, nil
		case tombstoneKey:
			if firstTombstone < 0 {
				firstTombstone = pos
			}
		case emptyKey:
			if firstTombstone >= 0 {
				pos = firstTombstone
				s = &m.slots[pos]
				m.tombstones--
			}
			s.key = key
			s.n = 0
			s.w = 0
			m.size++
			return s, nil
		}
	}

	// Unreachable: growth keeps occupancy below capacity.
	return nil, fmt.Errorf("accum: table full at capacity %d", len(m.slots))
}

// Increment bumps the game count for key, and the win count when won is true.
// The entry is created on first sight. The only failure mode is the growth
// path running out of table range.
func (m *Map) Increment(key uint64, won bool) error {
	s, err := m.getOrInsert(key)
	if err != nil {
		return err
	}
	s.n++
	if won {
		s.w++
	}
	return nil
}

// Add merges delta into the counts for key, creating the entry if needed.
func (m *Map) Add(key uint64, delta Counts) error {
	s, err := m.getOrInsert(key)
	if err != nil {
		return err
	}
	s.n += delta.N
	s.w += delta.W
	return nil
}

// Delete removes key, leaving a tombstone so probe chains through the slot
// stay intact. It reports whether the key was present.
func (m *Map) Delete(key uint64) bool {
	if key >= tombstoneKey {
		return false
	}

	mask := uint64(len(m.slots) - 1)
	idx := hashKey(key) & mask

	for i := 0; i < len(m.slots); i++ {
		s := &m.slots[(idx+uint64(i))&mask]
		if s.key == key {
			s.key = tombstoneKey
			s.n = 0
			s.w = 0
			m.size--
			m.tombstones++
			return true
		}
		if s.key == emptyKey {
			return false
		}
	}
	return false
}

// grow doubles capacity and rehashes all live entries into a fresh table,
// discarding tombstones.
func (m *Map) grow() error {
	newCap := len(m.slots) * 2
	if newCap > maxCapacity {
		return fmt.Errorf("accum: cannot grow past maximum table size %d", maxCapacity)
	}

	old := m.slots
	m.slots = newSlots(newCap)
	m.size = 0
	m.tombstones = 0

	for i := range old {
		s := &old[i]
		if s.key == emptyKey || s.key == tombstoneKey {
			continue
		}
		dst, err := m.getOrInsert(s.key)
		if err != nil {
			return err
		}
		dst.n = s.n
		dst.w = s.w
	}
	return nil
}

// All returns an iterator over all live entries. Iteration order is a
// consequence of hashing and must not be relied on. The map must not be
// mutated during iteration.
func (m *Map) All() iter.Seq2[uint64, Counts] {
	return func(yield func(uint64, Counts) bool) {
		for i := range m.slots {
			s := &m.slots[i]
			if s.key == emptyKey || s.key == tombstoneKey {
				continue
			}
			if !yield(s.key, Counts{N: s.n, W: s.w}) {
				return
			}
		}
	}
}
