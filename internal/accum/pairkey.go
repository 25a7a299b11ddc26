package accum

// PairKey packs an unordered pair of card IDs into a single uint64 key: the
// smaller ID in the high 32 bits, the larger in the low 32 bits. Both IDs are
// truncated to 32 bits; Arena card IDs fit comfortably, but an ID above
// 2^32−1 would silently corrupt the key. Label files persisted with this
// encoding depend on it staying byte-identical, so the truncation is kept
// as-is rather than widened.
func PairKey(a, b uint64) uint64 {
	if a > b {
		a, b = b, a
	}
	return (a&0xFFFFFFFF)<<32 | (b & 0xFFFFFFFF)
}

// DecodePair splits a pair key back into the two card IDs. The first result
// is always ≤ the second.
func DecodePair(key uint64) (a, b uint64) {
	return key >> 32, key & 0xFFFFFFFF
}
