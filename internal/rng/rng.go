// Package rng derives reproducible PCG streams from a single simulation seed.
package rng

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// Source returns a PCG stream for the given seed and stream label. Distinct
// labels yield independent streams so the weather and growth draws never
// interleave.
func Source(seed int64, stream string) *rand.PCG {
	// Non-cryptographic PRNG is intentional for deterministic simulation behavior.
	// #nosec G404
	return rand.NewPCG(seedWord(seed, stream+":a"), seedWord(seed, stream+":b"))
}

// RandomSeed picks a seed when none is configured.
func RandomSeed() int64 {
	// #nosec G404
	return rand.Int64()
}

// Clone returns an independent copy of src positioned at the same state.
func Clone(src *rand.PCG) *rand.PCG {
	state, err := src.MarshalBinary()
	if err != nil {
		// PCG marshaling has no failure path.
		panic(fmt.Sprintf("rng: marshal pcg: %v", err))
	}
	out := &rand.PCG{}
	if err := out.UnmarshalBinary(state); err != nil {
		panic(fmt.Sprintf("rng: unmarshal pcg: %v", err))
	}
	return out
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%d:%s", seed, salt)
	return h.Sum64()
}
