// Package randutil derives reproducible rand/v2 generators from a single
// master seed, including disjoint per-worker streams.
package randutil

import (
	"encoding/binary"
	"hash/fnv"
	rand "math/rand/v2"
)

// New returns a generator seeded deterministically from one int64. The seed
// is stretched into the two 64-bit words rand/v2's PCG wants, so small or
// adjacent seeds still start from well-separated states.
func New(seed int64) *rand.Rand {
	state := uint64(seed)
	hi := splitmix(&state)
	lo := splitmix(&state)
	return rand.New(rand.NewPCG(hi, lo))
}

// Stream returns the i-th generator derived from a master seed. The pair
// (seed, i) is hashed into a fresh base state, so streams never overlap and
// parallel traversals stay reproducible for a fixed seed and worker count.
func Stream(seed int64, i int) *rand.Rand {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(i))

	h := fnv.New64a()
	h.Write(buf[:])

	state := h.Sum64()
	hi := splitmix(&state)
	lo := splitmix(&state)
	return rand.New(rand.NewPCG(hi, lo))
}

// splitmix advances a SplitMix64 state and returns the mixed output. Only
// used to expand seeds, never as the generator itself.
func splitmix(state *uint64) uint64 {
	*state += 0x9e3779b97f4a7c15
	z := *state
	z = (z ^ z>>30) * 0xbf58476d1ce4e5b9
	z = (z ^ z>>27) * 0x94d049bb133111eb
	return z ^ z>>31
}
