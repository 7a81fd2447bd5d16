// Package seeded provides a small deterministic PRNG keyed by a seed string.
//
// Both match participants derive question orders and option sets from shared
// seed strings without any coordination, so the generator has to produce the
// exact same sequence for the same seed on every client. Keep it as an
// explicit, swappable implementation; never substitute an ambient random
// source here.
package seeded

// RNG is a mulberry32 generator. Not cryptographic; reproducibility is the
// point, not unpredictability.
type RNG struct {
	state uint32
}

// New returns a generator seeded from an arbitrary string.
func New(seed string) *RNG {
	return &RNG{state: hashSeed(seed)}
}

// hashSeed folds a string into a 32-bit state (xmur3-style avalanche).
func hashSeed(s string) uint32 {
	h := uint32(1779033703) ^ uint32(len(s))
	for i := 0; i < len(s); i++ {
		h = (h ^ uint32(s[i])) * 3432918353
		h = h<<13 | h>>19
	}
	h = (h ^ (h >> 16)) * 2246822507
	h = (h ^ (h >> 13)) * 3266489909
	return h ^ (h >> 16)
}

func (r *RNG) next() uint32 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float64 returns a value in [0, 1).
func (r *RNG) Float64() float64 {
	return float64(r.next()) / 4294967296.0
}

// Intn returns a value in [0, n). It panics if n <= 0.
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		panic("seeded: Intn with non-positive n")
	}
	return int(r.Float64() * float64(n))
}

// Shuffle permutes n elements with a Fisher-Yates pass driven by the seed.
func (r *RNG) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		swap(i, j)
	}
}

// ShuffleStrings returns a seeded permutation of in without mutating it.
func ShuffleStrings(seed string, in []string) []string {
	out := append([]string(nil), in...)
	New(seed).Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
