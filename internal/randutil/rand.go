package randutil

import (
	crand "crypto/rand"
	"encoding/hex"
	"hash/fnv"
	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// FromSeed returns a generator for a round seed string. The same seed always
// produces the same shuffle, which is what makes persisted rounds replayable.
func FromSeed(seed string) *rand.Rand {
	return New(SeedValue(seed))
}

// SeedValue folds a seed string into the int64 consumed by New.
func SeedValue(seed string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return int64(h.Sum64())
}

// NewSeed returns a fresh 128-bit seed rendered as hex.
func NewSeed() string {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("randutil: failed to read random bytes: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// SeedFrom draws a seed from an existing generator, for simulations that
// must be reproducible end to end.
func SeedFrom(rng *rand.Rand) string {
	var b [16]byte
	for i := 0; i < len(b); i += 8 {
		v := rng.Uint64()
		for j := 0; j < 8; j++ {
			b[i+j] = byte(v >> (8 * j))
		}
	}
	return hex.EncodeToString(b[:])
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
