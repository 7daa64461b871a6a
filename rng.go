package buckets

import "math/rand"

// DefaultSeed is the seed used by the command line when none is given.
const DefaultSeed int64 = 42

// deriveSeed mixes a run seed and an attempt number into the seed of that
// attempt (SplitMix64 finalizer). Attempts get unrelated streams, so they can
// run in any order or in parallel and still reproduce.
func deriveSeed(seed int64, attempt uint64) int64 {
	x := uint64(seed) ^ (attempt + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// attemptRNG returns the private random source of one attempt.
// A *rand.Rand is not safe for concurrent use: never share it between attempts.
func attemptRNG(seed int64, attempt int) *rand.Rand {
	return rand.New(rand.NewSource(deriveSeed(seed, uint64(attempt))))
}
