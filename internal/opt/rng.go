package opt

import "math/rand/v2"

// NewRand returns a PCG-backed generator. A zero seed draws a random one, so
// only non-zero seeds give reproducible runs.
//
// A *rand.Rand is not safe for concurrent use; give every optimizer its own.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func ownRand(r *rand.Rand) *rand.Rand {
	if r != nil {
		return r
	}
	return NewRand(0)
}
