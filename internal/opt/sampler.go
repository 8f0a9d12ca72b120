package opt

import "math/rand/v2"

// ReservoirSampler draws n distinct indices uniformly from 0..N-1 minus one
// reserved index, in a single increasing pass and without materializing a
// permutation. This is Vitter's "Method A" (Knuth's "Method S"):
//
//	J. S. Vitter, "An efficient algorithm for sequential random sampling",
//	ACM Trans. Math. Softw. 13(1), 58-67 (1987).
//
// Exactly one of the selected indices is tagged as the pivot.
type ReservoirSampler struct {
	rng *rand.Rand
}

// NewReservoirSampler returns a sampler drawing from rng
func NewReservoirSampler(rng *rand.Rand) *ReservoirSampler {
	return &ReservoirSampler{rng: ownRand(rng)}
}

// Sample visits n distinct indices of [0, size) other than reserved, in
// increasing order. Requires 1 <= n <= size-1.
func (s *ReservoirSampler) Sample(size, n, reserved int, visit func(i int, pivot bool)) {
	// which of the n selections is the pivot; selections arrive in index
	// order, so always tagging the last one would bias it
	jn := s.rng.IntN(n)
	emit := func(i int) {
		visit(i, jn == 0)
		jn--
	}

	left := size - 1 // eligible indices not yet passed
	need := n
	free := left - need
	i := 0
	if i == reserved {
		i++
	}
	step := func() {
		i++
		if i == reserved {
			i++
		}
	}

	for need > 1 {
		// q is the probability of skipping index i
		q := float64(free) / float64(left)
		v := s.rng.Float64()
		for q > v {
			step()
			free--
			left--
			q = q * float64(free) / float64(left)
		}
		emit(i)
		step()
		left--
		need--
	}

	// last selection: uniform over the remaining eligible indices
	for k := s.rng.IntN(left); k > 0; k-- {
		step()
	}
	emit(i)
}
