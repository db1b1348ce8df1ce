// Package mechanism implements the three clearing mechanisms of the
// market: a price-setting double auction, a truthful two-sided auction and
// a randomized peer-to-peer matching process.
package mechanism

import (
	"math/rand"
	"time"
)

// Rand provides the random draws a mechanism needs. The interface enables
// dependency injection: tests supply a seeded or scripted source, callers
// that do not care get a time-seeded one. *math/rand.Rand satisfies it.
//
// The handle is stateful and threaded through every call that needs
// randomness; reproducibility depends on the caller keeping hold of it.
type Rand interface {
	// Intn returns a random integer in [0, n). Panics if n <= 0.
	Intn(n int) int
	// Float64 returns a random number in [0, 1).
	Float64() float64
}

// systemRand returns a freshly seeded source for callers that passed nil.
// Results are deliberately non-reproducible in that case.
func systemRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func orSystem(r Rand) Rand {
	if r == nil {
		return systemRand()
	}
	return r
}
