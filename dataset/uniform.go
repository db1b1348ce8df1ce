// Package dataset generates synthetic bid populations for simulations and
// tests.
package dataset

import (
	"math/rand"
	"time"

	"github.com/clearlab/batchmarket/bid"
	"github.com/clearlab/batchmarket/mechanism"
)

// DefaultEps is the default resolution of the sampling grid.
const DefaultEps = 1e-4

// Generate samples a population of uniform random bidders: buyers first,
// then sellers, users numbered from 0. Quantities and prices are drawn
// without replacement from a grid of step eps over [0, 1), so no two
// players on the same side ever share a price and the result is accepted by
// every mechanism. Prices are shifted by the side's offset.
//
// eps at or below zero falls back to DefaultEps, and the grid is refined
// automatically when a side asks for more players than it holds. A nil rng
// falls back to a time-seeded source.
func Generate(buyers, sellers int, offsetBuyers, offsetSellers float64, rng mechanism.Rand, eps float64) []bid.Bid {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if eps <= 0 {
		eps = DefaultEps
	}
	maxSide := buyers
	if sellers > maxSide {
		maxSide = sellers
	}
	if float64(maxSide) > 1/eps {
		eps = 1 / float64(maxSide) / 2
	}

	var grid []float64
	for i := 0; float64(i)*eps < 1; i++ {
		grid = append(grid, float64(i)*eps)
	}

	sides := []struct {
		n      int
		offset float64
		buying bool
	}{
		{buyers, offsetBuyers, true},
		{sellers, offsetSellers, false},
	}

	var out []bid.Bid
	user := 0
	for _, s := range sides {
		qs := sample(rng, grid, s.n)
		vs := sample(rng, grid, s.n)
		for j := 0; j < s.n; j++ {
			out = append(out, bid.Bid{
				Quantity:  qs[j],
				Price:     vs[j] + s.offset,
				User:      user,
				Buying:    s.buying,
				Time:      0,
				Divisible: true,
			})
			user++
		}
	}
	return out
}

// sample draws n values from grid without replacement via a partial
// Fisher-Yates shuffle.
func sample(rng mechanism.Rand, grid []float64, n int) []float64 {
	g := append([]float64(nil), grid...)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(g)-i)
		g[i], g[j] = g[j], g[i]
		out[i] = g[i]
	}
	return out
}
