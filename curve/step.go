// Package curve implements the stepwise-constant function algebra behind
// market clearing: demand/supply curve construction, point evaluation and
// curve intersection.
package curve

import (
	"errors"
	"math"
	"sort"
)

// ErrDomain is returned when a stepwise function is evaluated below its
// domain or when the curve input is malformed.
var ErrDomain = errors.New("curve: argument outside the function domain")

// Point is one step of a stepwise function: the function holds value Y for
// every x up to and including X.
type Point struct {
	X float64
	Y float64
}

// Stepwise is a right-continuous piecewise-constant function on (0, +Inf),
// described by the right endpoints of its steps. X is strictly increasing
// and the last point is a sentinel at X = +Inf. Curves are built once per
// mechanism run and never mutated.
type Stepwise []Point

// Value evaluates the function at x: the Y of the first step whose X is at
// or beyond x. x below zero is a domain error, and so is evaluating a curve
// with no steps at all.
func (f Stepwise) Value(x float64) (float64, error) {
	if x < 0 {
		return 0, ErrDomain
	}
	for _, p := range f {
		if x <= p.X {
			return p.Y, nil
		}
	}
	return 0, ErrDomain
}

// maxFiniteX returns the largest finite breakpoint, or 0 when the curve is
// only its sentinel.
func (f Stepwise) maxFiniteX() float64 {
	max := 0.0
	for _, p := range f {
		if !math.IsInf(p.X, 1) && p.X > max {
			max = p.X
		}
	}
	return max
}

// Crossing is the result of intersecting two stepwise functions.
type Crossing struct {
	// Found is false when the curves never cross inside the shared domain.
	Found bool
	// Quantity is the clearing quantity: the right endpoint of the f step
	// at the crossing. Zero when Found is false.
	Quantity float64
	// FIndex and GIndex are the step indices covering the crossing in f
	// and g. Both are -1 when Found is false.
	FIndex int
	GIndex int
	// Price is always populated: the crossing price, or, without a
	// crossing, the k-weighted combination of both curves at the last
	// breakpoint of the shared domain.
	Price float64
}

// Intersect locates the crossing of f and g, where f is assumed to start
// above g (demand over supply) and both are monotonic. Breakpoints of both
// curves are merged, restricted to the shared domain (up to the smaller of
// the two maximal finite breakpoints), and scanned for the last switch from
// f>g to f<g.
//
// k in [0,1] breaks the price tie when the crossing sits on a breakpoint of
// both curves: the price becomes k*g + (1-k)*f. When only f breaks there,
// the price is g's value (g still runs flat through the crossing); when
// only g breaks, the price blends g's step with f's value at the crossing.
// With no crossing at all the price falls back to the k-weighted
// combination of both curves at the last shared breakpoint (0 when the
// shared domain is empty).
func Intersect(f, g Stepwise, k float64) Crossing {
	none := Crossing{Found: false, FIndex: -1, GIndex: -1}

	xMax := math.Min(f.maxFiniteX(), g.maxFiniteX())
	xs := sharedBreakpoints(f, g, xMax)
	if len(xs) == 0 {
		return none
	}

	fext := make([]float64, len(xs))
	gext := make([]float64, len(xs))
	for i, x := range xs {
		fext[i], _ = f.Value(x)
		gext[i], _ = g.Value(x)
	}

	cross := -1
	for i := 0; i < len(xs)-1; i++ {
		if fext[i] > gext[i] && fext[i+1] < gext[i+1] {
			cross = i
		}
	}
	if cross < 0 {
		last := len(xs) - 1
		none.Price = k*gext[last] + (1-k)*fext[last]
		return none
	}

	x0 := xs[cross]
	fIdx := stepAt(f, x0)
	gIdx := stepAt(g, x0)

	var price float64
	switch {
	case f[fIdx].X == g[gIdx].X:
		price = k*g[gIdx].Y + (1-k)*f[fIdx].Y
	case f[fIdx].X == x0:
		price = g[gIdx].Y
	default:
		price = k*g[gIdx].Y + (1-k)*f[fIdx].Y
	}

	return Crossing{
		Found:    true,
		Quantity: f[fIdx].X,
		FIndex:   fIdx,
		GIndex:   gIdx,
		Price:    price,
	}
}

// stepAt returns the index of the first step with X at or beyond x.
func stepAt(f Stepwise, x float64) int {
	for i, p := range f {
		if p.X >= x {
			return i
		}
	}
	return len(f) - 1
}

// sharedBreakpoints merges the breakpoints of both curves, deduplicated,
// sorted and capped at xMax.
func sharedBreakpoints(f, g Stepwise, xMax float64) []float64 {
	seen := make(map[float64]struct{})
	var xs []float64
	for _, c := range []Stepwise{f, g} {
		for _, p := range c {
			if p.X > xMax {
				continue
			}
			if _, ok := seen[p.X]; ok {
				continue
			}
			seen[p.X] = struct{}{}
			xs = append(xs, p.X)
		}
	}
	sort.Float64s(xs)
	return xs
}
