package mechanism

import (
	"math"

	"github.com/clearlab/batchmarket/bid"
)

// scriptedRand replays a fixed sequence of draws so randomized mechanisms
// become deterministic in tests. It panics when the script runs dry or a
// scripted value falls outside the requested range, which catches any drift
// between the script and the code under test.
type scriptedRand struct {
	ints   []int
	floats []float64
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		panic("scriptedRand: out of ints")
	}
	x := r.ints[0]
	r.ints = r.ints[1:]
	if x < 0 || x >= n {
		panic("scriptedRand: scripted value out of range")
	}
	return x
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		panic("scriptedRand: out of floats")
	}
	x := r.floats[0]
	r.floats = r.floats[1:]
	return x
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// Three buyers and three sellers whose curves cross.
func crossingTable() *bid.Table {
	t := bid.NewTable()
	t.Add(bid.Bid{Quantity: 1, Price: 3, User: 0, Buying: true})
	t.Add(bid.Bid{Quantity: 2, Price: 4, User: 1, Buying: true})
	t.Add(bid.Bid{Quantity: 5, Price: 1, User: 2, Buying: true})
	t.Add(bid.Bid{Quantity: 4, Price: 2, User: 3, Buying: false})
	t.Add(bid.Bid{Quantity: 1, Price: 1, User: 4, Buying: false})
	t.Add(bid.Bid{Quantity: 5, Price: 6, User: 5, Buying: false})
	return t
}

// Six unit buyers against five sellers, distinct prices everywhere.
func steppedTable() *bid.Table {
	t := bid.NewTable()
	t.Add(bid.Bid{Quantity: 1, Price: 6.7, User: 0, Buying: true})
	t.Add(bid.Bid{Quantity: 1, Price: 6.6, User: 1, Buying: true})
	t.Add(bid.Bid{Quantity: 1, Price: 6.5, User: 2, Buying: true})
	t.Add(bid.Bid{Quantity: 1, Price: 6.4, User: 3, Buying: true})
	t.Add(bid.Bid{Quantity: 1, Price: 6.3, User: 4, Buying: true})
	t.Add(bid.Bid{Quantity: 1, Price: 6, User: 5, Buying: true})
	t.Add(bid.Bid{Quantity: 1, Price: 1, User: 6, Buying: false})
	t.Add(bid.Bid{Quantity: 1, Price: 2, User: 7, Buying: false})
	t.Add(bid.Bid{Quantity: 2, Price: 3, User: 8, Buying: false})
	t.Add(bid.Bid{Quantity: 1.1, Price: 4, User: 9, Buying: false})
	t.Add(bid.Bid{Quantity: 1, Price: 6.1, User: 10, Buying: false})
	return t
}
