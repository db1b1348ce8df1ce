package curve

import (
	"math"
	"sort"

	"github.com/clearlab/batchmarket/bid"
)

// Demand builds the demand curve of a table: buy bids sorted by descending
// price (ties keep insertion order), quantities accumulated along X. The
// curve closes with a (+Inf, 0) sentinel. The second return value lists the
// bid id backing each step, in step order.
func Demand(t *bid.Table) (Stepwise, []int) {
	return DemandFrom(t, t.IDs())
}

// DemandFrom is Demand restricted to the given bid ids.
func DemandFrom(t *bid.Table, ids []int) (Stepwise, []int) {
	return build(t, ids, true)
}

// Supply builds the supply curve: sell bids sorted by ascending price with
// accumulated quantities, closed with a (+Inf, +Inf) sentinel.
func Supply(t *bid.Table) (Stepwise, []int) {
	return SupplyFrom(t, t.IDs())
}

// SupplyFrom is Supply restricted to the given bid ids.
func SupplyFrom(t *bid.Table, ids []int) (Stepwise, []int) {
	return build(t, ids, false)
}

func build(t *bid.Table, ids []int, buying bool) (Stepwise, []int) {
	var order []int
	for _, id := range ids {
		if t.Get(id).Buying == buying {
			order = append(order, id)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		pi, pj := t.Get(order[i]).Price, t.Get(order[j]).Price
		if buying {
			return pi > pj
		}
		return pi < pj
	})

	f := make(Stepwise, 0, len(order)+1)
	acum := 0.0
	for _, id := range order {
		b := t.Get(id)
		acum += b.Quantity
		f = append(f, Point{X: acum, Y: b.Price})
	}
	tail := 0.0
	if !buying {
		tail = math.Inf(1)
	}
	f = append(f, Point{X: math.Inf(1), Y: tail})

	return f, order
}
