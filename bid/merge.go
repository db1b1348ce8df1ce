package bid

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of decimal digits used to decide whether
// two prices are the same when merging bids.
const DefaultPrecision int32 = 5

// Counter mints monotonically increasing ids. It replaces the usual
// captured-variable generator so the id state is explicit and can be
// seeded by the caller.
type Counter struct {
	next int
}

// NewCounter returns a counter whose first Next call yields start.
func NewCounter(start int) *Counter {
	return &Counter{next: start}
}

// Next returns the current id and advances the counter.
func (c *Counter) Next() int {
	id := c.next
	c.next++
	return id
}

// AggregationMap relates a merged table to the original one. Both
// directions are kept explicit: ByBid maps a merged bid id to the original
// bid ids it stands for, ByUser does the same for the merged bid's owner.
// The map is only valid for the single mechanism run it was built for.
type AggregationMap struct {
	ByBid  map[int][]int
	ByUser map[int][]int
}

// Identity reports whether the merge was a no-op: every merged bid stands
// for exactly one original bid.
func (m AggregationMap) Identity() bool {
	for _, group := range m.ByBid {
		if len(group) != 1 {
			return false
		}
	}
	return true
}

// RoundPrice rounds a price to prec decimal digits using decimal
// arithmetic, so grouping is not at the mercy of float64 representation.
func RoundPrice(p float64, prec int32) float64 {
	f, _ := decimal.NewFromFloat(p).Round(prec).Float64()
	return f
}

// MergeSamePrice merges bids that sit on the same side of the market at the
// same price (rounded to prec digits). A group backed by more than one
// distinct user becomes a single synthetic bid: summed quantity, a freshly
// minted owner id above every existing one, remaining fields taken from the
// group's first member. Groups with a single user pass through unchanged.
//
// The merged table lists buy groups by ascending rounded price followed by
// sell groups, and every price in it is the rounded one. The returned map
// links merged bids back to the originals for Split.
func MergeSamePrice(t *Table, prec int32) (*Table, AggregationMap) {
	counter := NewCounter(t.MaxUser() + 1)
	merged := NewTable()
	m := AggregationMap{
		ByBid:  make(map[int][]int),
		ByUser: make(map[int][]int),
	}

	type group struct {
		price float64
		ids   []int
	}

	for _, buying := range []bool{true, false} {
		byPrice := make(map[float64]*group)
		var groups []*group
		for id, b := range t.bids {
			if b.Buying != buying {
				continue
			}
			p := RoundPrice(b.Price, prec)
			g, ok := byPrice[p]
			if !ok {
				g = &group{price: p}
				byPrice[p] = g
				groups = append(groups, g)
			}
			g.ids = append(g.ids, id)
		}
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].price < groups[j].price
		})

		for _, g := range groups {
			first := t.Get(g.ids[0])
			quantity := 0.0
			users := make(map[int]struct{})
			for _, id := range g.ids {
				b := t.Get(id)
				quantity += b.Quantity
				users[b.User] = struct{}{}
			}
			user := first.User
			if len(users) > 1 {
				user = counter.Next()
			}
			id := merged.Add(Bid{
				Quantity:  quantity,
				Price:     g.price,
				User:      user,
				Buying:    buying,
				Time:      first.Time,
				Divisible: first.Divisible,
			})
			m.ByBid[id] = g.ids
			m.ByUser[user] = g.ids
		}
	}

	return merged, m
}
