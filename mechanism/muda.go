package mechanism

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/clearlab/batchmarket/bid"
	"github.com/clearlab/batchmarket/curve"
	"github.com/clearlab/batchmarket/transaction"
)

// ErrDuplicatePrice is returned when two different users bid the exact same
// price on the same side of the market. The truthful auction prices each
// group with the other group's bids, and a shared price would make the
// marginal trader ambiguous. A user repeating their own price is fine.
var ErrDuplicatePrice = errors.New("mechanism: different users share a bid price on the same side")

// MudaExtra is the metadata of a truthful double auction run: the random
// partition of bid ids, the competitive price each group generated for the
// other, and the Vickrey fees charged per user.
type MudaExtra struct {
	Left       []int
	Right      []int
	PriceLeft  float64
	PriceRight float64
	Fees       map[int]float64
}

// Muda runs the truthful multi-unit double auction of Segal-Halevi,
// Hassidim and Aumann (MUDA). Bids are split uniformly at random into two
// groups; each group clears at the competitive price computed from the
// other group's bids, so no bidder can move the price they trade at. The
// long side of each group is filled in merit order and its traders are
// charged the Vickrey externality they impose on the bids they displace.
//
// A nil rng falls back to a time-seeded source.
func Muda(t *bid.Table, rng Rand) (*transaction.Ledger, MudaExtra, error) {
	if err := checkDistinctPrices(t); err != nil {
		return nil, MudaExtra{}, err
	}
	rng = orSystem(rng)

	var left, right []int
	for _, id := range t.IDs() {
		if rng.Float64() > 0.5 {
			left = append(left, id)
		} else {
			right = append(right, id)
		}
	}

	priceLeft := competitivePrice(t, left)
	priceRight := competitivePrice(t, right)

	fees := make(map[int]float64)
	leftLedger, leftFees := clearGroupAtPrice(t, left, priceRight)
	rightLedger, rightFees := clearGroupAtPrice(t, right, priceLeft)
	for u, f := range leftFees {
		fees[u] += f
	}
	for u, f := range rightFees {
		fees[u] += f
	}

	extra := MudaExtra{
		Left:       left,
		Right:      right,
		PriceLeft:  priceLeft,
		PriceRight: priceRight,
		Fees:       fees,
	}
	return leftLedger.Merge(rightLedger), extra, nil
}

// checkDistinctPrices verifies the precondition of the mechanism: on each
// side of the market a price may belong to at most one user.
func checkDistinctPrices(t *bid.Table) error {
	type key struct {
		buying bool
		price  float64
	}
	owner := make(map[key]int)
	for _, id := range t.IDs() {
		b := t.Get(id)
		k := key{b.Buying, b.Price}
		if u, ok := owner[k]; ok && u != b.User {
			return fmt.Errorf("%w: users %d and %d at price %v", ErrDuplicatePrice, u, b.User, b.Price)
		}
		owner[k] = b.User
	}
	return nil
}

// competitivePrice is the price at which the given bids would clear among
// themselves. A group missing a whole side has no market and prices at 0.
func competitivePrice(t *bid.Table, ids []int) float64 {
	demand, dOrder := curve.DemandFrom(t, ids)
	supply, sOrder := curve.SupplyFrom(t, ids)
	if len(dOrder) == 0 || len(sOrder) == 0 {
		return 0
	}
	return curve.Intersect(demand, supply, 0.5).Price
}

// clearGroupAtPrice clears the given bids at the exogenous price p. Buyers
// at or above p and sellers at or below p are willing to trade; the short
// side trades in full, the long side is filled in merit order and charged
// Vickrey fees.
func clearGroupAtPrice(t *bid.Table, ids []int, p float64) (*transaction.Ledger, map[int]float64) {
	ledger := transaction.NewLedger()
	fees := make(map[int]float64)

	var demand, supply []int
	for _, id := range ids {
		b := t.Get(id)
		switch {
		case b.Buying && b.Price >= p:
			demand = append(demand, id)
		case !b.Buying && b.Price <= p:
			supply = append(supply, id)
		}
	}
	sort.SliceStable(demand, func(i, j int) bool {
		return t.Get(demand[i]).Price > t.Get(demand[j]).Price
	})
	sort.SliceStable(supply, func(i, j int) bool {
		return t.Get(supply[i]).Price < t.Get(supply[j]).Price
	})

	dq := totalQuantity(t, demand)
	sq := totalQuantity(t, supply)
	total := math.Min(dq, sq)
	if total <= 0 {
		return ledger, fees
	}

	// Ties break toward demand so the outcome is deterministic.
	demandLong := dq >= sq
	long, short := supply, demand
	if demandLong {
		long, short = demand, supply
	}

	for _, id := range short {
		ledger.Add(transaction.Transaction{
			Bid:      id,
			Quantity: t.Get(id).Quantity,
			Price:    p,
			Source:   transaction.NoSource,
			Active:   false,
		})
	}

	fill := fillQuantities(t, long, total, noUser)

	var users []int
	seen := make(map[int]bool)
	for _, id := range long {
		u := t.Get(id).User
		if fill[id] > 0 && !seen[u] {
			seen[u] = true
			users = append(users, u)
		}
	}

	for _, u := range users {
		alt := fillQuantities(t, long, total, u)

		qU := 0.0
		for _, id := range long {
			if t.Get(id).User == u {
				qU += fill[id]
			}
		}
		// The externality u imposes: the surplus of the bids that would
		// enter the winning set if u stepped away.
		externality := 0.0
		for _, id := range long {
			if fill[id] == 0 && alt[id] > 0 {
				externality += t.Get(id).Price - p
			}
		}
		fee := qU * externality
		if !demandLong {
			fee = -fee
		}
		if fee != 0 {
			fees[u] += fee
		}

		for _, id := range long {
			b := t.Get(id)
			if b.User != u || fill[id] <= 0 {
				continue
			}
			ledger.Add(transaction.Transaction{
				Bid:      id,
				Quantity: fill[id],
				Price:    p,
				Source:   transaction.NoSource,
				Active:   fill[id] < b.Quantity,
			})
		}
	}

	return ledger, fees
}

// noUser is the exclude argument of fillQuantities when nobody is excluded.
const noUser = -1

// fillQuantities allocates total across the merit-ordered bid ids: bids are
// filled in full price level by price level, and the level that straddles
// the remainder is filled proportionally to quantity. Bids owned by exclude
// are skipped. Ids not in the result received nothing.
func fillQuantities(t *bid.Table, ids []int, total float64, exclude int) map[int]float64 {
	fill := make(map[int]float64, len(ids))
	remaining := total
	i := 0
	for i < len(ids) && remaining > 0 {
		price := t.Get(ids[i]).Price
		var level []int
		levelTotal := 0.0
		j := i
		for ; j < len(ids) && t.Get(ids[j]).Price == price; j++ {
			b := t.Get(ids[j])
			if b.User == exclude {
				continue
			}
			level = append(level, ids[j])
			levelTotal += b.Quantity
		}
		if levelTotal <= remaining {
			for _, id := range level {
				fill[id] = t.Get(id).Quantity
			}
			remaining -= levelTotal
		} else {
			for _, id := range level {
				fill[id] = remaining * t.Get(id).Quantity / levelTotal
			}
			remaining = 0
		}
		i = j
	}
	return fill
}

func totalQuantity(t *bid.Table, ids []int) float64 {
	sum := 0.0
	for _, id := range ids {
		sum += t.Get(id).Quantity
	}
	return sum
}
