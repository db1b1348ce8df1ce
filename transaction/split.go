package transaction

import "github.com/clearlab/batchmarket/bid"

// Split redistributes the transactions of a ledger produced on a merged
// bid table back to the original bids. Each transaction on a merged bid is
// divided across the group's original bids proportionally to their share
// of the group's total quantity, so the transacted quantity is conserved.
// Transactions on pass-through bids come back as a single row with the
// original bid id.
func Split(l *Ledger, original *bid.Table, m bid.AggregationMap) *Ledger {
	out := NewLedger()
	for _, tr := range l.Transactions() {
		group, ok := m.ByBid[tr.Bid]
		if !ok {
			out.Add(tr)
			continue
		}
		for _, id := range group {
			out.Add(Transaction{
				Bid:      id,
				Quantity: tr.Quantity * quantityShare(original, group, id),
				Price:    tr.Price,
				Source:   tr.Source,
				Active:   tr.Active,
			})
		}
	}
	return out
}

// SplitFees redistributes fees charged to synthetic merged users across
// the original owners, proportionally to each original bid's quantity
// share of its group. Fees on users that exist in the original table are
// passed through untouched.
func SplitFees(fees map[int]float64, original *bid.Table, m bid.AggregationMap) map[int]float64 {
	out := make(map[int]float64, len(fees))
	maxUser := original.MaxUser()
	for user, fee := range fees {
		group, ok := m.ByUser[user]
		if !ok || user <= maxUser {
			out[user] += fee
			continue
		}
		for _, id := range group {
			out[original.Get(id).User] += fee * quantityShare(original, group, id)
		}
	}
	return out
}

// quantityShare returns id's fraction of the group's total quantity. A
// group with zero total quantity splits evenly.
func quantityShare(t *bid.Table, group []int, id int) float64 {
	total := 0.0
	for _, g := range group {
		total += t.Get(g).Quantity
	}
	if total == 0 {
		return 1.0 / float64(len(group))
	}
	return t.Get(id).Quantity / total
}
