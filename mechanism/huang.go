package mechanism

import (
	"github.com/clearlab/batchmarket/bid"
	"github.com/clearlab/batchmarket/curve"
	"github.com/clearlab/batchmarket/transaction"
)

// HuangExtra is the metadata of a price-setting auction run. The mechanism
// clears with a bid-ask spread: buyers pay PriceBuy, sellers receive
// PriceSell, and the market operator keeps the difference.
type HuangExtra struct {
	PriceSell      float64
	PriceBuy       float64
	QuantityTraded float64
}

// Huang runs the price-setting double auction described in "Design of a
// multi-unit double auction e-market" (Huang et al.). The mechanism cannot
// price-discriminate between bidders at an identical price, so same-price
// bidders are merged first and the resulting transactions are split back
// to the original bids before returning.
//
// A market with an empty side or no demand/supply crossing yields an empty
// ledger and zero metadata; that is a designed outcome, not an error.
func Huang(t *bid.Table) (*transaction.Ledger, HuangExtra) {
	merged, amap := bid.MergeSamePrice(t, bid.DefaultPrecision)

	ledger := transaction.NewLedger()
	var extra HuangExtra

	buy, bOrder := curve.Demand(merged)
	sell, sOrder := curve.Supply(merged)

	cr := curve.Intersect(buy, sell, 0.5)
	if !cr.Found || cr.FIndex == 0 || cr.GIndex == 0 {
		return ledger, extra
	}

	priceSell := sell[cr.GIndex].Y
	priceBuy := buy[cr.FIndex].Y

	// Pre-intersection quantities of the winning bids on each side.
	quantityBuy := make([]float64, cr.FIndex)
	for i := range quantityBuy {
		quantityBuy[i] = merged.Get(bOrder[i]).Quantity
	}
	quantitySell := make([]float64, cr.GIndex)
	for i := range quantitySell {
		quantitySell[i] = merged.Get(sOrder[i]).Quantity
	}

	// One side commits more quantity than the other; shrink the long side
	// until the totals match.
	longSellers := sell[cr.GIndex-1].X > buy[cr.FIndex-1].X
	gap := sell[cr.GIndex-1].X - buy[cr.FIndex-1].X
	if longSellers {
		quantitySell = reduceLongSide(quantitySell, gap)
	} else {
		quantityBuy = reduceLongSide(quantityBuy, -gap)
	}

	for i := 0; i < cr.GIndex; i++ {
		ledger.Add(transaction.Transaction{
			Bid:      sOrder[i],
			Quantity: quantitySell[i],
			Price:    priceSell,
			Source:   transaction.NoSource,
			Active:   false,
		})
	}
	traded := 0.0
	for i := 0; i < cr.FIndex; i++ {
		ledger.Add(transaction.Transaction{
			Bid:      bOrder[i],
			Quantity: quantityBuy[i],
			Price:    priceBuy,
			Source:   transaction.NoSource,
			Active:   false,
		})
		traded += quantityBuy[i]
	}

	extra = HuangExtra{
		PriceSell:      priceSell,
		PriceBuy:       priceBuy,
		QuantityTraded: traded,
	}

	return transaction.Split(ledger, t, amap), extra
}

// reduceLongSide shrinks the given quantities so their total drops by gap,
// following the footnote of the Huang paper: whenever subtracting the
// average remaining gap would drive the smallest live quantity negative,
// that quantity is zeroed out and the gap left by it is spread over the
// rest; once the smallest survives the average, a uniform subtraction
// finishes the job. Removed entries are tracked in an explicit set.
func reduceLongSide(quantities []float64, gap float64) []float64 {
	out := make([]float64, len(quantities))
	copy(out, quantities)

	removed := make([]bool, len(out))
	n := len(out)
	for {
		iMin := -1
		for i, q := range out {
			if removed[i] || q <= 0 {
				continue
			}
			if iMin < 0 || q < out[iMin] {
				iMin = i
			}
		}
		if iMin < 0 {
			return out
		}
		if out[iMin] < gap/float64(n) {
			gap -= out[iMin]
			out[iMin] = 0
			removed[iMin] = true
			n--
			continue
		}
		break
	}

	sub := gap / float64(n)
	for i := range out {
		if removed[i] {
			continue
		}
		out[i] -= sub
		if out[i] < 0 {
			out[i] = 0
		}
	}
	return out
}
