package mechanism

import (
	"math"

	"github.com/clearlab/batchmarket/bid"
	"github.com/clearlab/batchmarket/transaction"
)

// Pair is one buyer/seller match, by bid id.
type Pair struct {
	Buyer  int
	Seller int
}

// P2PExtra records the matching history of a peer-to-peer run: one list of
// pairs per trading round, in the order they were drawn.
type P2PExtra struct {
	TradingList [][]Pair
}

// P2P clears the market by repeated random bilateral matching. Every
// buyer/seller pair is a potential trade; each round draws pairs uniformly
// at random until no two disjoint ones remain, then settles the drawn
// pairs. A pair trades the smaller of the two remaining quantities when the
// buyer's price covers the seller's, at pCoef*buy + (1-pCoef)*sell;
// otherwise a zero-quantity record is kept so the failed encounter is still
// visible in the ledger. A pair is matched at most once, and pairs lose
// eligibility as soon as either side runs out of quantity.
//
// A nil rng falls back to a time-seeded source.
func P2P(t *bid.Table, pCoef float64, rng Rand) (*transaction.Ledger, P2PExtra) {
	rng = orSystem(rng)
	ledger := transaction.NewLedger()

	n := t.Len()
	quantities := make([]float64, n)
	prices := make([]float64, n)
	var buyers, sellers []int
	for _, id := range t.IDs() {
		b := t.Get(id)
		quantities[id] = b.Quantity
		prices[id] = b.Price
		if b.Buying {
			buyers = append(buyers, id)
		} else {
			sellers = append(sellers, id)
		}
	}

	var pairs []Pair
	for _, b := range buyers {
		for _, s := range sellers {
			pairs = append(pairs, Pair{Buyer: b, Seller: s})
		}
	}
	// involves[id][k] reports whether bid id takes part in pair k.
	involves := make([][]bool, n)
	for id := range involves {
		involves[id] = make([]bool, len(pairs))
	}
	for k, p := range pairs {
		involves[p.Buyer][k] = true
		involves[p.Seller][k] = true
	}

	active := make([]bool, len(pairs))
	tmpActive := make([]bool, len(pairs))
	for k := range active {
		active[k] = true
		tmpActive[k] = true
	}

	var rounds [][]Pair
	for sum(quantities) > 0 && anyTrue(tmpActive) {
		var round []Pair
		for {
			var where []int
			for k, a := range tmpActive {
				if a {
					where = append(where, k)
				}
			}
			if len(where) == 0 {
				break
			}
			x := where[rng.Intn(len(where))]
			pr := pairs[x]
			active[x] = false
			round = append(round, pr)
			for k := range tmpActive {
				if involves[pr.Buyer][k] || involves[pr.Seller][k] {
					tmpActive[k] = false
				}
			}
		}
		rounds = append(rounds, round)

		for _, pr := range round {
			b, s := pr.Buyer, pr.Seller
			if prices[b] >= prices[s] {
				q := math.Min(quantities[b], quantities[s])
				p := pCoef*prices[b] + (1-pCoef)*prices[s]
				ledger.Add(transaction.Transaction{
					Bid: b, Quantity: q, Price: p,
					Source: s, Active: quantities[b]-q > 0,
				})
				ledger.Add(transaction.Transaction{
					Bid: s, Quantity: q, Price: p,
					Source: b, Active: quantities[s]-q > 0,
				})
				quantities[b] -= q
				quantities[s] -= q
			} else {
				ledger.Add(transaction.Transaction{
					Bid: b, Quantity: 0, Price: 0, Source: s, Active: true,
				})
				ledger.Add(transaction.Transaction{
					Bid: s, Quantity: 0, Price: 0, Source: b, Active: true,
				})
			}
		}

		copy(tmpActive, active)
		for id, q := range quantities {
			if q != 0 {
				continue
			}
			for k := range tmpActive {
				if involves[id][k] {
					tmpActive[k] = false
				}
			}
		}
	}

	return ledger, P2PExtra{TradingList: rounds}
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}
	return false
}
