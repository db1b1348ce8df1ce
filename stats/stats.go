// Package stats evaluates market outcomes: maximum achievable volume and
// welfare, the fraction of each realized by a transaction ledger, and
// per-player profits.
//
// The maxima are transportation problems, but the constraint structure is a
// threshold bipartite graph (a buyer is compatible with every seller priced
// at or below them), so both admit exact greedy solutions and no LP solver
// is needed.
package stats

import (
	"math"
	"sort"

	"github.com/clearlab/batchmarket/bid"
	"github.com/clearlab/batchmarket/transaction"
)

// reservationPrice returns the reservation price of a bid: the entry in the
// map keyed by bid id, or the bid price itself when absent. Bids are
// assumed truthful unless stated otherwise.
func reservationPrice(t *bid.Table, reservation map[int]float64, id int) float64 {
	if v, ok := reservation[id]; ok {
		return v
	}
	return t.Get(id).Price
}

func sideIDs(t *bid.Table, buying bool) []int {
	var ids []int
	for _, id := range t.IDs() {
		if t.Get(id).Buying == buying {
			ids = append(ids, id)
		}
	}
	return ids
}

// MaxTradedVolume is the largest total quantity that any assignment of
// buyers to sellers could trade, where a buyer may only buy from sellers
// priced at or below their bid. Because a higher-priced buyer is compatible
// with a superset of any lower-priced buyer's sellers, allocating the most
// expensive still-compatible seller to the best remaining buyer is optimal.
func MaxTradedVolume(t *bid.Table) float64 {
	buyers := sideIDs(t, true)
	sellers := sideIDs(t, false)
	sort.SliceStable(buyers, func(i, j int) bool {
		return t.Get(buyers[i]).Price > t.Get(buyers[j]).Price
	})
	sort.SliceStable(sellers, func(i, j int) bool {
		return t.Get(sellers[i]).Price > t.Get(sellers[j]).Price
	})

	remaining := make(map[int]float64, t.Len())
	for _, id := range t.IDs() {
		remaining[id] = t.Get(id).Quantity
	}

	volume := 0.0
	i := 0
	for _, s := range sellers {
		ps := t.Get(s).Price
		for i < len(buyers) && remaining[s] > 0 {
			b := buyers[i]
			if t.Get(b).Price < ps {
				break
			}
			q := math.Min(remaining[b], remaining[s])
			volume += q
			remaining[b] -= q
			remaining[s] -= q
			if remaining[b] == 0 {
				i++
			}
		}
	}
	return volume
}

// MaxWelfare is the largest total surplus any assignment could generate,
// valuing each bid at its reservation price. The optimum pairs the
// highest-value buyers with the cheapest sellers while the surplus stays
// positive.
func MaxWelfare(t *bid.Table, reservation map[int]float64) float64 {
	buyers := sideIDs(t, true)
	sellers := sideIDs(t, false)
	sort.SliceStable(buyers, func(i, j int) bool {
		return reservationPrice(t, reservation, buyers[i]) > reservationPrice(t, reservation, buyers[j])
	})
	sort.SliceStable(sellers, func(i, j int) bool {
		return reservationPrice(t, reservation, sellers[i]) < reservationPrice(t, reservation, sellers[j])
	})

	welfare := 0.0
	qb, qs := 0.0, 0.0
	i, j := 0, 0
	for i < len(buyers) && j < len(sellers) {
		vb := reservationPrice(t, reservation, buyers[i])
		vs := reservationPrice(t, reservation, sellers[j])
		if vb <= vs {
			break
		}
		if qb == 0 {
			qb = t.Get(buyers[i]).Quantity
		}
		if qs == 0 {
			qs = t.Get(sellers[j]).Quantity
		}
		q := math.Min(qb, qs)
		welfare += q * (vb - vs)
		qb -= q
		qs -= q
		if qb == 0 {
			i++
		}
		if qs == 0 {
			j++
		}
	}
	return welfare
}

// PercentageTraded is the fraction of MaxTradedVolume that the ledger
// realized. Every trade appears in the ledger once per side, so the ledger
// total is halved. The second return value is false when the market admits
// no trade at all and the ratio is undefined.
func PercentageTraded(t *bid.Table, l *transaction.Ledger) (float64, bool) {
	max := MaxTradedVolume(t)
	if max <= 0 {
		return 0, false
	}
	return l.TotalQuantity() / 2 / max, true
}

// PercentageWelfare is the fraction of MaxWelfare that the ledger realized,
// valuing each transaction against the reservation price of its bid. The
// second return value is false when no welfare is achievable.
func PercentageWelfare(t *bid.Table, l *transaction.Ledger, reservation map[int]float64) (float64, bool) {
	max := MaxWelfare(t, reservation)
	if max <= 0 {
		return 0, false
	}
	welfare := 0.0
	for _, tr := range l.Transactions() {
		welfare += gain(t, reservation, tr)
	}
	return welfare / max, true
}

// gain is the surplus one transaction yields its bid owner: the gap between
// the reservation price and the transaction price, in the bid's favor.
func gain(t *bid.Table, reservation map[int]float64, tr transaction.Transaction) float64 {
	gap := reservationPrice(t, reservation, tr.Bid) - tr.Price
	if !t.Get(tr.Bid).Buying {
		gap = -gap
	}
	return gap * tr.Quantity
}

// Profits summarizes who gained what from a market run. PlayerBid values
// bids at their stated price, PlayerReservation at the reservation price.
// Market is the operator's take: money collected from buyers minus money
// paid to sellers, plus any fees charged.
type Profits struct {
	PlayerBid         map[int]float64
	PlayerReservation map[int]float64
	Market            float64
}

// CalculateProfits computes per-user profits from a transaction ledger,
// both at face value and at reservation prices, along with the market
// operator's profit. Users that submitted bids but did not trade appear
// with profit 0. fees may be nil.
func CalculateProfits(t *bid.Table, l *transaction.Ledger, reservation map[int]float64, fees map[int]float64) Profits {
	p := Profits{
		PlayerBid:         make(map[int]float64),
		PlayerReservation: make(map[int]float64),
	}
	for _, id := range t.IDs() {
		u := t.Get(id).User
		p.PlayerBid[u] = 0
		p.PlayerReservation[u] = 0
	}

	for _, tr := range l.Transactions() {
		b := t.Get(tr.Bid)
		p.PlayerBid[b.User] += gain(t, nil, tr)
		p.PlayerReservation[b.User] += gain(t, reservation, tr)

		if b.Buying {
			p.Market += tr.Price * tr.Quantity
		} else {
			p.Market -= tr.Price * tr.Quantity
		}
	}
	for _, f := range fees {
		p.Market += f
	}
	return p
}
