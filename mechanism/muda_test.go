package mechanism

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/clearlab/batchmarket/bid"
	"github.com/clearlab/batchmarket/transaction"
)

func TestMudaDuplicatePrice(t *testing.T) {
	tbl := bid.NewTable()
	tbl.Add(bid.Bid{Quantity: 1, Price: 5, User: 0, Buying: true})
	tbl.Add(bid.Bid{Quantity: 2, Price: 5, User: 1, Buying: true})
	tbl.Add(bid.Bid{Quantity: 1, Price: 2, User: 2, Buying: false})

	_, _, err := Muda(tbl, nil)
	check.True(t, errors.Is(err, ErrDuplicatePrice))
}

func TestMudaSameUserRepeatedPriceAllowed(t *testing.T) {
	// The same user may repeat a price; only distinct users clash.
	tbl := bid.NewTable()
	tbl.Add(bid.Bid{Quantity: 1, Price: 5, User: 0, Buying: true})
	tbl.Add(bid.Bid{Quantity: 2, Price: 5, User: 0, Buying: true})
	tbl.Add(bid.Bid{Quantity: 1, Price: 2, User: 1, Buying: false})

	rng := &scriptedRand{floats: []float64{0.6, 0.6, 0.6}}
	ledger, extra, err := Muda(tbl, rng)

	check.Nil(t, err)
	check.Equal(t, 0, ledger.Len())
	check.Equal(t, []int{0, 1, 2}, extra.Left)
	check.Equal(t, 0, len(extra.Right))
}

func TestMudaOppositeSidesSharePriceAllowed(t *testing.T) {
	tbl := bid.NewTable()
	tbl.Add(bid.Bid{Quantity: 1, Price: 5, User: 0, Buying: true})
	tbl.Add(bid.Bid{Quantity: 1, Price: 5, User: 1, Buying: false})

	_, _, err := Muda(tbl, &scriptedRand{floats: []float64{0.6, 0.4}})
	check.Nil(t, err)
}

func TestMudaSteppedMarket(t *testing.T) {
	tbl := steppedTable()

	// Partition: bids 1, 3, 4, 7, 8, 9 to the left, the rest to the right.
	rng := &scriptedRand{floats: []float64{
		0.4, 0.6, 0.4, 0.6, 0.6, 0.4, 0.4, 0.6, 0.6, 0.6, 0.4,
	}}
	ledger, extra, err := Muda(tbl, rng)
	check.Nil(t, err)

	check.Equal(t, []int{1, 3, 4, 7, 8, 9}, extra.Left)
	check.Equal(t, []int{0, 2, 5, 6, 10}, extra.Right)
	check.True(t, almost(4.65, extra.PriceLeft))
	check.True(t, almost(6.3, extra.PriceRight))

	trans := ledger.Transactions()
	check.Equal(t, 7, len(trans))

	want := []struct {
		bid      int
		quantity float64
		price    float64
	}{
		{1, 1, 6.3},
		{3, 1, 6.3},
		{4, 1, 6.3},
		{7, 1, 6.3},
		{8, 2, 6.3},
		{6, 1, 4.65},
		{0, 1, 4.65},
	}
	for i, w := range want {
		check.Equal(t, w.bid, trans[i].Bid)
		check.True(t, almost(w.quantity, trans[i].Quantity))
		check.True(t, almost(w.price, trans[i].Price))
		check.Equal(t, transaction.NoSource, trans[i].Source)
		check.False(t, trans[i].Active)
	}

	// Vickrey fees: long-side traders pay the surplus of the bids they
	// keep out of the winning set.
	check.Equal(t, 3, len(extra.Fees))
	check.True(t, almost(2.3, extra.Fees[7]))
	check.True(t, almost(4.6, extra.Fees[8]))
	check.True(t, almost(1.85, extra.Fees[0]))
}

func TestMudaNoTradeAtCrossPrices(t *testing.T) {
	// Each group prices the other out of the market: both prices are set,
	// yet nothing trades.
	tbl := bid.NewTable()
	tbl.Add(bid.Bid{Quantity: 1, Price: 3, User: 0, Buying: true})
	tbl.Add(bid.Bid{Quantity: 1, Price: 2, User: 1, Buying: false})
	tbl.Add(bid.Bid{Quantity: 1, Price: 5, User: 2, Buying: true})
	tbl.Add(bid.Bid{Quantity: 1, Price: 4, User: 3, Buying: false})

	rng := &scriptedRand{floats: []float64{0.6, 0.6, 0.4, 0.4}}
	ledger, extra, err := Muda(tbl, rng)
	check.Nil(t, err)

	check.Equal(t, 0, ledger.Len())
	check.Equal(t, []int{0, 1}, extra.Left)
	check.Equal(t, []int{2, 3}, extra.Right)
	check.Equal(t, 2.5, extra.PriceLeft)
	check.Equal(t, 4.5, extra.PriceRight)
	check.Equal(t, 0, len(extra.Fees))
}

func TestMudaEmptyGroupPricesAtZero(t *testing.T) {
	tbl := bid.NewTable()
	tbl.Add(bid.Bid{Quantity: 1, Price: 3, User: 0, Buying: true})
	tbl.Add(bid.Bid{Quantity: 1, Price: 2, User: 1, Buying: false})

	// Everything lands on the left; the right group is empty.
	rng := &scriptedRand{floats: []float64{0.6, 0.6}}
	ledger, extra, err := Muda(tbl, rng)
	check.Nil(t, err)

	check.Equal(t, 0.0, extra.PriceRight)
	// The left group clears at the right's price 0: no buyer is priced
	// out, but no seller asks 0 or less.
	check.Equal(t, 0, ledger.Len())
}

func TestMudaPartitionSplitsUserAcrossGroups(t *testing.T) {
	// The coin is flipped per bid, so one user's bids can land in both
	// groups and trade in both.
	tbl := bid.NewTable()
	tbl.Add(bid.Bid{Quantity: 1, Price: 10, User: 0, Buying: true})
	tbl.Add(bid.Bid{Quantity: 1, Price: 9, User: 0, Buying: true})
	tbl.Add(bid.Bid{Quantity: 1, Price: 1, User: 1, Buying: false})
	tbl.Add(bid.Bid{Quantity: 1, Price: 2, User: 2, Buying: false})

	rng := &scriptedRand{floats: []float64{0.6, 0.4, 0.6, 0.4}}
	ledger, extra, err := Muda(tbl, rng)
	check.Nil(t, err)

	check.Equal(t, []int{0, 2}, extra.Left)
	check.Equal(t, []int{1, 3}, extra.Right)

	trans := ledger.Transactions()
	check.Equal(t, 4, len(trans))
	check.Equal(t, 2, trans[0].Bid)
	check.Equal(t, 0, trans[1].Bid)
	check.Equal(t, 3, trans[2].Bid)
	check.Equal(t, 1, trans[3].Bid)
	for _, tr := range trans {
		check.Equal(t, 5.5, tr.Price)
	}
}

func TestClearGroupAtPrice(t *testing.T) {
	// A merged market cleared at an exogenous price: the short demand side
	// trades in full, the long supply side fills in merit order and the
	// filled seller pays for displacing the expensive one.
	tbl := bid.NewTable()
	tbl.Add(bid.Bid{Quantity: 2.3, Price: 85, User: 2, Buying: true})
	tbl.Add(bid.Bid{Quantity: 2.5, Price: 90, User: 9, Buying: true})
	tbl.Add(bid.Bid{Quantity: 4, Price: 100, User: 10, Buying: true})
	tbl.Add(bid.Bid{Quantity: 4.2, Price: 1, User: 5, Buying: false})
	tbl.Add(bid.Bid{Quantity: 0.6, Price: 90, User: 11, Buying: false})

	ledger, fees := clearGroupAtPrice(tbl, tbl.IDs(), 95)

	trans := ledger.Transactions()
	check.Equal(t, 2, len(trans))

	check.Equal(t, 2, trans[0].Bid)
	check.Equal(t, 4.0, trans[0].Quantity)
	check.Equal(t, 95.0, trans[0].Price)
	check.False(t, trans[0].Active)

	check.Equal(t, 3, trans[1].Bid)
	check.Equal(t, 4.0, trans[1].Quantity)
	check.Equal(t, 95.0, trans[1].Price)
	check.True(t, trans[1].Active)

	check.Equal(t, 1, len(fees))
	check.True(t, almost(20, fees[5]))
}

func TestFillQuantities(t *testing.T) {
	tbl := bid.NewTable()
	tbl.Add(bid.Bid{Quantity: 2, Price: 1, User: 0, Buying: false})
	tbl.Add(bid.Bid{Quantity: 3, Price: 2, User: 1, Buying: false})
	tbl.Add(bid.Bid{Quantity: 1, Price: 3, User: 2, Buying: false})

	fill := fillQuantities(tbl, []int{0, 1, 2}, 4, noUser)
	check.Equal(t, 2.0, fill[0])
	check.Equal(t, 2.0, fill[1])
	check.Equal(t, 0.0, fill[2])

	// Excluding the first user shifts the fill down the merit order.
	fill = fillQuantities(tbl, []int{0, 1, 2}, 4, 0)
	check.Equal(t, 0.0, fill[0])
	check.Equal(t, 3.0, fill[1])
	check.Equal(t, 1.0, fill[2])
}
