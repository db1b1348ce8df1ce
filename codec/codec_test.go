package codec

import (
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/clearlab/batchmarket/bid"
	"github.com/clearlab/batchmarket/transaction"
)

func TestSnapshotRoundTrip(t *testing.T) {
	tbl := bid.NewTable()
	tbl.Add(bid.Bid{Quantity: 1, Price: 3, User: 0, Buying: true, Divisible: true})
	tbl.Add(bid.Bid{Quantity: 4, Price: 2, User: 3, Buying: false})

	l := transaction.NewLedger()
	l.Add(transaction.Transaction{Bid: 0, Quantity: 1, Price: 2.5, Source: transaction.NoSource})
	l.Add(transaction.Transaction{Bid: 1, Quantity: 1, Price: 2.5, Source: transaction.NoSource, Active: true})

	snap := Take("run-1", "huang", tbl, l)
	data, err := Encode(snap)
	check.Nil(t, err)

	decoded, err := Decode(data)
	check.Nil(t, err)
	check.Equal(t, snap, decoded)

	tbl2, l2 := Restore(decoded)
	check.Equal(t, tbl.Bids(), tbl2.Bids())
	check.Equal(t, l.Transactions(), l2.Transactions())
}

func TestSnapshotWithoutRun(t *testing.T) {
	tbl := bid.NewTable()
	tbl.Add(bid.Bid{Quantity: 1, Price: 3, User: 0, Buying: true})

	snap := Take("run-2", "", tbl, nil)
	data, err := Encode(snap)
	check.Nil(t, err)

	decoded, err := Decode(data)
	check.Nil(t, err)
	check.Equal(t, 1, len(decoded.Bids))
	check.Equal(t, 0, len(decoded.Transactions))
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte{0xff, 0x00, 0x01})
	check.NotNil(t, err)
}
