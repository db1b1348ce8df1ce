// Package codec serializes market runs so they can be stored or shipped
// between processes.
package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/clearlab/batchmarket/bid"
	"github.com/clearlab/batchmarket/transaction"
)

// Snapshot is the wire form of one market run: the submitted bids in table
// order and the resulting transactions in ledger order. Bid and transaction
// ids are positional, so the snapshot round-trips them exactly.
type Snapshot struct {
	ID           string                    `cbor:"id"`
	Mechanism    string                    `cbor:"mechanism"`
	Bids         []bid.Bid                 `cbor:"bids"`
	Transactions []transaction.Transaction `cbor:"transactions"`
}

// Take captures a market run into a snapshot. The ledger may be nil when
// the market has not been run.
func Take(id, mech string, t *bid.Table, l *transaction.Ledger) Snapshot {
	s := Snapshot{
		ID:        id,
		Mechanism: mech,
		Bids:      t.Bids(),
	}
	if l != nil {
		s.Transactions = l.Transactions()
	}
	return s
}

// Encode serializes the snapshot to CBOR.
func Encode(s Snapshot) ([]byte, error) {
	b, err := cbor.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return b, nil
}

// Decode parses a CBOR snapshot.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return s, nil
}

// Restore rebuilds the bid table and transaction ledger of a snapshot.
func Restore(s Snapshot) (*bid.Table, *transaction.Ledger) {
	t := bid.NewTable()
	for _, b := range s.Bids {
		t.Add(b)
	}
	l := transaction.NewLedger()
	for _, tr := range s.Transactions {
		l.Add(tr)
	}
	return t, l
}
