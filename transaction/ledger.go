// Package transaction holds the transaction records produced by market
// mechanisms and the post-processing that maps them back to merged bids.
package transaction

import "fmt"

// NoSource marks a transaction cleared against the aggregate curve rather
// than a specific counterparty bid.
const NoSource = -1

// Transaction is the minimal unit of a market outcome: a quantity traded
// by one bid at one price. Source is the counterparty bid id, or NoSource
// for auction-style clearing. Active reports whether the bid still has
// unconsumed quantity after this trade.
type Transaction struct {
	Bid      int     `cbor:"bid"`
	Quantity float64 `cbor:"quantity"`
	Price    float64 `cbor:"price"`
	Source   int     `cbor:"source"`
	Active   bool    `cbor:"active"`
}

// Transaction satisfies the fmt.Stringer interface.
func (t Transaction) String() string {
	return fmt.Sprintf("bid %d: %f units at %f (source %d)", t.Bid, t.Quantity, t.Price, t.Source)
}

// Ledger is an append-only collection of transactions, identified by
// position.
type Ledger struct {
	trans []Transaction
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Add appends a transaction and returns its id.
func (l *Ledger) Add(t Transaction) int {
	l.trans = append(l.trans, t)
	return len(l.trans) - 1
}

// Len returns the number of transactions.
func (l *Ledger) Len() int {
	return len(l.trans)
}

// Transactions returns a copy of all transactions in insertion order.
func (l *Ledger) Transactions() []Transaction {
	out := make([]Transaction, len(l.trans))
	copy(out, l.trans)
	return out
}

// Merge returns a new ledger holding the transactions of l followed by
// those of other. No consistency check is performed.
func (l *Ledger) Merge(other *Ledger) *Ledger {
	out := NewLedger()
	for _, t := range l.trans {
		out.Add(t)
	}
	for _, t := range other.trans {
		out.Add(t)
	}
	return out
}

// TotalQuantity sums the transacted quantity over the whole ledger.
func (l *Ledger) TotalQuantity() float64 {
	sum := 0.0
	for _, t := range l.trans {
		sum += t.Quantity
	}
	return sum
}
