// Package bid holds the bid records submitted to a market and the
// pre-processing applied to them before a mechanism can run.
package bid

import "fmt"

// Bid is a single buy or sell offer. Quantity is the amount of the good
// requested (buying) or offered (selling), Price the per-unit limit price.
// Divisible bids accept any fraction of the asked quantity as an outcome.
type Bid struct {
	Quantity  float64 `cbor:"quantity"`
	Price     float64 `cbor:"price"`
	User      int     `cbor:"user"`
	Buying    bool    `cbor:"buying"`
	Time      float64 `cbor:"time"`
	Divisible bool    `cbor:"divisible"`
}

// Bid satisfies the fmt.Stringer interface.
func (b Bid) String() string {
	side := "sell"
	if b.Buying {
		side = "buy"
	}
	return fmt.Sprintf("%s %f units at %f per unit (user %d)", side, b.Quantity, b.Price, b.User)
}

// Table is an append-only collection of bids. A bid is identified by its
// position in the table, which is stable for the lifetime of the table.
// Bids are immutable once added.
type Table struct {
	bids []Bid
}

// NewTable returns an empty bid table.
func NewTable() *Table {
	return &Table{}
}

// Add appends a bid and returns its id.
func (t *Table) Add(b Bid) int {
	t.bids = append(t.bids, b)
	return len(t.bids) - 1
}

// Len returns the number of bids in the table.
func (t *Table) Len() int {
	return len(t.bids)
}

// Get returns the bid with the given id. Passing an id outside
// [0, Len()) is a programmer error and panics.
func (t *Table) Get(id int) Bid {
	return t.bids[id]
}

// Bids returns a copy of all bids in insertion order. Mechanisms work on
// this copy so the caller's table is never mutated.
func (t *Table) Bids() []Bid {
	out := make([]Bid, len(t.bids))
	copy(out, t.bids)
	return out
}

// IDs returns all bid ids in insertion order.
func (t *Table) IDs() []int {
	out := make([]int, len(t.bids))
	for i := range out {
		out[i] = i
	}
	return out
}

// MaxUser returns the largest user id present, or -1 for an empty table.
func (t *Table) MaxUser() int {
	max := -1
	for _, b := range t.bids {
		if b.User > max {
			max = b.User
		}
	}
	return max
}
