// Package market is the user-facing facade: it collects bids, runs one of
// the clearing mechanisms and summarizes the outcome.
package market

import (
	"fmt"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/clearlab/batchmarket/bid"
	"github.com/clearlab/batchmarket/mechanism"
	"github.com/clearlab/batchmarket/stats"
	"github.com/clearlab/batchmarket/transaction"
)

var log = logging.Logger("market")

// Mechanism names a clearing algorithm.
type Mechanism string

const (
	// Huang is the price-setting double auction.
	Huang Mechanism = "huang"
	// Muda is the truthful multi-unit double auction.
	Muda Mechanism = "muda"
	// P2P is the random peer-to-peer matcher.
	P2P Mechanism = "p2p"
)

// Market accumulates bids and keeps the outcome of its last run.
type Market struct {
	id    uuid.UUID
	bids  *bid.Table
	trans *transaction.Ledger
	extra any
}

// New returns an empty market with a fresh run id.
func New() *Market {
	return &Market{
		id:   uuid.New(),
		bids: bid.NewTable(),
	}
}

// ID returns the market's unique id.
func (m *Market) ID() uuid.UUID {
	return m.id
}

// AcceptBid adds a bid and returns its id.
func (m *Market) AcceptBid(b bid.Bid) int {
	return m.bids.Add(b)
}

// Bids exposes the underlying bid table.
func (m *Market) Bids() *bid.Table {
	return m.bids
}

// Transactions returns the ledger of the last run, or nil before any run.
func (m *Market) Transactions() *transaction.Ledger {
	return m.trans
}

// Extra returns the mechanism metadata of the last run: a
// mechanism.HuangExtra, mechanism.MudaExtra or mechanism.P2PExtra.
func (m *Market) Extra() any {
	return m.extra
}

type runOptions struct {
	rng   mechanism.Rand
	pCoef float64
}

// RunOption tweaks a single Run call.
type RunOption func(*runOptions)

// WithRand injects the random source used by the randomized mechanisms.
func WithRand(r mechanism.Rand) RunOption {
	return func(o *runOptions) {
		o.rng = r
	}
}

// WithPriceCoef sets the peer-to-peer trade price interpolation: 1 trades
// at the buyer's price, 0 at the seller's. Defaults to 0.5.
func WithPriceCoef(c float64) RunOption {
	return func(o *runOptions) {
		o.pCoef = c
	}
}

// Run clears the current bids with the named mechanism and stores the
// result, replacing any previous run's.
func (m *Market) Run(name Mechanism, opts ...RunOption) (*transaction.Ledger, any, error) {
	o := runOptions{pCoef: 0.5}
	for _, opt := range opts {
		opt(&o)
	}

	log.Debugw("running market", "id", m.id, "mechanism", name, "bids", m.bids.Len())

	var (
		trans *transaction.Ledger
		extra any
		err   error
	)
	switch name {
	case Huang:
		trans, extra = mechanism.Huang(m.bids)
	case Muda:
		trans, extra, err = mechanism.Muda(m.bids, o.rng)
	case P2P:
		trans, extra = mechanism.P2P(m.bids, o.pCoef, o.rng)
	default:
		return nil, nil, fmt.Errorf("market: unknown mechanism %q", name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("running %s: %w", name, err)
	}

	m.trans = trans
	m.extra = extra
	log.Debugw("market cleared", "id", m.id, "transactions", trans.Len())
	return trans, extra, nil
}

// Statistics summarizes the last run. Percentages are reported with an
// accompanying flag because a market that admits no trade or no welfare has
// no meaningful ratio.
type Statistics struct {
	PercentageTraded  float64
	TradedFeasible    bool
	PercentageWelfare float64
	WelfareFeasible   bool
	Profits           stats.Profits
}

// Statistics evaluates the outcome of the last run against the submitted
// bids. reservation holds reservation prices by bid id for participants
// whose bids were not truthful; it may be nil. Fees charged by the truthful
// auction are folded into the market operator's profit. Calling Statistics
// before any run panics.
func (m *Market) Statistics(reservation map[int]float64) Statistics {
	if m.trans == nil {
		panic("market: statistics requested before any run")
	}

	var fees map[int]float64
	if extra, ok := m.extra.(mechanism.MudaExtra); ok {
		fees = extra.Fees
	}

	var s Statistics
	s.PercentageTraded, s.TradedFeasible = stats.PercentageTraded(m.bids, m.trans)
	s.PercentageWelfare, s.WelfareFeasible = stats.PercentageWelfare(m.bids, m.trans, reservation)
	s.Profits = stats.CalculateProfits(m.bids, m.trans, reservation, fees)
	return s
}
