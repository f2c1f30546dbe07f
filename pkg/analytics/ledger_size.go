package analytics

import "github.com/iotaledger/chronicle/pkg/ledger"

// LedgerSize accumulates the ledger's total storage cost (rent): every
// created output adds its StorageCost, every consumed output removes it
// (spec.md §4.7 "ledger size (total storage cost)"; original_source's
// LedgerSizeMeasurement is likewise a running total, not a per-slot delta).
// Reset (called by Fanout.ReinitializeFromUnspent) zeroes the total so it can
// be rebuilt from the current unspent-output set.
type LedgerSize struct {
	total int64
}

func NewLedgerSize() *LedgerSize { return &LedgerSize{} }

func (l *LedgerSize) Name() string { return "ledger_size" }

func (l *LedgerSize) Reset() { l.total = 0 }

func (l *LedgerSize) HandleTransaction(created []ledger.LedgerOutput, consumed []ledger.LedgerSpent, ctx Context) {
	if ctx.Parameters == nil {
		return
	}
	for i := range created {
		l.total += int64(ledger.StorageCost(&created[i].Output, ctx.Parameters))
	}
	for i := range consumed {
		l.total -= int64(ledger.StorageCost(&consumed[i].Output.Output, ctx.Parameters))
	}
}

func (l *LedgerSize) TakeMeasurement(ctx Context) Measurement {
	amount := uint64(0)
	if l.total > 0 {
		amount = uint64(l.total)
	}
	return Measurement{Name: l.Name(), Slot: ctx.Slot, Amount: amount}
}
