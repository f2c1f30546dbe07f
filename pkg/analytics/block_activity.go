package analytics

import "github.com/iotaledger/chronicle/pkg/ledger"

// BlockActivity counts accepted blocks per payload type and acceptance state
// (spec.md §4.7 "block activity (by payload type and acceptance state)").
type BlockActivity struct {
	counts map[string]uint64
}

func NewBlockActivity() *BlockActivity { return &BlockActivity{counts: make(map[string]uint64)} }

func (b *BlockActivity) Name() string { return "block_activity" }

func (b *BlockActivity) Reset() { b.counts = make(map[string]uint64) }

func (b *BlockActivity) HandleTransaction(_ []ledger.LedgerOutput, _ []ledger.LedgerSpent, _ Context) {
}

func (b *BlockActivity) HandleBlock(block BlockInfo, _ Context) {
	state := block.AcceptanceState
	if state == "" {
		state = AcceptanceStateAccepted
	}
	b.counts[block.PayloadKind+":"+state]++
}

func (b *BlockActivity) TakeMeasurement(ctx Context) Measurement {
	buckets := make(map[string]uint64, len(b.counts))
	for key, count := range b.counts {
		buckets[key] = count
	}
	m := Measurement{Name: b.Name(), Slot: ctx.Slot, Buckets: buckets}
	b.Reset()
	return m
}
