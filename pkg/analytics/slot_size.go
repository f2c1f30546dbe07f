package analytics

import "github.com/iotaledger/chronicle/pkg/ledger"

// SlotSize sums accepted-block byte size per payload type for a slot
// (spec.md §4.7 "slot size (bytes by payload type)").
type SlotSize struct {
	bytesByKind map[string]uint64
}

func NewSlotSize() *SlotSize { return &SlotSize{bytesByKind: make(map[string]uint64)} }

func (s *SlotSize) Name() string { return "slot_size" }

func (s *SlotSize) Reset() { s.bytesByKind = make(map[string]uint64) }

func (s *SlotSize) HandleTransaction(_ []ledger.LedgerOutput, _ []ledger.LedgerSpent, _ Context) {}

func (s *SlotSize) HandleBlock(block BlockInfo, _ Context) {
	s.bytesByKind[block.PayloadKind] += uint64(block.Size)
}

func (s *SlotSize) TakeMeasurement(ctx Context) Measurement {
	buckets := make(map[string]uint64, len(s.bytesByKind))
	for kind, bytes := range s.bytesByKind {
		buckets[kind] = bytes
	}
	m := Measurement{Name: s.Name(), Slot: ctx.Slot, Buckets: buckets}
	s.Reset()
	return m
}
