// Package fixture provides an in-memory InputSource for tests, built from
// explicit per-slot data rather than a live connection. It mirrors the shape of
// the teacher's test fixtures (account-balance-processor's raw-ledger stream is
// backed by a real gRPC client in production and a canned stream in tests); here
// the canned stream is promoted to a first-class, reusable InputSource.
package fixture

import (
	"context"
	"fmt"
	"sort"

	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/source"
)

// Slot is one slot's worth of canned data for the fixture source.
type Slot struct {
	Index      ledger.SlotIndex
	Commitment ledger.Commitment
	NodeConfig source.NodeConfiguration
	Created    []ledger.LedgerOutput
	Consumed   []ledger.LedgerSpent
	Blocks     []source.BlockWithMetadata
}

// Source is a deterministic, in-memory InputSource.
type Source struct {
	status  source.NodeStatus
	slots   map[ledger.SlotIndex]Slot
	order   []ledger.SlotIndex
	unspent []ledger.UnspentOutput
}

// New builds a fixture Source from a NodeStatus and an explicit slot list. Slots
// need not be provided in order; New sorts them.
func New(status source.NodeStatus, slots []Slot, unspent []ledger.UnspentOutput) *Source {
	s := &Source{
		status:  status,
		slots:   make(map[ledger.SlotIndex]Slot, len(slots)),
		unspent: unspent,
	}
	for _, sl := range slots {
		s.slots[sl.Index] = sl
		s.order = append(s.order, sl.Index)
	}
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })
	return s
}

func (s *Source) NodeStatus(ctx context.Context) (source.NodeStatus, error) {
	return s.status, nil
}

func (s *Source) SlotStream(ctx context.Context, r source.Range) (<-chan source.SlotStreamItem, error) {
	ch := make(chan source.SlotStreamItem)
	go func() {
		defer close(ch)
		for _, idx := range s.order {
			if !r.Contains(idx) {
				continue
			}
			sl := s.slots[idx]
			item := source.SlotStreamItem{
				Slot: idx,
				Data: source.SlotData{Commitment: sl.Commitment, NodeConfig: sl.NodeConfig},
			}
			select {
			case ch <- item:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (s *Source) LedgerUpdates(ctx context.Context, slot ledger.SlotIndex) (*ledger.LedgerUpdateStore, error) {
	sl, ok := s.slots[slot]
	if !ok {
		return nil, fmt.Errorf("fixture: no data for slot %d", slot)
	}
	return ledger.NewLedgerUpdateStore(sl.Created, sl.Consumed), nil
}

func (s *Source) AcceptedBlocks(ctx context.Context, slot ledger.SlotIndex) (<-chan source.BlockStreamItem, error) {
	sl, ok := s.slots[slot]
	if !ok {
		return nil, fmt.Errorf("fixture: no data for slot %d", slot)
	}
	ch := make(chan source.BlockStreamItem)
	go func() {
		defer close(ch)
		for _, b := range sl.Blocks {
			select {
			case ch <- source.BlockStreamItem{Block: b}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (s *Source) UnspentOutputs(ctx context.Context) (<-chan source.UnspentOutputStreamItem, error) {
	ch := make(chan source.UnspentOutputStreamItem)
	go func() {
		defer close(ch)
		for _, o := range s.unspent {
			select {
			case ch <- source.UnspentOutputStreamItem{Output: o}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

var _ source.InputSource = (*Source)(nil)
