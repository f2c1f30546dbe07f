// Package slotstream wraps an InputSource into a higher-level iterator that, for
// each committed slot, eagerly assembles the slot's LedgerUpdateStore and
// exposes a handle to lazily fetch its accepted blocks (spec.md §4.3, C3).
package slotstream

import (
	"context"
	"fmt"

	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/source"
)

// Slot is the per-committed-slot handle handed to downstream consumers.
// LedgerUpdates is eagerly materialized before the slot is yielded, so
// GetCreated/GetConsumed are pure lookups and the slot's changes can be
// replayed to any number of analytics in one pass without re-fetching (spec.md
// §4.3 "Rationale").
type Slot struct {
	Index              ledger.SlotIndex
	Commitment         ledger.Commitment
	ProtocolParameters *ledger.ProtocolParameters
	LedgerUpdates      *ledger.LedgerUpdateStore

	source source.InputSource
}

// AcceptedBlockStream lazily defers to the underlying InputSource; it is only
// called by consumers that actually need block bodies (the sync controller's
// block-store drain), not by balance/analytics consumers.
func (s *Slot) AcceptedBlockStream(ctx context.Context) (<-chan source.BlockStreamItem, error) {
	return s.source.AcceptedBlocks(ctx, s.Index)
}

// Item is one element of a Stream: either a materialized Slot, or a terminal
// error (e.g. a source decode failure while building the ledger update store).
type Item struct {
	Slot *Slot
	Err  error
}

// Stream pulls SlotData from an InputSource over a Range and yields fully
// materialized Slot handles in increasing slot order.
func Stream(ctx context.Context, src source.InputSource, r source.Range) (<-chan Item, error) {
	raw, err := src.SlotStream(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("slotstream: open source stream: %w", err)
	}

	out := make(chan Item)
	go func() {
		defer close(out)
		for raw := range raw {
			if raw.Err != nil {
				select {
				case out <- Item{Err: raw.Err}:
				case <-ctx.Done():
				}
				return
			}

			updates, err := src.LedgerUpdates(ctx, raw.Slot)
			if err != nil {
				select {
				case out <- Item{Err: fmt.Errorf("slotstream: ledger updates for slot %d: %w", raw.Slot, err)}:
				case <-ctx.Done():
				}
				return
			}

			slot := &Slot{
				Index:              raw.Slot,
				Commitment:         raw.Data.Commitment,
				ProtocolParameters: raw.Data.NodeConfig.ProtocolParameters.ActiveAt(raw.Slot),
				LedgerUpdates:      updates,
				source:             src,
			}

			select {
			case out <- Item{Slot: slot}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
