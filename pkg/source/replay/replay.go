// Package replay implements InputSource by replaying already-persisted state:
// commitments and per-slot created/consumed outputs out of the document store.
// It backs historical backfill re-runs and is what the fill-analytics CLI
// command drives instead of reconnecting to a live node. The analytics
// re-initialization step (spec.md §4.7 step 1) does not use it: the sync
// controller reads the unspent set from the output store directly.
package replay

import (
	"context"
	"fmt"

	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/source"
	"github.com/iotaledger/chronicle/pkg/store"
)

// Source replays slots out of an OutputStore + CommitmentStore pair.
type Source struct {
	outputs     store.OutputStore
	commitments store.CommitmentStore
	nodeConfig  store.NodeConfigurationStore
}

// New builds a replay Source.
func New(outputs store.OutputStore, commitments store.CommitmentStore, nodeConfig store.NodeConfigurationStore) *Source {
	return &Source{outputs: outputs, commitments: commitments, nodeConfig: nodeConfig}
}

func (s *Source) NodeStatus(ctx context.Context) (source.NodeStatus, error) {
	latest, err := s.commitments.GetLatestCommitment(ctx)
	if err != nil {
		return source.NodeStatus{}, err
	}
	status := source.NodeStatus{IsBootstrapped: true}
	if latest != nil {
		status.LatestCommitment = *latest
		status.LastAcceptedBlockSlot = latest.SlotIndex
	}
	return status, nil
}

func (s *Source) SlotStream(ctx context.Context, r source.Range) (<-chan source.SlotStreamItem, error) {
	ch := make(chan source.SlotStreamItem)
	go func() {
		defer close(ch)
		slot := r.Start
		for r.Contains(slot) {
			c, err := s.commitments.GetCommitment(ctx, slot)
			if err != nil {
				select {
				case ch <- source.SlotStreamItem{Slot: slot, Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if c == nil {
				// No more persisted commitments: replay stops here rather than
				// stalling, since unlike a live node there is nothing further to
				// wait for.
				return
			}
			nodeCfg := source.NodeConfiguration{}
			if s.nodeConfig != nil {
				if hist, err := s.nodeConfig.GetNodeConfiguration(ctx); err == nil && hist != nil {
					nodeCfg.ProtocolParameters = *hist
				}
			}
			item := source.SlotStreamItem{Slot: slot, Data: source.SlotData{Commitment: *c, NodeConfig: nodeCfg}}
			select {
			case ch <- item:
			case <-ctx.Done():
				return
			}
			slot++
		}
	}()
	return ch, nil
}

func (s *Source) LedgerUpdates(ctx context.Context, slot ledger.SlotIndex) (*ledger.LedgerUpdateStore, error) {
	createdCh, err := s.outputs.GetCreatedOutputs(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("replay: created outputs for slot %d: %w", slot, err)
	}
	var created []ledger.LedgerOutput
	for item := range createdCh {
		if item.Err != nil {
			return nil, item.Err
		}
		created = append(created, ledger.LedgerOutput{
			OutputID:             item.Document.ID,
			BlockID:              item.Document.Metadata.BlockID,
			SlotBooked:           item.Document.Metadata.SlotBooked,
			CommitmentIDIncluded: item.Document.Metadata.CommitmentIDIncluded,
			Output:               item.Document.Output,
			RawOutput:            item.Document.RawOutput,
		})
	}

	consumedCh, err := s.outputs.GetConsumedOutputs(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("replay: consumed outputs for slot %d: %w", slot, err)
	}
	var consumed []ledger.LedgerSpent
	for item := range consumedCh {
		if item.Err != nil {
			return nil, item.Err
		}
		if item.Document.Metadata.SpentMetadata == nil {
			continue
		}
		sm := item.Document.Metadata.SpentMetadata
		consumed = append(consumed, ledger.LedgerSpent{
			Output: ledger.LedgerOutput{
				OutputID:   item.Document.ID,
				BlockID:    item.Document.Metadata.BlockID,
				SlotBooked: item.Document.Metadata.SlotBooked,
				Output:     item.Document.Output,
				RawOutput:  item.Document.RawOutput,
			},
			SlotSpent:          sm.SlotSpent,
			CommitmentIDSpent:  sm.CommitmentIDSpent,
			TransactionIDSpent: sm.TransactionIDSpent,
		})
	}

	return ledger.NewLedgerUpdateStore(created, consumed), nil
}

func (s *Source) AcceptedBlocks(ctx context.Context, slot ledger.SlotIndex) (<-chan source.BlockStreamItem, error) {
	ch := make(chan source.BlockStreamItem)
	close(ch) // block replay is not needed by analytics/balance re-derivation
	return ch, nil
}

func (s *Source) UnspentOutputs(ctx context.Context) (<-chan source.UnspentOutputStreamItem, error) {
	docCh, err := s.outputs.GetUnspentOutputStream(ctx, ^ledger.SlotIndex(0))
	if err != nil {
		return nil, err
	}
	ch := make(chan source.UnspentOutputStreamItem)
	go func() {
		defer close(ch)
		for item := range docCh {
			if item.Err != nil {
				select {
				case ch <- source.UnspentOutputStreamItem{Err: item.Err}:
				case <-ctx.Done():
				}
				return
			}
			out := ledger.LedgerOutput{
				OutputID:   item.Document.ID,
				BlockID:    item.Document.Metadata.BlockID,
				SlotBooked: item.Document.Metadata.SlotBooked,
				Output:     item.Document.Output,
				RawOutput:  item.Document.RawOutput,
			}
			select {
			case ch <- source.UnspentOutputStreamItem{Output: out}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

var _ source.InputSource = (*Source)(nil)
