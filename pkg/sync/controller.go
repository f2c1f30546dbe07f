// Package sync implements C5: the sync controller state machine that drives
// a node connection (or a replay source) into the output/commitment/block
// stores and the analytics fan-out (spec.md §4.5).
package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iotaledger/chronicle/pkg/analytics"
	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/scope"
	"github.com/iotaledger/chronicle/pkg/slotstream"
	"github.com/iotaledger/chronicle/pkg/source"
	"github.com/iotaledger/chronicle/pkg/store"
)

// Controller drives the Init -> ReadNodeStatus -> BootstrapOrResume ->
// Tail/Backfill state machine (spec.md §4.5) over one InputSource.
type Controller struct {
	logger *zap.Logger

	src             source.InputSource
	outputs         store.OutputStore
	commitments     store.CommitmentStore
	blocks          store.BlockStore
	appState        store.ApplicationStateStore
	protocolUpdates store.ProtocolUpdateStore
	nodeConfig      store.NodeConfigurationStore
	fanout          *analytics.Fanout

	batchSize              int
	startMilestoneOverride *ledger.SlotIndex
	replayFromStart        *ledger.SlotIndex

	state State
}

// Option configures a Controller at construction.
type Option func(*Controller)

// WithBatchSize overrides store.InsertBatchSize for this controller.
func WithBatchSize(n int) Option {
	return func(c *Controller) { c.batchSize = n }
}

// WithStartMilestoneOverride pins the cold-bootstrap start slot regardless
// of the node's pruning index, used by operators replaying from a known
// later point (spec.md §4.5 "configured sync_start_milestone"). It has no
// effect when a commitment is already persisted (the warm-resume path) — use
// WithReplayFromStart for that.
func WithStartMilestoneOverride(slot ledger.SlotIndex) Option {
	return func(c *Controller) { c.startMilestoneOverride = &slot }
}

// WithReplayFromStart forces the resume-path start slot to the given value
// regardless of the stored commitment tip, bypassing the usual tip+1
// resumption. Used by the fill-analytics CLI command to re-derive analytics
// across the whole persisted history instead of resuming from where the last
// run left off (spec.md §6's "fill-analytics" surface).
func WithReplayFromStart(slot ledger.SlotIndex) Option {
	return func(c *Controller) { c.replayFromStart = &slot }
}

// New builds a Controller over its store/source/analytics dependencies.
func New(
	logger *zap.Logger,
	src source.InputSource,
	outputs store.OutputStore,
	commitments store.CommitmentStore,
	blocks store.BlockStore,
	appState store.ApplicationStateStore,
	protocolUpdates store.ProtocolUpdateStore,
	nodeConfig store.NodeConfigurationStore,
	fanout *analytics.Fanout,
	opts ...Option,
) *Controller {
	c := &Controller{
		logger:          logger,
		src:             src,
		outputs:         outputs,
		commitments:     commitments,
		blocks:          blocks,
		appState:        appState,
		protocolUpdates: protocolUpdates,
		nodeConfig:      nodeConfig,
		fanout:          fanout,
		batchSize:       store.InsertBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the controller's current state-machine node, for health
// reporting.
func (c *Controller) State() State { return c.state }

// Run drives the full state machine to completion. It returns a non-nil
// error only for the fatal conditions spec.md §4.5 names (sync gap, index
// mismatch, network change) or an unrecoverable store/source error; an
// ordinary end of a bounded replay stream returns nil.
func (c *Controller) Run(ctx context.Context) error {
	root := scope.New(ctx, c.logger, "sync", scope.SupervisorFunc(func(r scope.Report) {
		c.logger.Error("sync scope task failed", zap.String("task", r.TaskName), zap.Error(r.Err))
	}))

	c.state = StateInit
	c.logger.Info("sync: init")

	c.state = StateReadNodeStatus
	status, err := c.src.NodeStatus(ctx)
	if err != nil {
		return fmt.Errorf("sync: read node status: %w", err)
	}
	c.logger.Info("sync: node status",
		zap.Bool("is_bootstrapped", status.IsBootstrapped),
		zap.Uint64("pruning_epoch", status.PruningEpoch),
		zap.Uint32("last_accepted_block_slot", uint32(status.LastAcceptedBlockSlot)))

	c.state = StateBootstrapOrResume
	startSlot, err := c.bootstrapOrResume(ctx, root, status)
	if err != nil {
		c.state = StateFatal
		return err
	}

	c.state = StateTail
	return c.tail(ctx, root, startSlot)
}

// bootstrapOrResume implements spec.md §4.5's BootstrapOrResume step.
func (c *Controller) bootstrapOrResume(ctx context.Context, root *scope.Scope, status source.NodeStatus) (ledger.SlotIndex, error) {
	if err := c.checkNetwork(ctx, status); err != nil {
		return 0, err
	}

	pruningSlot := ledger.SlotIndex(status.PruningEpoch)

	latest, err := c.commitments.GetLatestCommitment(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync: read latest commitment: %w", err)
	}

	if latest != nil {
		if pruningSlot > latest.SlotIndex {
			return 0, &SyncMilestoneGapError{Start: latest.SlotIndex + 1, End: pruningSlot}
		}
		if status.LastAcceptedBlockSlot < latest.SlotIndex {
			return 0, &SyncMilestoneIndexMismatchError{Persisted: latest.SlotIndex, Node: status.LastAcceptedBlockSlot}
		}
		resumeStart := latest.SlotIndex + 1
		if c.replayFromStart != nil {
			resumeStart = *c.replayFromStart
			c.logger.Info("sync: forcing replay from start, ignoring stored commitment tip",
				zap.Uint32("stored_tip", uint32(latest.SlotIndex)), zap.Uint32("start_slot", uint32(resumeStart)))
			return resumeStart, nil
		}
		c.logger.Info("sync: resuming", zap.Uint32("start_slot", uint32(resumeStart)))
		return resumeStart, nil
	}

	c.logger.Info("sync: no persisted commitment, cold bootstrapping")
	if err := c.coldBootstrap(ctx, root); err != nil {
		return 0, err
	}

	start := pruningSlot + 1
	if c.startMilestoneOverride != nil && *c.startMilestoneOverride > start {
		start = *c.startMilestoneOverride
	}
	if err := c.appState.SetStartingIndex(ctx, start); err != nil {
		return 0, fmt.Errorf("sync: persist starting slot: %w", err)
	}
	return start, nil
}

// checkNetwork compares the node's reported network name against whatever
// this store last persisted, failing fatally on a mismatch (spec.md §4.5
// "On any state transition, compare the stored network name against the
// node's").
func (c *Controller) checkNetwork(ctx context.Context, status source.NodeStatus) error {
	persisted, err := c.appState.GetProtocolParameters(ctx)
	if err != nil {
		return fmt.Errorf("sync: read persisted protocol parameters: %w", err)
	}
	if persisted == nil || persisted.NetworkName == "" || status.NetworkName == "" {
		return nil
	}
	if persisted.NetworkName != status.NetworkName {
		return &NetworkChangedError{Persisted: persisted.NetworkName, Node: status.NetworkName}
	}
	return nil
}

// coldBootstrap drains InputSource.UnspentOutputs into the output store in
// INSERT_BATCH_SIZE batches, one task per batch, joining all before
// returning (spec.md §4.5). Persisting the protocol-parameters record is
// left to the Tail step (step 4 of spec.md §4.5's per-slot sequence does this
// for every slot that carries protocol parameters, so there is no separate
// path to keep in sync).
func (c *Controller) coldBootstrap(ctx context.Context, root *scope.Scope) error {
	stream, err := c.src.UnspentOutputs(ctx)
	if err != nil {
		return fmt.Errorf("sync: open unspent output stream: %w", err)
	}

	bootstrapScope := root.Child("bootstrap")
	batch := make([]ledger.LedgerOutput, 0, c.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		toInsert := batch
		batch = make([]ledger.LedgerOutput, 0, c.batchSize)
		bootstrapScope.Spawn("insert-unspent-batch", func(ctx context.Context) error {
			return c.outputs.InsertUnspentOutputs(ctx, toInsert)
		})
	}

	for item := range stream {
		if item.Err != nil {
			c.logger.Warn("sync: dropping undecodable unspent output", zap.Error(item.Err))
			continue
		}
		batch = append(batch, item.Output)
		if len(batch) >= c.batchSize {
			flush()
		}
	}
	flush()

	if err := bootstrapScope.Wait(); err != nil {
		return fmt.Errorf("sync: cold bootstrap insert: %w", err)
	}
	return nil
}

// tail opens the live slot stream from startSlot and processes every slot
// in order (spec.md §4.5 "Tail/Backfill").
func (c *Controller) tail(ctx context.Context, root *scope.Scope, startSlot ledger.SlotIndex) error {
	items, err := slotstream.Stream(ctx, c.src, source.Range{Start: startSlot, Unbounded: true})
	if err != nil {
		return fmt.Errorf("sync: open slot stream: %w", err)
	}

	for item := range items {
		if item.Err != nil {
			return fmt.Errorf("sync: slot stream: %w", item.Err)
		}
		if err := c.processSlot(ctx, root, item.Slot); err != nil {
			return err
		}
	}

	c.logger.Info("sync: slot stream ended")
	return nil
}

// processSlot implements the six-step per-slot sequence of spec.md §4.5.
func (c *Controller) processSlot(ctx context.Context, root *scope.Scope, slot *slotstream.Slot) error {
	slotScope := root.Child(fmt.Sprintf("slot-%d", slot.Index))

	if err := c.drainCreated(ctx, slotScope, slot.LedgerUpdates.Created()); err != nil {
		return err
	}
	if err := c.drainConsumed(ctx, slotScope, slot.LedgerUpdates.Consumed()); err != nil {
		return err
	}

	actx := analytics.Context{Slot: slot.Index, Timestamp: uint64(slot.Commitment.SlotTimestamp), Parameters: slot.ProtocolParameters}
	if err := c.drainBlocks(ctx, slotScope, slot, actx); err != nil {
		return err
	}

	if slot.ProtocolParameters != nil {
		if err := c.appState.SetProtocolParameters(ctx, *slot.ProtocolParameters); err != nil {
			return fmt.Errorf("sync: persist protocol parameters: %w", err)
		}
		latest, err := c.protocolUpdates.LatestProtocolUpdate(ctx)
		if err != nil {
			return fmt.Errorf("sync: read latest protocol update: %w", err)
		}
		if latest == nil || *latest != *slot.ProtocolParameters {
			if err := c.protocolUpdates.RecordProtocolUpdate(ctx, slot.Index, *slot.ProtocolParameters); err != nil {
				return fmt.Errorf("sync: record protocol update: %w", err)
			}
		}
	}

	if c.fanout.NeedsReinitialization(slot.ProtocolParameters) {
		// Snapshot the unspent set as of the slot *before* this one: this
		// slot's own created/consumed outputs were already drained into the
		// store above, so collecting at slot.Index would double-count them
		// once HandleSlot below replays this slot's transactions on top.
		reinitIndex := slot.Index
		if reinitIndex > 0 {
			reinitIndex--
		}
		unspent, err := c.collectUnspent(ctx, reinitIndex)
		if err != nil {
			return fmt.Errorf("sync: reinitialize analytics: %w", err)
		}
		c.fanout.ReinitializeFromUnspent(unspent, actx)
	}
	c.fanout.HandleSlot(actx, slot.LedgerUpdates)

	if err := c.commitments.InsertCommitment(ctx, slot.Commitment); err != nil {
		return fmt.Errorf("sync: insert commitment: %w", err)
	}
	return nil
}

func (c *Controller) drainCreated(ctx context.Context, parent *scope.Scope, created []ledger.LedgerOutput) error {
	s := parent.Child("insert-created")
	for start := 0; start < len(created); start += c.batchSize {
		end := start + c.batchSize
		if end > len(created) {
			end = len(created)
		}
		batch := created[start:end]
		s.Spawn("insert-created-batch", func(ctx context.Context) error {
			return c.outputs.InsertUnspentOutputs(ctx, batch)
		})
	}
	if err := s.Wait(); err != nil {
		return fmt.Errorf("sync: insert created outputs: %w", err)
	}
	return nil
}

func (c *Controller) drainConsumed(ctx context.Context, parent *scope.Scope, consumed []ledger.LedgerSpent) error {
	s := parent.Child("update-spent")
	for start := 0; start < len(consumed); start += c.batchSize {
		end := start + c.batchSize
		if end > len(consumed) {
			end = len(consumed)
		}
		batch := consumed[start:end]
		s.Spawn("update-spent-batch", func(ctx context.Context) error {
			return c.outputs.UpdateSpentOutputs(ctx, batch)
		})
	}
	if err := s.Wait(); err != nil {
		return fmt.Errorf("sync: update spent outputs: %w", err)
	}
	return nil
}

func (c *Controller) drainBlocks(ctx context.Context, parent *scope.Scope, slot *slotstream.Slot, actx analytics.Context) error {
	blockStream, err := slot.AcceptedBlockStream(ctx)
	if err != nil {
		return fmt.Errorf("sync: open accepted block stream: %w", err)
	}

	s := parent.Child("insert-blocks")
	batch := make([]store.BlockRecord, 0, c.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		toInsert := batch
		batch = make([]store.BlockRecord, 0, c.batchSize)
		s.Spawn("insert-block-batch", func(ctx context.Context) error {
			return c.blocks.InsertBlocks(ctx, toInsert)
		})
	}

	for item := range blockStream {
		if item.Err != nil {
			c.logger.Warn("sync: dropping undecodable block", zap.Error(item.Err))
			continue
		}
		c.fanout.HandleBlock(analytics.BlockInfo{
			PayloadKind:     item.Block.PayloadKind,
			Size:            len(item.Block.Raw),
			AcceptanceState: analytics.AcceptanceStateAccepted,
		}, actx)
		batch = append(batch, store.BlockRecord{
			BlockID:     item.Block.BlockID,
			SlotIndex:   item.Block.SlotIndex,
			Raw:         item.Block.Raw,
			PayloadKind: item.Block.PayloadKind,
		})
		if len(batch) >= c.batchSize {
			flush()
		}
	}
	flush()

	if err := s.Wait(); err != nil {
		return fmt.Errorf("sync: insert blocks: %w", err)
	}
	return nil
}

// collectUnspent materializes the store's current unspent-output set as of
// ledgerIndex, for analytics.Fanout.ReinitializeFromUnspent.
func (c *Controller) collectUnspent(ctx context.Context, ledgerIndex ledger.SlotIndex) ([]ledger.LedgerOutput, error) {
	stream, err := c.outputs.GetUnspentOutputStream(ctx, ledgerIndex)
	if err != nil {
		return nil, err
	}
	var out []ledger.LedgerOutput
	for item := range stream {
		if item.Err != nil {
			c.logger.Warn("sync: dropping undecodable unspent output during reinit", zap.Error(item.Err))
			continue
		}
		out = append(out, item.Document.ToLedgerOutput())
	}
	return out, nil
}
