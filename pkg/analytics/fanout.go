package analytics

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/iotaledger/chronicle/pkg/ledger"
)

// Fanout drives the registered Analytics set across slots, following the
// teacher's processor-loop shape (account-balance-processor's per-ledger
// RecordSuccess/RecordError split): every registered analytic gets every
// slot's transactions, and a single misbehaving analytic is disabled rather
// than taking the whole sync loop down with it.
type Fanout struct {
	logger     *zap.Logger
	sink       Sink
	entries    []*entry
	lastParams *ledger.ProtocolParameters
	started    bool
}

type entry struct {
	analytics Analytics
	disabled  bool
}

// New builds a Fanout over the given analytics, in registration order.
func New(logger *zap.Logger, sink Sink, registered ...Analytics) *Fanout {
	entries := make([]*entry, len(registered))
	for i, a := range registered {
		entries[i] = &entry{analytics: a}
	}
	return &Fanout{logger: logger, sink: sink, entries: entries}
}

// HandleSlot folds one slot's ledger updates into every enabled analytic and
// emits each one's measurement to the sink. Callers are expected to have
// already called ReinitializeFromUnspent for this slot if
// NeedsReinitialization reported true (spec.md §4.7 step 1 needs the
// unspent-output set, which only the sync controller has ready access to).
func (f *Fanout) HandleSlot(ctx Context, updates *ledger.LedgerUpdateStore) {
	f.lastParams = ctx.Parameters

	created := updates.Created()
	consumed := updates.Consumed()

	for _, e := range f.entries {
		if e.disabled {
			continue
		}
		f.runHandleTransaction(e, created, consumed, ctx)
	}
	for _, e := range f.entries {
		if e.disabled {
			continue
		}
		f.runTakeMeasurement(e, ctx)
	}
}

// HandleBlock forwards one accepted block to every enabled analytic that
// opts into BlockObserver.
func (f *Fanout) HandleBlock(block BlockInfo, ctx Context) {
	for _, e := range f.entries {
		if e.disabled {
			continue
		}
		observer, ok := e.analytics.(BlockObserver)
		if !ok {
			continue
		}
		f.runHandleBlock(e, observer, block, ctx)
	}
}

func (f *Fanout) runHandleBlock(e *entry, observer BlockObserver, block BlockInfo, ctx Context) {
	defer func() {
		if r := recover(); r != nil {
			f.disable(e, fmt.Errorf("panic: %v", r))
		}
	}()
	observer.HandleBlock(block, ctx)
}

func (f *Fanout) protocolParametersChanged(next *ledger.ProtocolParameters) bool {
	if f.lastParams == nil || next == nil {
		return false
	}
	return *f.lastParams != *next
}

func (f *Fanout) reinitialize() {
	for _, e := range f.entries {
		if reinit, ok := e.analytics.(interface{ Reset() }); ok {
			reinit.Reset()
		}
	}
}

// NeedsReinitialization reports whether every analytic needs to be rebuilt
// from the current unspent-output set, without mutating state — the sync
// controller calls this before paying for an unspent-output scan, and only
// then calls ReinitializeFromUnspent. This is true both when protocol
// parameters changed since the last slot and on the very first slot of a run
// (spec.md §4.7 step 1: "if protocol parameters have changed since last slot
// (or first run after bootstrap)"), since a fresh Fanout has no accumulated
// state regardless of whether this is a cold bootstrap or a warm resume.
func (f *Fanout) NeedsReinitialization(params *ledger.ProtocolParameters) bool {
	if !f.started {
		return true
	}
	return f.protocolParametersChanged(params)
}

// ReinitializeFromUnspent implements step 1 of spec.md §4.7's fan-out
// algorithm literally: "re-initialize every analytic from the current
// unspent-output set at the slot". It resets every analytic, then replays
// the whole unspent-output set through HandleTransaction as if it were all
// created in this slot, so accumulator-shaped analytics (unclaimed tokens,
// balance distribution, ledger size) recover correct state instead of
// starting cold. Marks the fan-out as started so NeedsReinitialization does
// not report true again until parameters actually change.
func (f *Fanout) ReinitializeFromUnspent(unspent []ledger.LedgerOutput, ctx Context) {
	f.reinitialize()
	f.started = true
	for _, e := range f.entries {
		if e.disabled {
			continue
		}
		f.runHandleTransaction(e, unspent, nil, ctx)
	}
}

// runHandleTransaction recovers from a panicking analytic and disables it,
// rather than letting one bad analytic take down the sync loop (spec.md §7's
// log-and-drop policy, extended to analytics: a single measurement is never
// worth a fatal error).
func (f *Fanout) runHandleTransaction(e *entry, created []ledger.LedgerOutput, consumed []ledger.LedgerSpent, ctx Context) {
	defer func() {
		if r := recover(); r != nil {
			f.disable(e, fmt.Errorf("panic: %v", r))
		}
	}()
	e.analytics.HandleTransaction(created, consumed, ctx)
}

func (f *Fanout) runTakeMeasurement(e *entry, ctx Context) {
	defer func() {
		if r := recover(); r != nil {
			f.disable(e, fmt.Errorf("panic: %v", r))
		}
	}()
	m := e.analytics.TakeMeasurement(ctx)
	if err := f.sink.Emit(m); err != nil {
		f.logger.Warn("analytics sink emit failed",
			zap.String("analytic", e.analytics.Name()), zap.Error(err))
	}
}

func (f *Fanout) disable(e *entry, err error) {
	e.disabled = true
	f.logger.Error("disabling analytic after failure",
		zap.String("analytic", e.analytics.Name()), zap.Error(err))
}
