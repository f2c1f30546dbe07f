package balance

import "github.com/iotaledger/chronicle/pkg/ledger"

// Projector is the streaming in-memory balance projector (spec.md §4.6): it
// maintains a running `balances` total per address plus two pending-move
// queues, `locked` (timelocked, not yet counted) and `expiring` (already
// counted under the owner, pending a move to the return address), so
// per-slot analytics can read a balance without re-querying the store.
//
// It is not a substitute for Accountant: a Projector only ever reflects the
// slots it has been fed through Apply, in order, from some starting point —
// it has no notion of "balance at an arbitrary past slot" the way the direct
// formula does.
type Projector struct {
	balances map[string]uint64
	locked   map[ledger.OutputID]lockedEntry
	expiring map[ledger.OutputID]expiringEntry
}

type lockedEntry struct {
	slot   ledger.SlotIndex
	owner  ledger.Address
	amount uint64
}

type expiringEntry struct {
	slot          ledger.SlotIndex
	owner         ledger.Address
	returnAddress ledger.Address
	amount        uint64
}

// NewProjector builds an empty projector, starting from a zero balance for
// every address.
func NewProjector() *Projector {
	return &Projector{
		balances: make(map[string]uint64),
		locked:   make(map[ledger.OutputID]lockedEntry),
		expiring: make(map[ledger.OutputID]expiringEntry),
	}
}

// Balance returns the address's currently-known balance. It does not
// distinguish available from total: every amount the projector has moved
// into `balances` is, by construction, available as of the last Apply call.
func (p *Projector) Balance(addr ledger.Address) uint64 {
	return p.balances[addr.String()]
}

// AllBalances returns every address's current balance, keyed by its string
// encoding. Used by analytics that need a distribution over the whole known
// address set rather than a single lookup.
func (p *Projector) AllBalances() map[string]uint64 {
	return p.balances
}

// Apply folds one slot's ledger updates into the projector, in the order
// spec.md §4.6 requires: consumed outputs first (so a spend never tries to
// double-unlock through the drain step below), then drain every locked/
// expiring entry whose slot has been reached, then created outputs.
func (p *Projector) Apply(slot ledger.SlotIndex, updates *ledger.LedgerUpdateStore) {
	for _, spent := range updates.Consumed() {
		p.reverse(spent.Output.OutputID, &spent.Output.Output)
	}

	for id, e := range p.locked {
		if e.slot > slot {
			continue
		}
		p.balances[e.owner.String()] += e.amount
		delete(p.locked, id)
	}
	for id, e := range p.expiring {
		if e.slot > slot {
			continue
		}
		p.balances[e.owner.String()] -= e.amount
		p.balances[e.returnAddress.String()] += e.amount
		delete(p.expiring, id)
	}

	for _, created := range updates.Created() {
		p.add(slot, created.OutputID, &created.Output)
	}
}

// reverse undoes a consumed output's contribution, wherever it currently
// lives: still locked (never counted), still expiring (counted under owner),
// or settled in balances.
func (p *Projector) reverse(id ledger.OutputID, o *ledger.Output) {
	if _, ok := p.locked[id]; ok {
		delete(p.locked, id)
		return
	}
	if e, ok := p.expiring[id]; ok {
		p.balances[e.owner.String()] -= e.amount
		delete(p.expiring, id)
		return
	}
	owner, ok := o.OwnerAddress()
	if !ok {
		return
	}
	p.balances[owner.String()] -= outputValue(o)
}

// add schedules or immediately counts a newly created output, per the same
// timelock/expiration rules as the direct formula (spec.md §4.6, invariant
// I5).
func (p *Projector) add(slot ledger.SlotIndex, id ledger.OutputID, o *ledger.Output) {
	owner, hasOwner := o.OwnerAddress()
	if !hasOwner {
		return
	}
	value := outputValue(o)

	if tl, hasTl := o.UnlockConditions.Timelock(); hasTl && tl > slot {
		p.locked[id] = lockedEntry{slot: tl, owner: owner, amount: value}
		return
	}

	p.balances[owner.String()] += value
	if ra, exp, hasExp := o.UnlockConditions.Expiration(); hasExp && exp > slot {
		p.expiring[id] = expiringEntry{slot: exp, owner: owner, returnAddress: ra, amount: value}
	}
}
