package analytics

import "github.com/iotaledger/chronicle/pkg/ledger"

// AddressActivity counts the distinct addresses touched (as owner, sender,
// issuer or expiration return address) by a slot's transactions (spec.md
// §4.7 "address activity count per interval").
type AddressActivity struct {
	seen map[string]struct{}
}

// NewAddressActivity builds an empty AddressActivity analytic.
func NewAddressActivity() *AddressActivity {
	return &AddressActivity{seen: make(map[string]struct{})}
}

func (a *AddressActivity) Name() string { return "address_activity" }

func (a *AddressActivity) Reset() { a.seen = make(map[string]struct{}) }

func (a *AddressActivity) HandleTransaction(created []ledger.LedgerOutput, consumed []ledger.LedgerSpent, _ Context) {
	for i := range consumed {
		a.note(&consumed[i].Output.Output)
	}
	for i := range created {
		a.note(&created[i].Output)
	}
}

func (a *AddressActivity) note(o *ledger.Output) {
	if addr, ok := o.OwnerAddress(); ok {
		a.seen[addr.String()] = struct{}{}
	}
	if addr, ok := o.Features.Sender(); ok {
		a.seen[addr.String()] = struct{}{}
	}
	if addr, ok := o.Features.Issuer(); ok {
		a.seen[addr.String()] = struct{}{}
	}
	if returnee, _, ok := o.UnlockConditions.Expiration(); ok {
		a.seen[returnee.String()] = struct{}{}
	}
}

func (a *AddressActivity) TakeMeasurement(ctx Context) Measurement {
	m := Measurement{Name: a.Name(), Slot: ctx.Slot, Count: uint64(len(a.seen))}
	a.Reset()
	return m
}
