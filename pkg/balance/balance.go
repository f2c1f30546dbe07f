// Package balance implements C6: the address-balance and locked-funds
// accountant (spec.md §4.6, invariant I5). Balance exposes the direct,
// query-time formula delegated to the output store's aggregation; Projector
// (projector.go) is the streaming in-memory alternative used by analytics
// that need a running balance without re-querying per measurement.
package balance

import (
	"context"
	"fmt"

	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/store"
)

// Accountant answers balance queries by delegating straight to the output
// store's own aggregation (spec.md §4.6 "a single aggregation pipeline"), so
// the formula's only implementation lives in each store backend and this
// type stays a thin, store-agnostic facade.
type Accountant struct {
	outputs store.OutputStore
}

// New builds an Accountant over an output store.
func New(outputs store.OutputStore) *Accountant {
	return &Accountant{outputs: outputs}
}

// Balance answers invariant I5 for a single address at a slot.
func (a *Accountant) Balance(ctx context.Context, addr ledger.Address, ledgerIndex ledger.SlotIndex) (store.AddressBalance, error) {
	bal, err := a.outputs.GetAddressBalance(ctx, addr, ledgerIndex)
	if err != nil {
		return store.AddressBalance{}, fmt.Errorf("balance: %w", err)
	}
	return bal, nil
}

// RichestAddresses answers get_richest_addresses (spec.md §4.4).
func (a *Accountant) RichestAddresses(ctx context.Context, ledgerIndex ledger.SlotIndex, topN int) ([]store.RichAddress, error) {
	out, err := a.outputs.GetRichestAddresses(ctx, ledgerIndex, topN)
	if err != nil {
		return nil, fmt.Errorf("balance: richest addresses: %w", err)
	}
	return out, nil
}

// TokenDistribution answers get_token_distribution (spec.md §4.4).
func (a *Accountant) TokenDistribution(ctx context.Context, ledgerIndex ledger.SlotIndex) ([]store.TokenDistributionBucket, error) {
	out, err := a.outputs.GetTokenDistribution(ctx, ledgerIndex)
	if err != nil {
		return nil, fmt.Errorf("balance: token distribution: %w", err)
	}
	return out, nil
}

// outputValue mirrors memstore's read-time SDRUC subtraction (spec.md §4.6:
// "output_amount = amount - SDRUC.amount"), used by Projector which has no
// store to delegate the formula to.
func outputValue(o *ledger.Output) uint64 {
	amount := o.Amount
	if _, sdrAmount, ok := o.UnlockConditions.StorageDepositReturn(); ok {
		if sdrAmount >= amount {
			return 0
		}
		return amount - sdrAmount
	}
	return amount
}
