package analytics

import "github.com/iotaledger/chronicle/pkg/ledger"

// UnclaimedTokens tracks the running count and native-token-id set of
// outputs that carry a NativeToken feature and remain unspent (spec.md §4.7
// "unclaimed token outputs"): a created output with native tokens adds to
// the set, a consumed one removes it, regardless of which slot created it.
type UnclaimedTokens struct {
	outstanding map[ledger.OutputID]struct{}
	tokenIDs    map[ledger.TokenID]struct{}
}

func NewUnclaimedTokens() *UnclaimedTokens {
	return &UnclaimedTokens{
		outstanding: make(map[ledger.OutputID]struct{}),
		tokenIDs:    make(map[ledger.TokenID]struct{}),
	}
}

func (u *UnclaimedTokens) Name() string { return "unclaimed_token_outputs" }

func (u *UnclaimedTokens) Reset() {
	u.outstanding = make(map[ledger.OutputID]struct{})
	u.tokenIDs = make(map[ledger.TokenID]struct{})
}

func (u *UnclaimedTokens) HandleTransaction(created []ledger.LedgerOutput, consumed []ledger.LedgerSpent, _ Context) {
	for i := range consumed {
		delete(u.outstanding, consumed[i].Output.OutputID)
	}
	for i := range created {
		if tokens := created[i].Output.NativeTokens(); len(tokens) > 0 {
			u.outstanding[created[i].OutputID] = struct{}{}
			for _, t := range tokens {
				u.tokenIDs[t.TokenID] = struct{}{}
			}
		}
	}
}

func (u *UnclaimedTokens) TakeMeasurement(ctx Context) Measurement {
	return Measurement{
		Name:    u.Name(),
		Slot:    ctx.Slot,
		Count:   uint64(len(u.outstanding)),
		Buckets: map[string]uint64{"distinct_token_ids": uint64(len(u.tokenIDs))},
	}
}
