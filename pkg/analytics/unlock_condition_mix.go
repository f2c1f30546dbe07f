package analytics

import "github.com/iotaledger/chronicle/pkg/ledger"

// UnlockConditionMix counts how many outputs created in a slot carry each
// unlock condition kind (spec.md §4.7 "unlock-condition mix"), useful for
// tracking adoption of storage-deposit-return/timelock/expiration patterns
// over time.
type UnlockConditionMix struct {
	counts map[ledger.UnlockConditionKind]uint64
}

func NewUnlockConditionMix() *UnlockConditionMix {
	return &UnlockConditionMix{counts: make(map[ledger.UnlockConditionKind]uint64)}
}

func (u *UnlockConditionMix) Name() string { return "unlock_condition_mix" }

func (u *UnlockConditionMix) Reset() { u.counts = make(map[ledger.UnlockConditionKind]uint64) }

func (u *UnlockConditionMix) HandleTransaction(created []ledger.LedgerOutput, _ []ledger.LedgerSpent, _ Context) {
	for i := range created {
		for _, c := range created[i].Output.UnlockConditions {
			u.counts[c.Kind]++
		}
	}
}

func unlockConditionKindName(k ledger.UnlockConditionKind) string {
	switch k {
	case ledger.UnlockConditionAddress:
		return "address"
	case ledger.UnlockConditionStorageDepositReturn:
		return "storage_deposit_return"
	case ledger.UnlockConditionTimelock:
		return "timelock"
	case ledger.UnlockConditionExpiration:
		return "expiration"
	case ledger.UnlockConditionStateControllerAddress:
		return "state_controller_address"
	case ledger.UnlockConditionGovernorAddress:
		return "governor_address"
	case ledger.UnlockConditionImmutableAccountAddress:
		return "immutable_account_address"
	default:
		return "unknown"
	}
}

func (u *UnlockConditionMix) TakeMeasurement(ctx Context) Measurement {
	buckets := make(map[string]uint64, len(u.counts))
	for kind, count := range u.counts {
		buckets[unlockConditionKindName(kind)] = count
	}
	m := Measurement{Name: u.Name(), Slot: ctx.Slot, Buckets: buckets}
	u.Reset()
	return m
}
