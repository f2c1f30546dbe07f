package analytics

// Registered returns every analytic named in spec.md §4.7, in a stable
// order, for wiring a Fanout with the default set.
func Registered() []Analytics {
	return []Analytics{
		NewAddressActivity(),
		NewAddressBalanceDistribution(),
		NewTransferVolume(),
		NewOutputActivity(),
		NewLedgerSize(),
		NewUnclaimedTokens(),
		NewUnlockConditionMix(),
		NewSlotSize(),
		NewBlockActivity(),
	}
}
