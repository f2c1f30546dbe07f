package analytics

import (
	"fmt"
	"math"

	"github.com/iotaledger/chronicle/pkg/balance"
	"github.com/iotaledger/chronicle/pkg/ledger"
)

// AddressBalanceDistribution buckets every address's running balance into
// log10 magnitude buckets, mirroring mongostore's GetTokenDistribution
// pipeline but computed incrementally off a streaming Projector instead of
// re-aggregating the whole output set every slot.
type AddressBalanceDistribution struct {
	projector *balance.Projector
}

// NewAddressBalanceDistribution builds the analytic over a fresh projector.
func NewAddressBalanceDistribution() *AddressBalanceDistribution {
	return &AddressBalanceDistribution{projector: balance.NewProjector()}
}

func (a *AddressBalanceDistribution) Name() string { return "address_balance_distribution" }

func (a *AddressBalanceDistribution) Reset() { a.projector = balance.NewProjector() }

func (a *AddressBalanceDistribution) HandleTransaction(created []ledger.LedgerOutput, consumed []ledger.LedgerSpent, ctx Context) {
	a.projector.Apply(ctx.Slot, ledger.NewLedgerUpdateStore(created, consumed))
}

func (a *AddressBalanceDistribution) TakeMeasurement(ctx Context) Measurement {
	buckets := make(map[string]uint64)
	for _, balanceAmount := range a.projector.AllBalances() {
		if balanceAmount == 0 {
			continue
		}
		bucket := fmt.Sprintf("1e%d", int(math.Floor(math.Log10(float64(balanceAmount)))))
		buckets[bucket]++
	}
	return Measurement{Name: a.Name(), Slot: ctx.Slot, Buckets: buckets}
}
