package ledger

import (
	"testing"
)

func testOutputID(b byte) OutputID {
	var tx TransactionID
	tx[0] = b
	return NewOutputID(tx, 0)
}

func TestFromLedgerOutputProjectsDetails(t *testing.T) {
	tests := []struct {
		name       string
		output     Output
		outputID   OutputID
		wantKind   OutputKind
		wantTrivial bool
		wantImplicitDerived bool
	}{
		{
			name: "basic output with plain address is trivially unlockable",
			output: Output{
				Kind:   OutputBasic,
				Amount: 100,
				UnlockConditions: UnlockConditionSet{
					{Kind: UnlockConditionAddress, Address: Address{Kind: AddressEd25519, Data: []byte{1, 2, 3}}},
				},
			},
			outputID:    testOutputID(1),
			wantKind:    OutputBasic,
			wantTrivial: true,
		},
		{
			name: "basic output with timelock is not trivially unlockable",
			output: Output{
				Kind:   OutputBasic,
				Amount: 50,
				UnlockConditions: UnlockConditionSet{
					{Kind: UnlockConditionAddress, Address: Address{Kind: AddressEd25519, Data: []byte{9}}},
					{Kind: UnlockConditionTimelock, SlotIndex: 20},
				},
			},
			outputID: testOutputID(2),
			wantKind: OutputBasic,
		},
		{
			name: "account output with implicit id gets the id derived from its output id",
			output: Output{
				Kind:   OutputAccount,
				Amount: 500,
				UnlockConditions: UnlockConditionSet{
					{Kind: UnlockConditionStateControllerAddress, Address: Address{Kind: AddressEd25519, Data: []byte{7}}},
					{Kind: UnlockConditionGovernorAddress, Address: Address{Kind: AddressEd25519, Data: []byte{7}}},
				},
				IndexedID: IndexedID{}, // implicit
			},
			outputID:            testOutputID(3),
			wantKind:             OutputAccount,
			wantImplicitDerived:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lo := LedgerOutput{OutputID: tc.outputID, Output: tc.output}
			doc := FromLedgerOutput(&lo)

			if doc.Details.Kind != tc.wantKind {
				t.Fatalf("kind = %v, want %v", doc.Details.Kind, tc.wantKind)
			}
			if doc.Details.IsTrivialUnlock != tc.wantTrivial {
				t.Fatalf("is_trivial_unlock = %v, want %v", doc.Details.IsTrivialUnlock, tc.wantTrivial)
			}
			if tc.wantImplicitDerived {
				if doc.Details.IndexedID == nil {
					t.Fatalf("expected indexed_id to be populated")
				}
				want := DeriveFromOutputID(tc.outputID)
				if *doc.Details.IndexedID != want {
					t.Fatalf("indexed_id = %x, want %x (derived from output id)", *doc.Details.IndexedID, want)
				}
			}
		})
	}
}

func TestApplySpendIsIdempotent(t *testing.T) {
	lo := LedgerOutput{
		OutputID: testOutputID(1),
		Output: Output{
			Kind:   OutputBasic,
			Amount: 100,
			UnlockConditions: UnlockConditionSet{
				{Kind: UnlockConditionAddress, Address: Address{Kind: AddressEd25519, Data: []byte{1}}},
			},
		},
	}
	doc := FromLedgerOutput(&lo)

	spend := &LedgerSpent{
		Output:             lo,
		SlotSpent:          42,
		TransactionIDSpent: TransactionID{9},
	}

	doc.ApplySpend(spend)
	first := *doc.Metadata.SpentMetadata

	// Applying the same spend again must not change the recorded metadata
	// (spec.md §8 property 2: spend idempotence).
	doc.ApplySpend(spend)
	second := *doc.Metadata.SpentMetadata

	if first != second {
		t.Fatalf("spend metadata changed on reapplication: %+v != %+v", first, second)
	}

	// Applying a different (later) spend must also be rejected: spent_metadata
	// is monotonic once set (invariant I2).
	doc.ApplySpend(&LedgerSpent{Output: lo, SlotSpent: 100, TransactionIDSpent: TransactionID{99}})
	if *doc.Metadata.SpentMetadata != first {
		t.Fatalf("spent_metadata was overwritten after being set once")
	}
}

func TestSlotCommitmentIDEmbedsSlotIndex(t *testing.T) {
	var id SlotCommitmentID
	// little-endian slot index 12345 in the trailing 4 bytes.
	id[32] = 0x39
	id[33] = 0x30
	id[34] = 0x00
	id[35] = 0x00

	if got, want := id.SlotIndex(), SlotIndex(12345); got != want {
		t.Fatalf("SlotIndex() = %d, want %d", got, want)
	}
}
