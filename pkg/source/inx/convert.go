package inx

import (
	"encoding/binary"
	"fmt"

	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/source"
)

// frame is a minimal length-prefixed field encoding used inside the
// BytesValue payloads carried over the wire. It keeps every compound message
// (node status, a created/consumed output, a block) self-describing without
// inventing a second protobuf descriptor alongside the well-known types.
type frame struct {
	fields [][]byte
}

func newFrame() *frame { return &frame{} }

func (f *frame) put(b []byte) *frame {
	f.fields = append(f.fields, b)
	return f
}

func (f *frame) putUint64(v uint64) *frame {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return f.put(b)
}

func (f *frame) putUint32(v uint32) *frame {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return f.put(b)
}

func (f *frame) putString(s string) *frame {
	return f.put([]byte(s))
}

func (f *frame) bytes() []byte {
	var out []byte
	for _, b := range f.fields {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
		out = append(out, lenBuf[:]...)
		out = append(out, b...)
	}
	return out
}

func parseFrame(b []byte) (*frame, error) {
	f := newFrame()
	for len(b) > 0 {
		if len(b) < 4 {
			return nil, fmt.Errorf("inx: truncated frame length")
		}
		n := binary.BigEndian.Uint32(b[:4])
		b = b[4:]
		if uint32(len(b)) < n {
			return nil, fmt.Errorf("inx: truncated frame field")
		}
		f.fields = append(f.fields, b[:n])
		b = b[n:]
	}
	return f, nil
}

func (f *frame) field(i int) []byte {
	if i >= len(f.fields) {
		return nil
	}
	return f.fields[i]
}

func (f *frame) uint64At(i int) uint64 {
	b := f.field(i)
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (f *frame) uint32At(i int) uint32 {
	b := f.field(i)
	if len(b) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (f *frame) stringAt(i int) string {
	return string(f.field(i))
}

// encodeNodeStatus / decodeNodeStatus carry source.NodeStatus.
func encodeNodeStatus(s source.NodeStatus) []byte {
	boot := byte(0)
	if s.IsBootstrapped {
		boot = 1
	}
	return newFrame().
		putUint64(s.PruningEpoch).
		putUint32(uint32(s.LastAcceptedBlockSlot)).
		put(s.LatestCommitment.CommitmentID[:]).
		putUint32(uint32(s.LatestCommitment.SlotIndex)).
		putUint64(uint64(s.LatestCommitment.SlotTimestamp)).
		put(s.LatestCommitment.Raw.Bytes()).
		put(s.LatestFinalizedCommitmentID[:]).
		put([]byte{boot}).
		putString(s.NetworkName).
		bytes()
}

func decodeNodeStatus(b []byte) (source.NodeStatus, error) {
	f, err := parseFrame(b)
	if err != nil {
		return source.NodeStatus{}, err
	}
	var commitmentID ledger.SlotCommitmentID
	copy(commitmentID[:], f.field(2))
	var finalizedID ledger.SlotCommitmentID
	copy(finalizedID[:], f.field(6))
	bootField := f.field(7)
	return source.NodeStatus{
		PruningEpoch:          f.uint64At(0),
		LastAcceptedBlockSlot: ledger.SlotIndex(f.uint32At(1)),
		LatestCommitment: ledger.Commitment{
			CommitmentID:  commitmentID,
			SlotIndex:     ledger.SlotIndex(f.uint32At(3)),
			SlotTimestamp: int64(f.uint64At(4)),
			Raw:           ledger.NewRaw[ledger.RawCommitment](f.field(5)),
		},
		LatestFinalizedCommitmentID: finalizedID,
		IsBootstrapped:              len(bootField) > 0 && bootField[0] != 0,
		NetworkName:                 f.stringAt(8),
	}, nil
}

// encodeSlotData / decodeSlotData carry one SlotStreamItem's slot index and
// commitment. The node configuration is not carried: decoded SlotData has an
// empty protocol-parameters history.
func encodeSlotData(slot ledger.SlotIndex, d source.SlotData) []byte {
	return newFrame().
		putUint32(uint32(slot)).
		put(d.Commitment.CommitmentID[:]).
		putUint32(uint32(d.Commitment.SlotIndex)).
		putUint64(uint64(d.Commitment.SlotTimestamp)).
		put(d.Commitment.Raw.Bytes()).
		bytes()
}

func decodeSlotData(b []byte) (ledger.SlotIndex, source.SlotData, error) {
	f, err := parseFrame(b)
	if err != nil {
		return 0, source.SlotData{}, err
	}
	var commitmentID ledger.SlotCommitmentID
	copy(commitmentID[:], f.field(1))
	return ledger.SlotIndex(f.uint32At(0)), source.SlotData{
		Commitment: ledger.Commitment{
			CommitmentID:  commitmentID,
			SlotIndex:     ledger.SlotIndex(f.uint32At(2)),
			SlotTimestamp: int64(f.uint64At(3)),
			Raw:           ledger.NewRaw[ledger.RawCommitment](f.field(4)),
		},
	}, nil
}

// encodeOutput / decodeOutput carry a created-output record: output id, block
// id, slot booked, commitment id included, and the raw packed output bytes.
// The core stores raw verbatim and decodes lazily via ledger.Raw, so the wire
// layer never needs an iotago codec.
func encodeOutput(o ledger.LedgerOutput) []byte {
	return newFrame().
		put(o.OutputID[:]).
		put(o.BlockID[:]).
		putUint32(uint32(o.SlotBooked)).
		put(o.CommitmentIDIncluded[:]).
		put(o.RawOutput.Bytes()).
		bytes()
}

func decodeOutput(b []byte) (ledger.LedgerOutput, error) {
	f, err := parseFrame(b)
	if err != nil {
		return ledger.LedgerOutput{}, err
	}
	var id ledger.OutputID
	copy(id[:], f.field(0))
	var blockID ledger.BlockID
	copy(blockID[:], f.field(1))
	var commitmentID ledger.SlotCommitmentID
	copy(commitmentID[:], f.field(3))
	raw := f.field(4)
	// Output is left zero-valued here: decoding packed output bytes into the
	// typed Output requires the full iotago binary codec, which is out of
	// scope for this transport layer. Callers that need the typed form decode
	// RawOutput through a Decodable[Output] codec (spec.md §9 "Raw + decoded
	// duality").
	return ledger.LedgerOutput{
		OutputID:             id,
		BlockID:              blockID,
		SlotBooked:           ledger.SlotIndex(f.uint32At(2)),
		CommitmentIDIncluded: commitmentID,
		RawOutput:            ledger.NewRaw[ledger.Output](raw),
	}, nil
}

// encodeSpent / decodeSpent additionally carry the spend metadata.
func encodeSpent(s ledger.LedgerSpent) []byte {
	return newFrame().
		put(encodeOutput(s.Output)).
		putUint32(uint32(s.SlotSpent)).
		put(s.CommitmentIDSpent[:]).
		put(s.TransactionIDSpent[:]).
		bytes()
}

func decodeSpent(b []byte) (ledger.LedgerSpent, error) {
	f, err := parseFrame(b)
	if err != nil {
		return ledger.LedgerSpent{}, err
	}
	out, err := decodeOutput(f.field(0))
	if err != nil {
		return ledger.LedgerSpent{}, err
	}
	var commitmentID ledger.SlotCommitmentID
	copy(commitmentID[:], f.field(2))
	var txID ledger.TransactionID
	copy(txID[:], f.field(3))
	return ledger.LedgerSpent{
		Output:             out,
		SlotSpent:          ledger.SlotIndex(f.uint32At(1)),
		CommitmentIDSpent:  commitmentID,
		TransactionIDSpent: txID,
	}, nil
}

// encodeBlock / decodeBlock carry an accepted block's raw bytes and metadata.
func encodeBlock(bl source.BlockWithMetadata) []byte {
	return newFrame().
		put(bl.BlockID[:]).
		putUint32(uint32(bl.SlotIndex)).
		putString(bl.PayloadKind).
		put(bl.Raw).
		bytes()
}

func decodeBlock(b []byte) (source.BlockWithMetadata, error) {
	f, err := parseFrame(b)
	if err != nil {
		return source.BlockWithMetadata{}, err
	}
	var id ledger.BlockID
	copy(id[:], f.field(0))
	return source.BlockWithMetadata{
		BlockID:     id,
		SlotIndex:   ledger.SlotIndex(f.uint32At(1)),
		PayloadKind: f.stringAt(2),
		Raw:         f.field(3),
	}, nil
}

// ledgerUpdatesEnvelope carries the full created/consumed set for one
// LedgerUpdates call in a single message (the rpc is unary, not streamed,
// matching the teacher's request/response style for bounded-size results).
func encodeLedgerUpdates(store *ledger.LedgerUpdateStore) []byte {
	f := newFrame().putUint32(uint32(len(store.Created()))).putUint32(uint32(len(store.Consumed())))
	for _, o := range store.Created() {
		f.put(encodeOutput(o))
	}
	for _, s := range store.Consumed() {
		f.put(encodeSpent(s))
	}
	return f.bytes()
}

func decodeLedgerUpdates(b []byte) (*ledger.LedgerUpdateStore, error) {
	f, err := parseFrame(b)
	if err != nil {
		return nil, err
	}
	numCreated := f.uint32At(0)
	numConsumed := f.uint32At(1)
	idx := 2
	created := make([]ledger.LedgerOutput, 0, numCreated)
	for i := uint32(0); i < numCreated; i++ {
		o, err := decodeOutput(f.field(idx))
		if err != nil {
			return nil, err
		}
		created = append(created, o)
		idx++
	}
	consumed := make([]ledger.LedgerSpent, 0, numConsumed)
	for i := uint32(0); i < numConsumed; i++ {
		s, err := decodeSpent(f.field(idx))
		if err != nil {
			return nil, err
		}
		consumed = append(consumed, s)
		idx++
	}
	return ledger.NewLedgerUpdateStore(created, consumed), nil
}
