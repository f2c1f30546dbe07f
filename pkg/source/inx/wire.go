// Package inx implements InputSource against a live node extension connection
// (spec.md §4.2, "Upstream (node extension)"). The wire protocol is a thin
// gRPC service carrying raw packed bytes for outputs, blocks, payloads and
// commitments, decoded on demand by the ledger package rather than the
// transport layer.
//
// There is no generated .proto/.pb.go pair here: the service descriptor is
// hand-authored the way protoc-gen-go-grpc would emit one, and every message
// on the wire is a real protobuf well-known type (wrapperspb/emptypb) rather
// than a bespoke descriptor. That keeps the transport genuinely exercising
// google.golang.org/grpc and google.golang.org/protobuf without depending on
// a protoc run that this environment cannot perform.
package inx

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "chronicle.inx.NodeExtension"

// method path constants, mirroring what protoc-gen-go-grpc generates for each
// rpc in the .proto service definition.
const (
	methodNodeStatus     = "/" + serviceName + "/NodeStatus"
	methodSlotStream     = "/" + serviceName + "/SlotStream"
	methodLedgerUpdates  = "/" + serviceName + "/LedgerUpdates"
	methodAcceptedBlocks = "/" + serviceName + "/AcceptedBlocks"
	methodUnspentOutputs = "/" + serviceName + "/UnspentOutputs"
)

// slotRangeRequest is the wire form of SlotRangeRequest{start_slot, end_slot}.
// Both fields are packed into a single length-delimited BytesValue payload
// (8 bytes start, 8 bytes end, big-endian, then one byte set to 1 when the
// range is unbounded) rather than a bespoke message type,
// so the envelope stays a real protobuf well-known type end to end.
type slotRangeRequest struct {
	startSlot uint64
	endSlot   uint64
	unbounded bool
}

func (r slotRangeRequest) marshal() *wrapperspb.BytesValue {
	buf := make([]byte, 17)
	putUint64(buf[0:8], r.startSlot)
	putUint64(buf[8:16], r.endSlot)
	if r.unbounded {
		buf[16] = 1
	}
	return wrapperspb.Bytes(buf)
}

func unmarshalSlotRangeRequest(v *wrapperspb.BytesValue) slotRangeRequest {
	b := v.GetValue()
	if len(b) < 17 {
		return slotRangeRequest{}
	}
	return slotRangeRequest{
		startSlot: getUint64(b[0:8]),
		endSlot:   getUint64(b[8:16]),
		unbounded: b[16] != 0,
	}
}

func putUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// slotIndexRequest wraps a single slot index, used by LedgerUpdates and
// AcceptedBlocks.
func slotIndexRequest(slot uint64) *wrapperspb.BytesValue {
	b := make([]byte, 8)
	putUint64(b, slot)
	return wrapperspb.Bytes(b)
}

func unmarshalSlotIndexRequest(v *wrapperspb.BytesValue) uint64 {
	b := v.GetValue()
	if len(b) < 8 {
		return 0
	}
	return getUint64(b)
}

var emptyRequest = &emptypb.Empty{}

// newClientStream opens a server-streaming RPC by method path, the way the
// generated code does it for a `stream Response` rpc.
func newClientStream(ctx context.Context, cc *grpc.ClientConn, method string, req *wrapperspb.BytesValue) (grpc.ClientStream, error) {
	desc := &grpc.StreamDesc{StreamName: method, ServerStreams: true}
	stream, err := cc.NewStream(ctx, desc, method)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return stream, nil
}
