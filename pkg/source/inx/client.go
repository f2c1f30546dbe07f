package inx

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/source"
)

// Source is a live InputSource backed by a node extension gRPC connection,
// grounded on the teacher's raw-ledger-source client pattern (grpc.Dial with
// insecure transport credentials, then a server-streaming Recv loop).
type Source struct {
	conn   *grpc.ClientConn
	logger *zap.Logger
}

// Dial connects to a node extension at addr. Connections are insecure
// transport-credential gRPC, matching the teacher's same-cluster trust model;
// a production deployment would front this with mTLS or a service mesh, which
// is out of scope here.
func Dial(ctx context.Context, addr string, logger *zap.Logger) (*Source, error) {
	logger.Info("connecting to node extension", zap.String("address", addr))
	conn, err := grpc.DialContext(ctx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithBlock())
	if err != nil {
		return nil, fmt.Errorf("inx: dial %s: %w", addr, err)
	}
	logger.Info("connected to node extension", zap.String("address", addr))
	return &Source{conn: conn, logger: logger}, nil
}

// Close releases the underlying connection.
func (s *Source) Close() error {
	return s.conn.Close()
}

func (s *Source) NodeStatus(ctx context.Context) (source.NodeStatus, error) {
	resp := new(wrapperspb.BytesValue)
	if err := s.conn.Invoke(ctx, methodNodeStatus, emptyRequest, resp); err != nil {
		return source.NodeStatus{}, fmt.Errorf("inx: NodeStatus: %w", err)
	}
	return decodeNodeStatus(resp.GetValue())
}

func (s *Source) SlotStream(ctx context.Context, r source.Range) (<-chan source.SlotStreamItem, error) {
	req := slotRangeRequest{startSlot: uint64(r.Start), endSlot: uint64(r.End), unbounded: r.Unbounded}.marshal()
	stream, err := newClientStream(ctx, s.conn, methodSlotStream, req)
	if err != nil {
		return nil, fmt.Errorf("inx: open SlotStream: %w", err)
	}

	ch := make(chan source.SlotStreamItem)
	go func() {
		defer close(ch)
		for {
			msg := new(wrapperspb.BytesValue)
			err := stream.RecvMsg(msg)
			if err == io.EOF {
				return
			}
			if err != nil {
				select {
				case ch <- source.SlotStreamItem{Err: fmt.Errorf("inx: SlotStream recv: %w", err)}:
				case <-ctx.Done():
				}
				return
			}
			slot, data, err := decodeSlotData(msg.GetValue())
			if err != nil {
				select {
				case ch <- source.SlotStreamItem{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case ch <- source.SlotStreamItem{Slot: slot, Data: data}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (s *Source) LedgerUpdates(ctx context.Context, slot ledger.SlotIndex) (*ledger.LedgerUpdateStore, error) {
	resp := new(wrapperspb.BytesValue)
	req := slotIndexRequest(uint64(slot))
	if err := s.conn.Invoke(ctx, methodLedgerUpdates, req, resp); err != nil {
		return nil, fmt.Errorf("inx: LedgerUpdates(%d): %w", slot, err)
	}
	return decodeLedgerUpdates(resp.GetValue())
}

func (s *Source) AcceptedBlocks(ctx context.Context, slot ledger.SlotIndex) (<-chan source.BlockStreamItem, error) {
	req := slotIndexRequest(uint64(slot))
	stream, err := newClientStream(ctx, s.conn, methodAcceptedBlocks, req)
	if err != nil {
		return nil, fmt.Errorf("inx: open AcceptedBlocks(%d): %w", slot, err)
	}

	ch := make(chan source.BlockStreamItem)
	go func() {
		defer close(ch)
		for {
			msg := new(wrapperspb.BytesValue)
			err := stream.RecvMsg(msg)
			if err == io.EOF {
				return
			}
			if err != nil {
				select {
				case ch <- source.BlockStreamItem{Err: fmt.Errorf("inx: AcceptedBlocks recv: %w", err)}:
				case <-ctx.Done():
				}
				return
			}
			block, err := decodeBlock(msg.GetValue())
			if err != nil {
				select {
				case ch <- source.BlockStreamItem{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case ch <- source.BlockStreamItem{Block: block}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (s *Source) UnspentOutputs(ctx context.Context) (<-chan source.UnspentOutputStreamItem, error) {
	stream, err := newClientStream(ctx, s.conn, methodUnspentOutputs, wrapperspb.Bytes(nil))
	if err != nil {
		return nil, fmt.Errorf("inx: open UnspentOutputs: %w", err)
	}

	ch := make(chan source.UnspentOutputStreamItem)
	go func() {
		defer close(ch)
		for {
			msg := new(wrapperspb.BytesValue)
			err := stream.RecvMsg(msg)
			if err == io.EOF {
				return
			}
			if err != nil {
				select {
				case ch <- source.UnspentOutputStreamItem{Err: fmt.Errorf("inx: UnspentOutputs recv: %w", err)}:
				case <-ctx.Done():
				}
				return
			}
			out, err := decodeOutput(msg.GetValue())
			if err != nil {
				select {
				case ch <- source.UnspentOutputStreamItem{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case ch <- source.UnspentOutputStreamItem{Output: out}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

var _ source.InputSource = (*Source)(nil)
