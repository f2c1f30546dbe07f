// Package arrowsink implements analytics.Sink as an Arrow record-batch
// accumulator, grounded on the pack's stellar-arrow-source/go/schema and
// converter packages (arrow.NewSchema + array.NewRecordBuilder). Each Emit
// appends one row; Flush releases the accumulated rows as a single
// arrow.Record for bulk columnar export.
package arrowsink

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/iotaledger/chronicle/pkg/analytics"
)

// Schema is the row shape every measurement is flattened into: one row per
// (analytic, bucket) pair, with bucket == "" for scalar-only measurements.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "slot", Type: arrow.PrimitiveTypes.Uint32, Nullable: false},
	{Name: "analytic", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "bucket", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "count", Type: arrow.PrimitiveTypes.Uint64, Nullable: false},
	{Name: "amount", Type: arrow.PrimitiveTypes.Uint64, Nullable: false},
}, nil)

// Sink accumulates measurements into an Arrow RecordBuilder until Flush is
// called, the same build-then-release lifecycle xdr_to_arrow.go's converter
// uses per batch.
type Sink struct {
	allocator memory.Allocator
	builder   *array.RecordBuilder
	rows      int
}

// New builds an empty Sink over a fresh Go allocator.
func New() *Sink {
	allocator := memory.NewGoAllocator()
	return &Sink{
		allocator: allocator,
		builder:   array.NewRecordBuilder(allocator, Schema),
	}
}

// Emit implements analytics.Sink, appending one row per measurement (or one
// row per bucket, for bucketed measurements).
func (s *Sink) Emit(m analytics.Measurement) error {
	if len(m.Buckets) == 0 {
		s.appendRow(m, "", m.Count, m.Amount)
		return nil
	}
	for bucket, value := range m.Buckets {
		s.appendRow(m, bucket, value, 0)
	}
	return nil
}

func (s *Sink) appendRow(m analytics.Measurement, bucket string, count, amount uint64) {
	s.builder.Field(0).(*array.Uint32Builder).Append(uint32(m.Slot))
	s.builder.Field(1).(*array.StringBuilder).Append(m.Name)
	if bucket == "" {
		s.builder.Field(2).(*array.StringBuilder).AppendNull()
	} else {
		s.builder.Field(2).(*array.StringBuilder).Append(bucket)
	}
	s.builder.Field(3).(*array.Uint64Builder).Append(count)
	s.builder.Field(4).(*array.Uint64Builder).Append(amount)
	s.rows++
}

// Flush releases the accumulated rows as a single arrow.Record and resets
// the builder for the next batch. Returns nil if no rows were accumulated.
func (s *Sink) Flush() arrow.Record {
	if s.rows == 0 {
		return nil
	}
	rec := s.builder.NewRecord()
	s.rows = 0
	return rec
}

// Close releases the underlying builder's buffers.
func (s *Sink) Close() {
	s.builder.Release()
}
