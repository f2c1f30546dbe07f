package analytics

// Sink is where a Measurement goes once an analytic has produced it. Two
// implementations are provided: promsink (Prometheus gauges, for live
// dashboards) and arrowsink (Arrow record batches, for bulk columnar
// export) — mirroring the teacher pack's split between a live metrics
// collector (stellar-arrow-source/go/metrics) and an Arrow Flight export
// path (stellar-arrow-source/go/converter).
type Sink interface {
	Emit(m Measurement) error
}

// MultiSink fans a Measurement out to every wrapped Sink, stopping at (and
// returning) the first error.
type MultiSink []Sink

func (m MultiSink) Emit(measurement Measurement) error {
	for _, s := range m {
		if err := s.Emit(measurement); err != nil {
			return err
		}
	}
	return nil
}
