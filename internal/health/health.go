// Package health serves Chronicle's /health and /metrics HTTP endpoints,
// grounded on stellar-postgres-ingester/go/health.go's HealthServer shape:
// a small JSON status endpoint plus a metrics endpoint, backed by a
// mutex-guarded Counters struct that callers update through RecordSlot and
// RecordError.
package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/iotaledger/chronicle/pkg/ledger"
)

// MetricsHandler is mounted at /metrics when a Prometheus sink is
// configured (pkg/analytics/promsink.Sink.Handler). Optional: a nil handler
// leaves /metrics unmounted.
type MetricsHandler interface {
	Handler() http.Handler
}

// Counters tracks the running totals the health endpoint reports. It changes
// only through RecordSlot and RecordError; the sync controller calls neither,
// so the server started by cmd/chronicle reports zero counters.
type Counters struct {
	mu              sync.RWMutex
	lastSlot        ledger.SlotIndex
	slotsProcessed  uint64
	outputsCreated  uint64
	outputsConsumed uint64
	errorCount      uint64
	lastError       string
	lastErrorTime   time.Time
}

// RecordSlot records a successfully committed slot.
func (c *Counters) RecordSlot(slot ledger.SlotIndex, created, consumed uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSlot = slot
	c.slotsProcessed++
	c.outputsCreated += created
	c.outputsConsumed += consumed
}

// RecordError records a non-fatal error, keeping its message and the time it
// was recorded.
func (c *Counters) RecordError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCount++
	c.lastError = err.Error()
	c.lastErrorTime = time.Now()
}

func (c *Counters) snapshot() (lastSlot ledger.SlotIndex, slots, created, consumed, errs uint64, lastErr string, lastErrAt time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSlot, c.slotsProcessed, c.outputsCreated, c.outputsConsumed, c.errorCount, c.lastError, c.lastErrorTime
}

// Response is the JSON body served at /health.
type Response struct {
	Status          string `json:"status"`
	Uptime          string `json:"uptime"`
	LastSlot        uint64 `json:"last_slot"`
	SlotsProcessed  uint64 `json:"slots_processed"`
	OutputsCreated  uint64 `json:"outputs_created"`
	OutputsConsumed uint64 `json:"outputs_consumed"`
	ErrorCount      uint64 `json:"error_count"`
	LastError       string `json:"last_error,omitempty"`
	LastErrorTime   string `json:"last_error_time,omitempty"`
}

// Server is the health/metrics HTTP server.
type Server struct {
	port      int
	startTime time.Time
	counters  *Counters
	metrics   MetricsHandler
	server    *http.Server
}

// New builds a Server. metrics may be nil if no Prometheus sink is
// configured.
func New(port int, counters *Counters, metrics MetricsHandler) *Server {
	return &Server{
		port:      port,
		startTime: time.Now(),
		counters:  counters,
		metrics:   metrics,
	}
}

// Start launches the HTTP server in a background goroutine. It returns
// immediately; call Stop to shut it down.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}
	go s.server.ListenAndServe() //nolint:errcheck
}

// Stop gracefully closes the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	lastSlot, slots, created, consumed, errs, lastErr, lastErrAt := s.counters.snapshot()

	resp := Response{
		Status:          "healthy",
		Uptime:          time.Since(s.startTime).String(),
		LastSlot:        uint64(lastSlot),
		SlotsProcessed:  slots,
		OutputsCreated:  created,
		OutputsConsumed: consumed,
		ErrorCount:      errs,
	}
	if lastErr != "" {
		resp.LastError = lastErr
		resp.LastErrorTime = lastErrAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}
