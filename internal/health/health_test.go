package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iotaledger/chronicle/pkg/ledger"
)

func TestHandleHealthReportsCounters(t *testing.T) {
	counters := &Counters{}
	counters.RecordSlot(ledger.SlotIndex(42), 3, 1)
	counters.RecordError(errors.New("boom"))

	s := New(0, counters, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.LastSlot != 42 {
		t.Errorf("got last slot %d, want 42", resp.LastSlot)
	}
	if resp.OutputsCreated != 3 || resp.OutputsConsumed != 1 {
		t.Errorf("got created=%d consumed=%d, want 3/1", resp.OutputsCreated, resp.OutputsConsumed)
	}
	if resp.ErrorCount != 1 || resp.LastError != "boom" {
		t.Errorf("got errorCount=%d lastError=%q, want 1/boom", resp.ErrorCount, resp.LastError)
	}
}

func TestNewWithoutMetricsHandlerOmitsMetricsRoute(t *testing.T) {
	s := New(0, &Counters{}, nil)
	if s.metrics != nil {
		t.Fatal("expected nil metrics handler to stay nil")
	}
}
