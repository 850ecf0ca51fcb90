package fiscal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	submitter := NewHTTPSubmitter(server.URL, time.Second)
	batch := []PendingInvoice{invoice("a")}
	for i := 0; i < 3; i++ {
		if _, err := submitter.SubmitBatch(context.Background(), batch); err == nil {
			t.Fatalf("expected transport failure on attempt %d", i+1)
		}
	}

	gate := &fixedGate{}
	gate.set(true, true)
	r := NewReconciler(newMemoryStore(), submitter, gate, nil, nil, nil)
	if err := r.Enqueue(context.Background(), invoice("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	_, err := r.SubmitAll(context.Background())
	var coded *Error
	if !errors.As(err, &coded) || coded.Code != ErrNetwork {
		t.Fatalf("open circuit must surface NETWORK_ERROR, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("open circuit must fail fast, backend saw %d requests", got)
	}
	if r.PendingCount() != 1 {
		t.Fatalf("invoice must stay queued while the circuit is open")
	}
}

func TestSubmitBatchParsesBackendVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invoices/pending/submit-all" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"accepted":["a"],"rejected":[{"invoiceId":"b","error":"signature mismatch"}]}}`))
	}))
	defer server.Close()

	submitter := NewHTTPSubmitter(server.URL, time.Second)
	report, err := submitter.SubmitBatch(context.Background(), []PendingInvoice{invoice("a"), invoice("b")})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(report.Accepted) != 1 || report.Accepted[0] != "a" {
		t.Fatalf("accepted verdict wrong: %+v", report)
	}
	if report.Rejected["b"] != "signature mismatch" {
		t.Fatalf("rejected verdict wrong: %+v", report)
	}
}

func TestSubmitOneMapsBackendRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"success":false,"message":"invoice already fiscalized"}`))
	}))
	defer server.Close()

	submitter := NewHTTPSubmitter(server.URL, time.Second)
	err := submitter.SubmitOne(context.Background(), invoice("a"))
	var coded *Error
	if !errors.As(err, &coded) || coded.Code != ErrBackend {
		t.Fatalf("expected FISCAL_BACKEND_ERROR, got %v", err)
	}
	if coded.Message != "invoice already fiscalized" {
		t.Fatalf("backend message not propagated: %q", coded.Message)
	}
}
