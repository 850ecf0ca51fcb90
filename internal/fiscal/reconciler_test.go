package fiscal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"luntera-pos-services/internal/netstatus"
)

type memoryStore struct {
	mu      sync.Mutex
	rows    map[string]PendingInvoice
	order   []string
	failing bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[string]PendingInvoice{}}
}

func (s *memoryStore) Append(ctx context.Context, invoice PendingInvoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("disk full")
	}
	if _, ok := s.rows[invoice.InvoiceID]; !ok {
		s.order = append(s.order, invoice.InvoiceID)
	}
	s.rows[invoice.InvoiceID] = invoice
	return nil
}

func (s *memoryStore) Remove(ctx context.Context, invoiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, invoiceID)
	kept := s.order[:0]
	for _, id := range s.order {
		if id != invoiceID {
			kept = append(kept, id)
		}
	}
	s.order = kept
	return nil
}

func (s *memoryStore) RecordAttempt(ctx context.Context, invoiceID string, attempts int64, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[invoiceID]
	if !ok {
		return errors.New("unknown invoice")
	}
	row.SubmissionAttempts = attempts
	row.LastError = lastError
	s.rows[invoiceID] = row
	return nil
}

func (s *memoryStore) LoadAll(ctx context.Context) ([]PendingInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingInvoice, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id])
	}
	return out, nil
}

type fakeSubmitter struct {
	mu      sync.Mutex
	reject  map[string]string
	err     error
	batches int
	retries int
}

func (f *fakeSubmitter) SubmitBatch(ctx context.Context, invoices []PendingInvoice) (SubmitReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	if f.err != nil {
		return SubmitReport{}, f.err
	}
	report := SubmitReport{Rejected: map[string]string{}}
	for _, invoice := range invoices {
		if reason, bad := f.reject[invoice.InvoiceID]; bad {
			report.Rejected[invoice.InvoiceID] = reason
			continue
		}
		report.Accepted = append(report.Accepted, invoice.InvoiceID)
	}
	return report, nil
}

func (f *fakeSubmitter) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches
}

func (f *fakeSubmitter) SubmitOne(ctx context.Context, invoice PendingInvoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries++
	if f.err != nil {
		return f.err
	}
	if reason, bad := f.reject[invoice.InvoiceID]; bad {
		return backendError(reason, nil)
	}
	return nil
}

type fixedGate struct {
	mu     sync.Mutex
	status netstatus.Status
}

func (g *fixedGate) set(internet, fiscalUp bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = netstatus.Derive(internet, fiscalUp, time.Now())
}

func (g *fixedGate) ProbeNow(ctx context.Context) netstatus.Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

func invoice(id string) PendingInvoice {
	return PendingInvoice{
		InvoiceID:       id,
		CartID:          "cart-" + id,
		TotalAmount:     100,
		FiscalSignature: "sig-" + id,
		CreatedAt:       time.Now(),
	}
}

func TestSubmitAllNotReadyWhenDisconnected(t *testing.T) {
	gate := &fixedGate{}
	gate.set(false, false)
	r := NewReconciler(newMemoryStore(), &fakeSubmitter{}, gate, nil, nil, nil)
	if err := r.Enqueue(context.Background(), invoice("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	report, err := r.SubmitAll(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !report.NotReady {
		t.Fatalf("expected NotReady while disconnected")
	}
	if r.PendingCount() != 1 {
		t.Fatalf("queue must be unchanged, got %d", r.PendingCount())
	}
}

func TestAcknowledgedSubmissionDrainsQueue(t *testing.T) {
	gate := &fixedGate{}
	gate.set(true, true)
	store := newMemoryStore()
	r := NewReconciler(store, &fakeSubmitter{}, gate, nil, nil, nil)
	for _, id := range []string{"a", "b"} {
		if err := r.Enqueue(context.Background(), invoice(id)); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	report, err := r.SubmitAll(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(report.Submitted) != 2 || len(report.Failed) != 0 {
		t.Fatalf("expected both acked, got %+v", report)
	}
	if r.PendingCount() != 0 {
		t.Fatalf("queue should be empty")
	}
	if rows, _ := store.LoadAll(context.Background()); len(rows) != 0 {
		t.Fatalf("durable store should be empty, has %d", len(rows))
	}
}

func TestRejectionKeepsInvoiceWithAttemptCount(t *testing.T) {
	gate := &fixedGate{}
	gate.set(true, true)
	submitter := &fakeSubmitter{reject: map[string]string{"a": "signature mismatch"}}
	store := newMemoryStore()
	r := NewReconciler(store, submitter, gate, nil, nil, nil)
	if err := r.Enqueue(context.Background(), invoice("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	report, err := r.SubmitAll(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(report.Failed) != 1 {
		t.Fatalf("expected one failure, got %+v", report)
	}

	queued := r.List()
	if len(queued) != 1 {
		t.Fatalf("rejected invoice must stay queued")
	}
	if queued[0].SubmissionAttempts != 1 || queued[0].LastError != "signature mismatch" {
		t.Fatalf("attempt bookkeeping wrong: %+v", queued[0])
	}

	rows, _ := store.LoadAll(context.Background())
	if rows[0].SubmissionAttempts != 1 {
		t.Fatalf("attempts not mirrored to durable store")
	}
}

func TestTransportFailureKeepsWholeBatch(t *testing.T) {
	gate := &fixedGate{}
	gate.set(true, true)
	submitter := &fakeSubmitter{err: networkError("backend gone", nil)}
	r := NewReconciler(newMemoryStore(), submitter, gate, nil, nil, nil)
	for _, id := range []string{"a", "b", "c"} {
		if err := r.Enqueue(context.Background(), invoice(id)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	if _, err := r.SubmitAll(context.Background()); err == nil {
		t.Fatalf("expected transport error")
	}
	if r.PendingCount() != 3 {
		t.Fatalf("no invoice may be dropped on transport failure")
	}
	for _, entry := range r.List() {
		if entry.SubmissionAttempts != 1 {
			t.Fatalf("expected attempt recorded for %s", entry.InvoiceID)
		}
	}
}

func TestEnqueueSurvivesStoreFailure(t *testing.T) {
	gate := &fixedGate{}
	gate.set(true, true)
	store := newMemoryStore()
	store.failing = true
	r := NewReconciler(store, &fakeSubmitter{}, gate, nil, nil, nil)

	if err := r.Enqueue(context.Background(), invoice("a")); err == nil {
		t.Fatalf("expected persistence error to surface")
	}
	if r.PendingCount() != 1 {
		t.Fatalf("invoice must stay in memory despite store failure")
	}
}

func TestEnqueueIsIdempotentPerInvoice(t *testing.T) {
	gate := &fixedGate{}
	gate.set(true, true)
	r := NewReconciler(newMemoryStore(), &fakeSubmitter{}, gate, nil, nil, nil)
	inv := invoice("a")
	for i := 0; i < 3; i++ {
		if err := r.Enqueue(context.Background(), inv); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if r.PendingCount() != 1 {
		t.Fatalf("duplicate enqueue must collapse, got %d", r.PendingCount())
	}
}

func TestRetrySingleInvoice(t *testing.T) {
	gate := &fixedGate{}
	gate.set(true, true)
	submitter := &fakeSubmitter{}
	r := NewReconciler(newMemoryStore(), submitter, gate, nil, nil, nil)
	if err := r.Enqueue(context.Background(), invoice("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	report, err := r.Retry(context.Background(), "a")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(report.Submitted) != 1 || r.PendingCount() != 0 {
		t.Fatalf("expected acked retry to drain the invoice")
	}

	if _, err := r.Retry(context.Background(), "missing"); err == nil {
		t.Fatalf("expected UNKNOWN_INVOICE")
	}
}

func TestReconnectTransitionDrainsQueue(t *testing.T) {
	gate := &fixedGate{}
	gate.set(false, false)
	submitter := &fakeSubmitter{}
	r := NewReconciler(newMemoryStore(), submitter, gate, nil, nil, nil)
	if err := r.Enqueue(context.Background(), invoice("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	transitions := make(chan netstatus.Status, 1)
	r.Start(time.Hour, transitions)
	defer r.Stop()

	gate.set(true, true)
	transitions <- netstatus.Derive(true, true, time.Now())

	deadline := time.After(2 * time.Second)
	for r.PendingCount() != 0 {
		select {
		case <-deadline:
			t.Fatalf("queue not drained after reconnect, %d pending", r.PendingCount())
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if got := submitter.batchCount(); got != 1 {
		t.Fatalf("reconnect must trigger exactly one submission, got %d", got)
	}
}

func TestRecoverWarmsQueueFromStore(t *testing.T) {
	store := newMemoryStore()
	_ = store.Append(context.Background(), invoice("a"))
	_ = store.Append(context.Background(), invoice("b"))

	gate := &fixedGate{}
	gate.set(false, false)
	r := NewReconciler(store, &fakeSubmitter{}, gate, nil, nil, nil)
	if err := r.Recover(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if r.PendingCount() != 2 {
		t.Fatalf("expected 2 recovered invoices, got %d", r.PendingCount())
	}
}
