package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"luntera-pos-services/internal/cart"
	"luntera-pos-services/internal/config"
	"luntera-pos-services/internal/fiscal"
	"luntera-pos-services/internal/netstatus"
)

type stubCartService struct{}

func (stubCartService) Fetch(ctx context.Context, table int64) (*cart.Cart, error) {
	return nil, nil
}

func (stubCartService) UpdateItem(ctx context.Context, table int64, itemID string, quantity int64) (*cart.Cart, error) {
	return &cart.Cart{CartID: "cart-1", TableNumber: table}, nil
}

func (stubCartService) RemoveItem(ctx context.Context, table int64, itemID string) (*cart.Cart, error) {
	return &cart.Cart{CartID: "cart-1", TableNumber: table}, nil
}

func (stubCartService) Clear(ctx context.Context, table int64) error {
	return nil
}

type stubProber struct {
	internet bool
	fiscal   bool
}

func (p stubProber) Probe(ctx context.Context) (bool, bool, error) {
	return p.internet, p.fiscal, nil
}

type stubStore struct {
	entries []fiscal.PendingInvoice
}

func (s *stubStore) Append(ctx context.Context, invoice fiscal.PendingInvoice) error {
	s.entries = append(s.entries, invoice)
	return nil
}

func (s *stubStore) Remove(ctx context.Context, invoiceID string) error { return nil }

func (s *stubStore) RecordAttempt(ctx context.Context, invoiceID string, attempts int64, lastError string) error {
	return nil
}

func (s *stubStore) LoadAll(ctx context.Context) ([]fiscal.PendingInvoice, error) {
	return s.entries, nil
}

type stubSubmitter struct{}

func (stubSubmitter) SubmitBatch(ctx context.Context, invoices []fiscal.PendingInvoice) (fiscal.SubmitReport, error) {
	return fiscal.SubmitReport{}, nil
}

func (stubSubmitter) SubmitOne(ctx context.Context, invoice fiscal.PendingInvoice) error {
	return nil
}

func newTestHandler(t *testing.T, online bool) *Handler {
	t.Helper()

	monitor := netstatus.NewMonitor(stubProber{internet: online, fiscal: online}, time.Second, zap.NewNop())
	monitor.ProbeNow(context.Background())

	reconciler := fiscal.NewReconciler(&stubStore{}, stubSubmitter{}, monitor, nil, nil, zap.NewNop())
	if err := reconciler.Enqueue(context.Background(), fiscal.PendingInvoice{
		InvoiceID: "inv-1", CartID: "cart-1", TotalAmount: 12.50, FiscalSignature: "sig", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	return &Handler{
		Carts:    cart.NewStore(stubCartService{}, 4, zap.NewNop()),
		Invoices: reconciler,
		Monitor:  monitor,
		Logger:   zap.NewNop(),
		Config:   config.Config{TerminalID: "till-test"},
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestChangeCompute(t *testing.T) {
	h := newTestHandler(t, true)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/change",
		strings.NewReader(`{"totalAmount": 47.30, "tenderedAmount": 50.00}`))
	rec := httptest.NewRecorder()
	h.ChangeCompute(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if data["change"] != float64(270) {
		t.Fatalf("change = %v, want 270", data["change"])
	}
}

func TestChangeComputeInsufficient(t *testing.T) {
	h := newTestHandler(t, true)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/change",
		strings.NewReader(`{"totalAmount": 50.00, "tenderedAmount": 20.00}`))
	rec := httptest.NewRecorder()
	h.ChangeCompute(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["error"] != "INSUFFICIENT_AMOUNT" {
		t.Fatalf("error = %v, want INSUFFICIENT_AMOUNT", body["error"])
	}
}

func TestSlotOpenOutOfRange(t *testing.T) {
	h := newTestHandler(t, true)

	router := chi.NewRouter()
	router.Post("/api/slots/{slotId}/open", h.SlotOpen)

	req := httptest.NewRequest(http.MethodPost, "/api/slots/99/open", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["error"] != "SLOT_OUT_OF_RANGE" {
		t.Fatalf("error = %v, want SLOT_OUT_OF_RANGE", body["error"])
	}
}

func TestSlotOpenRejectsMalformedID(t *testing.T) {
	h := newTestHandler(t, true)

	router := chi.NewRouter()
	router.Post("/api/slots/{slotId}/open", h.SlotOpen)

	req := httptest.NewRequest(http.MethodPost, "/api/slots/12abc/open", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["error"] != "VALIDATION_ERROR" {
		t.Fatalf("error = %v, want VALIDATION_ERROR", body["error"])
	}
}

func TestStatusReportsPendingQueue(t *testing.T) {
	h := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	h.StatusGet(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if data["pendingInvoices"] != float64(1) {
		t.Fatalf("pendingInvoices = %v, want 1", data["pendingInvoices"])
	}
	network, _ := data["network"].(map[string]any)
	if network["status"] != "DISCONNECTED" {
		t.Fatalf("network status = %v, want DISCONNECTED", network["status"])
	}
}

func TestInvoicesArchiveListRequiresConfiguredStore(t *testing.T) {
	h := newTestHandler(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/archive?year=2026&month=8", nil)
	rec := httptest.NewRecorder()
	h.InvoicesArchiveList(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["error"] != "ARCHIVE_DISABLED" {
		t.Fatalf("error = %v, want ARCHIVE_DISABLED", body["error"])
	}
}

func TestInvoicesSubmitAllWhileDisconnected(t *testing.T) {
	h := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/invoices/submit-all", nil)
	rec := httptest.NewRecorder()
	h.InvoicesSubmitAll(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if data["notReady"] != true {
		t.Fatalf("notReady = %v, want true", data["notReady"])
	}
	if h.Invoices.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1 (queue untouched while offline)", h.Invoices.PendingCount())
	}
}
