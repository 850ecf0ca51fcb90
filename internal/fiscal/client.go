package fiscal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// SubmitReport is the backend's verdict per invoice.
type SubmitReport struct {
	Accepted []string          `json:"accepted"`
	Rejected map[string]string `json:"rejected"`
}

// Submitter talks to the compliance backend.
type Submitter interface {
	SubmitBatch(ctx context.Context, invoices []PendingInvoice) (SubmitReport, error)
	SubmitOne(ctx context.Context, invoice PendingInvoice) error
}

// HTTPSubmitter wraps the compliance endpoints in a circuit breaker: after a
// run of transport failures the breaker opens and submissions fail fast
// without hammering a dead link. Invoices stay queued either way.
type HTTPSubmitter struct {
	BaseURL string
	Client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewHTTPSubmitter(baseURL string, timeout time.Duration) *HTTPSubmitter {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "fiscal-backend",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &HTTPSubmitter{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

type submitEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Accepted []string `json:"accepted"`
		Rejected []struct {
			InvoiceID string `json:"invoiceId"`
			Error     string `json:"error"`
		} `json:"rejected"`
	} `json:"data"`
}

func (s *HTTPSubmitter) SubmitBatch(ctx context.Context, invoices []PendingInvoice) (SubmitReport, error) {
	result, err := s.breaker.Execute(func() (any, error) {
		return s.postBatch(ctx, invoices)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return SubmitReport{}, networkError("fiscal backend circuit is open", err)
		}
		return SubmitReport{}, err
	}
	return result.(SubmitReport), nil
}

func (s *HTTPSubmitter) postBatch(ctx context.Context, invoices []PendingInvoice) (SubmitReport, error) {
	payload := map[string]any{"invoices": invoices}
	envelope, err := s.post(ctx, "/invoices/pending/submit-all", payload)
	if err != nil {
		return SubmitReport{}, err
	}

	report := SubmitReport{Accepted: envelope.Data.Accepted, Rejected: map[string]string{}}
	for _, entry := range envelope.Data.Rejected {
		report.Rejected[entry.InvoiceID] = entry.Error
	}
	return report, nil
}

func (s *HTTPSubmitter) SubmitOne(ctx context.Context, invoice PendingInvoice) error {
	_, err := s.breaker.Execute(func() (any, error) {
		envelope, err := s.post(ctx, "/invoices/pending/"+invoice.InvoiceID+"/retry", invoice)
		if err != nil {
			return nil, err
		}
		if !envelope.Success {
			return nil, backendError(envelope.Message, nil)
		}
		return nil, nil
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return networkError("fiscal backend circuit is open", err)
	}
	return err
}

func (s *HTTPSubmitter) post(ctx context.Context, path string, payload any) (*submitEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := s.Client.Do(req)
	if err != nil {
		return nil, networkError("fiscal backend unreachable", err)
	}
	defer res.Body.Close()

	var envelope submitEnvelope
	decodeErr := json.NewDecoder(res.Body).Decode(&envelope)

	switch {
	case res.StatusCode >= 500:
		return nil, networkError(fmt.Sprintf("fiscal backend returned %d", res.StatusCode), nil)
	case res.StatusCode < 200 || res.StatusCode >= 300:
		message := envelope.Message
		if message == "" {
			message = fmt.Sprintf("fiscal backend rejected the submission (%d)", res.StatusCode)
		}
		return nil, backendError(message, nil)
	case decodeErr != nil:
		return nil, networkError("fiscal backend response unreadable", decodeErr)
	}
	return &envelope, nil
}
