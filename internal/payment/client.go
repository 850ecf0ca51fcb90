package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ConfirmAck is what the payment backend returns for a confirmed session.
// The fiscal signature is produced server-side by the signing device.
type ConfirmAck struct {
	InvoiceID       string `json:"invoiceId"`
	FiscalSignature string `json:"fiscalSignature"`
}

// Service is the remote payment backend. Confirm must be idempotent per
// session: confirming the same session twice yields the original ack.
type Service interface {
	CreateSession(ctx context.Context, sessionID, cartID string, totalAmount float64) error
	Confirm(ctx context.Context, sessionID string, allocations []Allocation) (ConfirmAck, error)
	Cancel(ctx context.Context, sessionID, cancelledBy, reason string) (Cancellation, error)
}

type HTTPClient struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}}
}

func (c *HTTPClient) CreateSession(ctx context.Context, sessionID, cartID string, totalAmount float64) error {
	payload := map[string]any{
		"sessionId":   sessionID,
		"cartId":      cartID,
		"totalAmount": totalAmount,
	}
	res, err := c.post(ctx, "/payment/session", sessionID, payload)
	if err != nil {
		return networkError("payment service unreachable", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return remoteError(res, nil)
	}
	return nil
}

type confirmEnvelope struct {
	Success bool       `json:"success"`
	Data    ConfirmAck `json:"data"`
	Error   string     `json:"error"`
	Message string     `json:"message"`
	Settled []string   `json:"settledMethods"`
}

func (c *HTTPClient) Confirm(ctx context.Context, sessionID string, allocations []Allocation) (ConfirmAck, error) {
	wire := make([]map[string]any, 0, len(allocations))
	for _, alloc := range allocations {
		entry := map[string]any{
			"method": string(alloc.Method),
			"amount": alloc.Amount.Decimal(),
		}
		if alloc.TenderedAmount > 0 {
			entry["tenderedAmount"] = alloc.TenderedAmount.Decimal()
			entry["changeAmount"] = alloc.ChangeAmount.Decimal()
		}
		wire = append(wire, entry)
	}

	res, err := c.post(ctx, "/payment/session/"+sessionID+"/confirm", sessionID, map[string]any{"allocations": wire})
	if err != nil {
		return ConfirmAck{}, networkError("payment confirmation did not reach the backend", err)
	}
	defer res.Body.Close()

	var envelope confirmEnvelope
	decodeErr := json.NewDecoder(res.Body).Decode(&envelope)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return ConfirmAck{}, remoteError(res, &envelope)
	}
	if decodeErr != nil {
		return ConfirmAck{}, networkError("payment confirmation response unreadable", decodeErr)
	}
	return envelope.Data, nil
}

type cancelEnvelope struct {
	Success bool         `json:"success"`
	Data    Cancellation `json:"data"`
}

func (c *HTTPClient) Cancel(ctx context.Context, sessionID, cancelledBy, reason string) (Cancellation, error) {
	payload := map[string]any{"cancelledBy": cancelledBy, "reason": reason}
	res, err := c.post(ctx, "/payment/session/"+sessionID+"/cancel", sessionID, payload)
	if err != nil {
		return Cancellation{}, networkError("payment cancellation did not reach the backend", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Cancellation{}, remoteError(res, nil)
	}

	var envelope cancelEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return Cancellation{}, networkError("payment cancellation response unreadable", err)
	}
	return envelope.Data, nil
}

// post always carries the session id as idempotency key: the backend may see
// duplicate requests under retry and must collapse them.
func (c *HTTPClient) post(ctx context.Context, path, idempotencyKey string, payload any) (*http.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Idempotency-Key", idempotencyKey)
	return c.Client.Do(req)
}

// remoteError classifies a non-2xx reply. 409 with settled methods means the
// backend took some money before failing; that must never look like a clean
// rejection.
func remoteError(res *http.Response, envelope *confirmEnvelope) *Error {
	if envelope == nil {
		envelope = &confirmEnvelope{}
		_ = json.NewDecoder(res.Body).Decode(envelope)
	}

	if len(envelope.Settled) > 0 {
		settled := make([]Method, 0, len(envelope.Settled))
		for _, raw := range envelope.Settled {
			if m, ok := ParseMethod(raw); ok {
				settled = append(settled, m)
			}
		}
		return &Error{
			Code:           ErrPartialFailure,
			Message:        "Some allocations settled but the confirmation failed",
			StatusCode:     http.StatusConflict,
			SettledMethods: settled,
		}
	}

	if res.StatusCode >= 500 {
		return networkError(fmt.Sprintf("payment service returned %d", res.StatusCode), nil)
	}

	message := envelope.Message
	if message == "" {
		message = fmt.Sprintf("payment service rejected the request (%d)", res.StatusCode)
	}
	return &Error{Code: ErrRejected, Message: message, StatusCode: http.StatusUnprocessableEntity}
}
