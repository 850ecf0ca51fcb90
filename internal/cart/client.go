package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Service is the remote cart backend. The HTTP implementation below talks to
// the real thing; tests substitute fakes.
type Service interface {
	Fetch(ctx context.Context, table int64) (*Cart, error)
	UpdateItem(ctx context.Context, table int64, itemID string, quantity int64) (*Cart, error)
	RemoveItem(ctx context.Context, table int64, itemID string) (*Cart, error)
	Clear(ctx context.Context, table int64) error
}

type HTTPClient struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		Timeout: timeout,
	}
}

type cartEnvelope struct {
	Success bool   `json:"success"`
	Data    *Cart  `json:"data"`
	Message string `json:"message"`
}

// Fetch returns nil without error when no cart is open for the table.
func (c *HTTPClient) Fetch(ctx context.Context, table int64) (*Cart, error) {
	res, err := c.do(ctx, http.MethodGet, "/cart/"+strconv.FormatInt(table, 10), nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("cart service returned %d", res.StatusCode)
	}

	var envelope cartEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

func (c *HTTPClient) UpdateItem(ctx context.Context, table int64, itemID string, quantity int64) (*Cart, error) {
	body := map[string]any{"quantity": quantity}
	res, err := c.do(ctx, http.MethodPut, "/cart/"+strconv.FormatInt(table, 10)+"/items/"+itemID, body)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	return decodeCart(res)
}

func (c *HTTPClient) RemoveItem(ctx context.Context, table int64, itemID string) (*Cart, error) {
	res, err := c.do(ctx, http.MethodDelete, "/cart/"+strconv.FormatInt(table, 10)+"/items/"+itemID, nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	return decodeCart(res)
}

func (c *HTTPClient) Clear(ctx context.Context, table int64) error {
	res, err := c.do(ctx, http.MethodDelete, "/cart/"+strconv.FormatInt(table, 10), nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("cart service returned %d", res.StatusCode)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.Client.Do(req)
}

func decodeCart(res *http.Response) (*Cart, error) {
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("cart service returned %d", res.StatusCode)
	}
	var envelope cartEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("cart service returned no cart payload")
	}
	return envelope.Data, nil
}
