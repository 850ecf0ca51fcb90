package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"luntera-pos-services/internal/cart"
)

// Waiter is one active staff member as the directory service reports it.
// PINHash stays server-side material; it is never rendered to the UI.
type Waiter struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	PINHash string `json:"pinHash,omitempty"`
}

type Table struct {
	Number int64  `json:"number"`
	Name   string `json:"name"`
	Zone   string `json:"zone,omitempty"`
}

// Directory is a read-only projection for the quick-switch screen. Nothing
// is cached: every call reflects a fresh snapshot.
type Directory struct {
	BaseURL string
	Client  *http.Client
}

func New(baseURL string, timeout time.Duration) *Directory {
	return &Directory{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}}
}

func (d *Directory) ListWaiters(ctx context.Context) ([]Waiter, error) {
	var out []Waiter
	if err := d.fetch(ctx, "/staff/active", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Directory) ListTables(ctx context.Context) ([]Table, error) {
	var out []Table
	if err := d.fetch(ctx, "/tables", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Directory) ListOpenCarts(ctx context.Context) ([]cart.Cart, error) {
	var out []cart.Cart
	if err := d.fetch(ctx, "/cart/open", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot is the combined quick-switch view. A failed list leaves its slice
// nil and lands in Errors; the other lists are unaffected.
type Snapshot struct {
	Waiters   []Waiter          `json:"waiters"`
	Tables    []Table           `json:"tables"`
	OpenCarts []cart.Cart       `json:"openCarts"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// Fetch gathers all three lists concurrently.
func (d *Directory) Fetch(ctx context.Context) Snapshot {
	var (
		snapshot Snapshot
		mu       sync.Mutex
		wg       sync.WaitGroup
	)
	snapshot.Errors = map[string]string{}

	wg.Add(3)
	go func() {
		defer wg.Done()
		waiters, err := d.ListWaiters(ctx)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			snapshot.Errors["waiters"] = err.Error()
			return
		}
		snapshot.Waiters = waiters
	}()
	go func() {
		defer wg.Done()
		tables, err := d.ListTables(ctx)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			snapshot.Errors["tables"] = err.Error()
			return
		}
		snapshot.Tables = tables
	}()
	go func() {
		defer wg.Done()
		carts, err := d.ListOpenCarts(ctx)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			snapshot.Errors["openCarts"] = err.Error()
			return
		}
		snapshot.OpenCarts = carts
	}()
	wg.Wait()

	if len(snapshot.Errors) == 0 {
		snapshot.Errors = nil
	}
	return snapshot
}

// VerifyPIN checks an operator PIN against the directory's bcrypt hash.
func VerifyPIN(hash, pin string) bool {
	if hash == "" || pin == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

type listEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func (d *Directory) fetch(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("directory service returned %d", res.StatusCode)
	}

	var envelope listEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Data, out)
}
