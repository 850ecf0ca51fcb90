package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// fakeService keeps one server-side cart per table and records call order.
type fakeService struct {
	mu      sync.Mutex
	carts   map[int64]*Cart
	failAll bool
	calls   []string
}

func newFakeService() *fakeService {
	return &fakeService{carts: map[int64]*Cart{}}
}

func (f *fakeService) seed(table int64, items ...Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart := &Cart{
		CartID:      fmt.Sprintf("cart-%d", table),
		TableNumber: table,
		Items:       items,
		Status:      StatusActive,
	}
	for _, item := range items {
		cart.TotalAmount += item.TotalAmount
	}
	f.carts[table] = cart
}

func (f *fakeService) Fetch(ctx context.Context, table int64) (*Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("cart service down")
	}
	f.calls = append(f.calls, fmt.Sprintf("fetch/%d", table))
	return f.carts[table].Clone(), nil
}

func (f *fakeService) UpdateItem(ctx context.Context, table int64, itemID string, quantity int64) (*Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("cart service down")
	}
	f.calls = append(f.calls, fmt.Sprintf("update/%d/%s/%d", table, itemID, quantity))
	cart := f.carts[table]
	if cart == nil {
		return nil, errors.New("no cart")
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items[i].Quantity = quantity
			cart.Items[i].TotalAmount = float64(quantity) * cart.Items[i].UnitPrice
		}
	}
	recompute(cart)
	return cart.Clone(), nil
}

func (f *fakeService) RemoveItem(ctx context.Context, table int64, itemID string) (*Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("cart service down")
	}
	f.calls = append(f.calls, fmt.Sprintf("remove/%d/%s", table, itemID))
	cart := f.carts[table]
	if cart == nil {
		return nil, errors.New("no cart")
	}
	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept
	recompute(cart)
	return cart.Clone(), nil
}

func (f *fakeService) Clear(ctx context.Context, table int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("cart service down")
	}
	f.calls = append(f.calls, fmt.Sprintf("clear/%d", table))
	if cart := f.carts[table]; cart != nil {
		cart.Items = []Item{}
		recompute(cart)
	}
	return nil
}

func recompute(cart *Cart) {
	cart.Subtotal = 0
	cart.TotalAmount = 0
	for _, item := range cart.Items {
		cart.Subtotal += item.TotalAmount
		cart.TotalAmount += item.TotalAmount
	}
}

func openSlot(t *testing.T, store *Store, slot int64) {
	t.Helper()
	if _, err := store.OpenSlot(context.Background(), slot); err != nil {
		t.Fatalf("open slot %d: %v", slot, err)
	}
}

func TestUpdateQuantityZeroRemovesItem(t *testing.T) {
	svc := newFakeService()
	svc.seed(3, Item{ID: "a", ProductID: "p1", Quantity: 2, UnitPrice: 4, TotalAmount: 8})
	store := NewStore(svc, 8, nil)
	openSlot(t, store, 3)

	got, err := store.UpdateItemQuantity(context.Background(), 3, "a", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Items) != 0 {
		t.Fatalf("expected item removed, got %d items", len(got.Items))
	}
	last := svc.calls[len(svc.calls)-1]
	if last != "remove/3/a" {
		t.Fatalf("expected remove call, got %s", last)
	}
}

func TestMutationFailureLeavesCacheUntouched(t *testing.T) {
	svc := newFakeService()
	svc.seed(2, Item{ID: "a", Quantity: 1, UnitPrice: 10, TotalAmount: 10})
	store := NewStore(svc, 8, nil)
	openSlot(t, store, 2)

	svc.failAll = true
	_, err := store.UpdateItemQuantity(context.Background(), 2, "a", 5)
	if err == nil {
		t.Fatalf("expected sync error")
	}
	var coded *Error
	if !errors.As(err, &coded) || coded.Code != ErrCartSync {
		t.Fatalf("expected CART_SYNC_ERROR, got %v", err)
	}

	cached, _ := store.GetCart(2)
	if cached.Items[0].Quantity != 1 {
		t.Fatalf("cache changed after failed mutation: qty %d", cached.Items[0].Quantity)
	}
}

func TestClearCartLeavesOtherSlotsAlone(t *testing.T) {
	svc := newFakeService()
	svc.seed(3,
		Item{ID: "a", Quantity: 1, UnitPrice: 3, TotalAmount: 3},
		Item{ID: "b", Quantity: 2, UnitPrice: 5, TotalAmount: 10})
	svc.seed(4, Item{ID: "c", Quantity: 1, UnitPrice: 7, TotalAmount: 7})
	store := NewStore(svc, 8, nil)
	openSlot(t, store, 3)
	openSlot(t, store, 4)

	if _, err := store.ClearCart(context.Background(), 3); err != nil {
		t.Fatalf("clear: %v", err)
	}

	three, _ := store.GetCart(3)
	if len(three.Items) != 0 {
		t.Fatalf("expected table 3 cart empty, got %d items", len(three.Items))
	}
	four, _ := store.GetCart(4)
	if len(four.Items) != 1 || four.Items[0].ID != "c" {
		t.Fatalf("table 4 cart was affected by clearing table 3")
	}
}

func TestSameSlotMutationsApplyInOrder(t *testing.T) {
	svc := newFakeService()
	svc.seed(1, Item{ID: "a", Quantity: 1, UnitPrice: 2, TotalAmount: 2})
	store := NewStore(svc, 4, nil)
	openSlot(t, store, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for q := int64(1); q <= 20; q++ {
			if _, err := store.UpdateItemQuantity(context.Background(), 1, "a", q); err != nil {
				t.Errorf("update qty %d: %v", q, err)
				return
			}
		}
	}()
	<-done

	cached, _ := store.GetCart(1)
	if cached.Items[0].Quantity != 20 {
		t.Fatalf("expected final quantity 20, got %d", cached.Items[0].Quantity)
	}

	// Issuance order must survive into the call log.
	want := int64(1)
	for _, call := range svc.calls {
		var table, qty int64
		var item string
		if n, _ := fmt.Sscanf(call, "update/%d/%1s/%d", &table, &item, &qty); n == 3 {
			if qty != want {
				t.Fatalf("expected update qty %d next, got %d", want, qty)
			}
			want++
		}
	}
}

func TestRecoverAllReplacesLocalState(t *testing.T) {
	svc := newFakeService()
	svc.seed(5, Item{ID: "a", Quantity: 1, UnitPrice: 2, TotalAmount: 2})
	store := NewStore(svc, 8, nil)
	openSlot(t, store, 5)

	// Server state moves on behind the terminal's back.
	svc.seed(5, Item{ID: "z", Quantity: 9, UnitPrice: 1, TotalAmount: 9})

	recovered, failed := store.RecoverAll(context.Background())
	if len(failed) != 0 {
		t.Fatalf("unexpected failures: %v", failed)
	}
	if got := recovered[5]; got == nil || len(got.Items) != 1 || got.Items[0].ID != "z" {
		t.Fatalf("expected server state to win on recovery")
	}
	cached, _ := store.GetCart(5)
	if cached.Items[0].ID != "z" {
		t.Fatalf("cache not replaced by recovery")
	}
}

func TestActiveSlotRegister(t *testing.T) {
	svc := newFakeService()
	store := NewStore(svc, 4, nil)
	openSlot(t, store, 2)

	if err := store.SetActiveSlot(3); err == nil {
		t.Fatalf("expected error activating a closed slot")
	}
	if err := store.SetActiveSlot(2); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if got := store.ActiveSlot(); got != 2 {
		t.Fatalf("expected active slot 2, got %d", got)
	}
	if err := store.CloseSlot(2); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := store.ActiveSlot(); got != 0 {
		t.Fatalf("expected active slot cleared on close, got %d", got)
	}
}

func TestSlotOutOfRange(t *testing.T) {
	store := NewStore(newFakeService(), 4, nil)
	if _, err := store.OpenSlot(context.Background(), 5); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if _, err := store.GetCart(0); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}
