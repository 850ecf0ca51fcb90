package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store owns the fixed arena of table slots and the cached cart per slot.
// All remote cart traffic goes through it. Mutations against one slot are
// serialized behind that slot's lock; different slots proceed independently.
type Store struct {
	service Service
	logger  *zap.Logger
	slots   []*slotState

	// openMu serializes open/close across slots; those are the only paths
	// that touch more than one slot lock, so holding it breaks any cycle.
	openMu sync.Mutex

	activeMu   sync.RWMutex
	activeSlot int64
}

type slotState struct {
	mu     sync.Mutex
	isOpen bool
	cart   *Cart
}

func NewStore(service Service, slotCount int64, logger *zap.Logger) *Store {
	slots := make([]*slotState, slotCount)
	for i := range slots {
		slots[i] = &slotState{}
	}
	return &Store{service: service, logger: logger, slots: slots}
}

func (s *Store) SlotCount() int64 {
	return int64(len(s.slots))
}

func (s *Store) slot(slotID int64) (*slotState, *Error) {
	if slotID < 1 || slotID > int64(len(s.slots)) {
		return nil, validationError(ErrSlotOutOfRange, fmt.Sprintf("slot %d is outside 1..%d", slotID, len(s.slots)))
	}
	return s.slots[slotID-1], nil
}

// OpenSlot marks the slot open and loads its authoritative cart. When the
// backend has no cart for the table yet a fresh local one is started.
func (s *Store) OpenSlot(ctx context.Context, slotID int64) (*Cart, error) {
	state, verr := s.slot(slotID)
	if verr != nil {
		return nil, verr
	}
	s.openMu.Lock()
	defer s.openMu.Unlock()
	state.mu.Lock()
	defer state.mu.Unlock()

	remote, err := s.service.Fetch(ctx, slotID)
	if err != nil {
		return nil, syncError("failed to load cart for slot", err)
	}
	if remote == nil {
		remote = &Cart{
			CartID:      uuid.NewString(),
			TableNumber: slotID,
			Items:       []Item{},
			Status:      StatusActive,
		}
	}

	if other := s.openSlotHoldingCart(remote.CartID, slotID); other != 0 {
		return nil, validationError(ErrCartInUse, fmt.Sprintf("cart %s is already open on slot %d", remote.CartID, other))
	}

	state.isOpen = true
	state.cart = remote
	if s.logger != nil {
		s.logger.Info("slot opened", zap.Int64("slot", slotID), zap.String("cartId", remote.CartID))
	}
	return remote.Clone(), nil
}

// openSlotHoldingCart reports which other open slot already references the
// cart, or 0. Callers must not hold the lock of a slot they pass as exclude;
// the scan takes each slot lock briefly.
func (s *Store) openSlotHoldingCart(cartID string, exclude int64) int64 {
	for i, state := range s.slots {
		slotID := int64(i + 1)
		if slotID == exclude {
			continue
		}
		state.mu.Lock()
		match := state.isOpen && state.cart != nil && state.cart.CartID == cartID
		state.mu.Unlock()
		if match {
			return slotID
		}
	}
	return 0
}

func (s *Store) CloseSlot(slotID int64) error {
	state, verr := s.slot(slotID)
	if verr != nil {
		return verr
	}
	s.openMu.Lock()
	defer s.openMu.Unlock()
	state.mu.Lock()
	defer state.mu.Unlock()
	state.isOpen = false
	state.cart = nil

	s.activeMu.Lock()
	if s.activeSlot == slotID {
		s.activeSlot = 0
	}
	s.activeMu.Unlock()
	return nil
}

// SetActiveSlot is the single writer of the active-slot register.
func (s *Store) SetActiveSlot(slotID int64) error {
	state, verr := s.slot(slotID)
	if verr != nil {
		return verr
	}
	state.mu.Lock()
	open := state.isOpen
	state.mu.Unlock()
	if !open {
		return validationError(ErrSlotClosed, fmt.Sprintf("slot %d is not open", slotID))
	}

	s.activeMu.Lock()
	s.activeSlot = slotID
	s.activeMu.Unlock()
	return nil
}

// ActiveSlot returns 0 when no slot is active.
func (s *Store) ActiveSlot() int64 {
	s.activeMu.RLock()
	defer s.activeMu.RUnlock()
	return s.activeSlot
}

func (s *Store) GetCart(slotID int64) (*Cart, error) {
	state, verr := s.slot(slotID)
	if verr != nil {
		return nil, verr
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.cart.Clone(), nil
}

func (s *Store) Slots() []Slot {
	out := make([]Slot, 0, len(s.slots))
	for i, state := range s.slots {
		state.mu.Lock()
		slot := Slot{SlotID: int64(i + 1), IsOpen: state.isOpen}
		if state.cart != nil {
			slot.CartID = state.cart.CartID
		}
		state.mu.Unlock()
		out = append(out, slot)
	}
	return out
}

// UpdateItemQuantity sets the quantity of one line. Zero or negative means
// remove. The cache is only replaced once the backend confirmed the write.
func (s *Store) UpdateItemQuantity(ctx context.Context, slotID int64, itemID string, quantity int64) (*Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, slotID, itemID)
	}
	return s.mutate(ctx, slotID, func(ctx context.Context) (*Cart, error) {
		return s.service.UpdateItem(ctx, slotID, itemID, quantity)
	}, "update item quantity")
}

func (s *Store) RemoveItem(ctx context.Context, slotID int64, itemID string) (*Cart, error) {
	return s.mutate(ctx, slotID, func(ctx context.Context) (*Cart, error) {
		return s.service.RemoveItem(ctx, slotID, itemID)
	}, "remove item")
}

// ClearCart empties the slot's cart remotely, then locally.
func (s *Store) ClearCart(ctx context.Context, slotID int64) (*Cart, error) {
	state, verr := s.slot(slotID)
	if verr != nil {
		return nil, verr
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if !state.isOpen {
		return nil, validationError(ErrSlotClosed, fmt.Sprintf("slot %d is not open", slotID))
	}

	if err := s.service.Clear(ctx, slotID); err != nil {
		return nil, syncError("failed to clear cart", err)
	}

	cartID := ""
	if state.cart != nil {
		cartID = state.cart.CartID
	}
	state.cart = &Cart{
		CartID:      cartID,
		TableNumber: slotID,
		Items:       []Item{},
		Status:      StatusActive,
	}
	return state.cart.Clone(), nil
}

func (s *Store) mutate(ctx context.Context, slotID int64, call func(ctx context.Context) (*Cart, error), what string) (*Cart, error) {
	state, verr := s.slot(slotID)
	if verr != nil {
		return nil, verr
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if !state.isOpen {
		return nil, validationError(ErrSlotClosed, fmt.Sprintf("slot %d is not open", slotID))
	}

	updated, err := call(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("cart mutation failed, cache untouched",
				zap.Int64("slot", slotID), zap.String("op", what), zap.Error(err))
		}
		return nil, syncError("failed to "+what, err)
	}

	state.cart = updated
	return updated.Clone(), nil
}

// RecoverAll replaces every open slot's cache with the backend's state.
// The server is the source of truth: unacknowledged local edits are dropped.
// Slots whose fetch fails keep their cache and are reported in the error map.
func (s *Store) RecoverAll(ctx context.Context) (map[int64]*Cart, map[int64]error) {
	recovered := make(map[int64]*Cart)
	failed := make(map[int64]error)

	for i, state := range s.slots {
		slotID := int64(i + 1)
		state.mu.Lock()
		if !state.isOpen {
			state.mu.Unlock()
			continue
		}

		remote, err := s.service.Fetch(ctx, slotID)
		if err != nil {
			state.mu.Unlock()
			failed[slotID] = syncError("failed to recover cart", err)
			continue
		}
		if remote == nil {
			remote = &Cart{
				CartID:      uuid.NewString(),
				TableNumber: slotID,
				Items:       []Item{},
				Status:      StatusActive,
			}
		}
		state.cart = remote
		recovered[slotID] = remote.Clone()
		state.mu.Unlock()
	}

	if s.logger != nil {
		s.logger.Info("cart recovery finished",
			zap.Int("recovered", len(recovered)), zap.Int("failed", len(failed)))
	}
	return recovered, failed
}
