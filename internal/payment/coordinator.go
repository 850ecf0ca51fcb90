package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"luntera-pos-services/internal/change"
	"luntera-pos-services/internal/fiscal"
	"luntera-pos-services/internal/money"
)

// InvoiceSink receives the fiscal signature of a confirmed payment. The
// handoff happens synchronously inside Confirm, before any event publishing
// or rendering, so a crash right after signing cannot lose the record.
type InvoiceSink interface {
	Enqueue(ctx context.Context, invoice fiscal.PendingInvoice) error
}

// Archiver persists terminal sessions for audit. Optional.
type Archiver interface {
	Archive(ctx context.Context, session Session) error
}

// EventPublisher fans lifecycle events out to back-office consumers. Optional.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Coordinator drives payment sessions. A per-session in-flight flag rejects
// a second confirm or cancel before it reaches the network; that flag is the
// primary defense against double charge under rapid repeated taps.
type Coordinator struct {
	service Service
	sink    InvoiceSink
	archive Archiver
	events  EventPublisher
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*sessionState
}

type sessionState struct {
	session    Session
	inFlight   bool
	cancelling bool
	intent     *cancelIntent
}

type cancelIntent struct {
	by     string
	reason string
	at     time.Time
}

func NewCoordinator(service Service, sink InvoiceSink, archive Archiver, events EventPublisher, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		service:  service,
		sink:     sink,
		archive:  archive,
		events:   events,
		logger:   logger,
		sessions: make(map[string]*sessionState),
	}
}

// Create opens a session for the cart's total and registers it remotely.
func (c *Coordinator) Create(ctx context.Context, cartID string, totalAmount money.Cents) (Session, error) {
	if totalAmount <= 0 {
		return Session{}, validationError(ErrInvalidTotal, "Session total must be positive")
	}

	sessionID := uuid.NewString()
	if err := c.service.CreateSession(ctx, sessionID, cartID, totalAmount.Decimal()); err != nil {
		return Session{}, err
	}

	now := time.Now()
	session := Session{
		SessionID:   sessionID,
		CartID:      cartID,
		TotalAmount: totalAmount,
		Allocations: []Allocation{},
		State:       StateCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	c.mu.Lock()
	c.sessions[sessionID] = &sessionState{session: session}
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("payment session created",
			zap.String("sessionId", sessionID),
			zap.String("cartId", cartID),
			zap.String("total", totalAmount.String()))
	}
	return session.clone(), nil
}

// Get returns a snapshot of the session.
func (c *Coordinator) Get(sessionID string) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.sessions[sessionID]
	if !ok {
		return Session{}, sessionNotFound(sessionID)
	}
	return state.session.clone(), nil
}

// Allocate appends or overwrites the allocation for one method. Allocating
// the same method twice replaces its amount, so re-entry on the split screen
// stays idempotent.
func (c *Coordinator) Allocate(sessionID string, method Method, amount, tendered money.Cents) (Session, error) {
	if _, ok := ParseMethod(string(method)); !ok {
		return Session{}, validationError(ErrInvalidMethod, fmt.Sprintf("Unknown payment method %q", method))
	}
	if amount <= 0 {
		return Session{}, validationError(ErrInvalidAmount, "Allocation amount must be positive")
	}

	alloc := Allocation{Method: method, Amount: amount}
	if method == MethodCash && tendered > 0 {
		result, err := change.Compute(amount, tendered)
		if err != nil {
			return Session{}, validationError(ErrInvalidAmount, "Tendered amount does not cover the cash allocation")
		}
		alloc.TenderedAmount = tendered
		alloc.ChangeAmount = result.Change
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.sessions[sessionID]
	if !ok {
		return Session{}, sessionNotFound(sessionID)
	}
	if state.inFlight {
		return Session{}, concurrencyError("Session has a confirmation or cancellation in flight")
	}
	switch state.session.State {
	case StateCreated, StateAwaitingAllocation:
	case StateConfirmed:
		return Session{}, alreadyCompleted()
	default:
		return Session{}, validationError(ErrInvalidState, fmt.Sprintf("Cannot allocate in state %s", state.session.State))
	}

	replaced := false
	for i := range state.session.Allocations {
		if state.session.Allocations[i].Method == method {
			state.session.Allocations[i] = alloc
			replaced = true
			break
		}
	}
	if !replaced {
		state.session.Allocations = append(state.session.Allocations, alloc)
	}
	state.session.State = StateAwaitingAllocation
	state.session.UpdatedAt = time.Now()
	return state.session.clone(), nil
}

// Confirm drives the session to CONFIRMED exactly once. The allocation sum
// is checked locally before any network call; so is the in-flight guard.
func (c *Coordinator) Confirm(ctx context.Context, sessionID string) (Session, error) {
	c.mu.Lock()
	state, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return Session{}, sessionNotFound(sessionID)
	}
	if state.session.State == StateConfirmed {
		c.mu.Unlock()
		return Session{}, alreadyCompleted()
	}
	if state.session.State.Terminal() {
		c.mu.Unlock()
		return Session{}, validationError(ErrInvalidState, fmt.Sprintf("Cannot confirm in state %s", state.session.State))
	}
	if state.inFlight {
		c.mu.Unlock()
		return Session{}, concurrencyError("Confirmation already in flight for this session")
	}
	if state.session.Allocated() < state.session.TotalAmount {
		missing := state.session.TotalAmount - state.session.Allocated()
		c.mu.Unlock()
		return Session{}, &Error{
			Code:       ErrInsufficientAllocation,
			Message:    fmt.Sprintf("Allocations cover %s too little", missing.String()),
			StatusCode: http.StatusBadRequest,
		}
	}
	state.inFlight = true
	allocations := make([]Allocation, len(state.session.Allocations))
	copy(allocations, state.session.Allocations)
	c.mu.Unlock()

	ack, err := c.service.Confirm(ctx, sessionID, allocations)

	c.mu.Lock()
	state.inFlight = false
	intent := state.intent
	state.intent = nil

	if err != nil {
		session := c.resolveFailedConfirm(state, intent, err)
		c.mu.Unlock()
		c.afterTerminal(ctx, session)
		return session, err
	}

	state.session.State = StateConfirmed
	state.session.FiscalSignature = ack.FiscalSignature
	state.session.InvoiceID = ack.InvoiceID
	if state.session.InvoiceID == "" {
		state.session.InvoiceID = uuid.NewString()
	}
	state.session.UpdatedAt = time.Now()
	session := state.session.clone()
	c.mu.Unlock()

	// The signed invoice enters the durable queue before anything else may
	// observe the confirmation.
	invoice := fiscal.PendingInvoice{
		InvoiceID:       session.InvoiceID,
		CartID:          session.CartID,
		TotalAmount:     session.TotalAmount.Decimal(),
		FiscalSignature: session.FiscalSignature,
		CreatedAt:       time.Now(),
	}
	if err := c.sink.Enqueue(ctx, invoice); err != nil && c.logger != nil {
		c.logger.Error("fiscal invoice handoff degraded", zap.String("invoiceId", invoice.InvoiceID), zap.Error(err))
	}

	if intent != nil && c.logger != nil {
		c.logger.Warn("cancellation arrived after confirmation; treating as already completed",
			zap.String("sessionId", sessionID),
			zap.String("requestedBy", intent.by))
	}

	c.afterTerminal(ctx, session)
	if c.events != nil {
		_ = c.events.Publish(ctx, "payment.confirmed", map[string]any{
			"sessionId":   session.SessionID,
			"cartId":      session.CartID,
			"invoiceId":   session.InvoiceID,
			"totalAmount": session.TotalAmount.Decimal(),
		})
	}
	return session, nil
}

// resolveFailedConfirm is called with the coordinator lock held.
func (c *Coordinator) resolveFailedConfirm(state *sessionState, intent *cancelIntent, confirmErr error) Session {
	var coded *Error
	isNetwork := errors.As(confirmErr, &coded) && coded.Code == ErrNetwork

	switch {
	case intent != nil:
		// A cancel was requested while the confirm was on the wire; the
		// confirm failing settles it in the cancel's favour.
		state.session.State = StateCancelled
		state.session.Cancellation = &Cancellation{
			CancelledBy:        intent.by,
			CancelledAt:        time.Now(),
			CancellationReason: intent.reason,
		}
	case isNetwork:
		// Outcome unknown; the idempotency key makes a retry safe.
		state.session.State = StateAwaitingAllocation
	default:
		state.session.State = StateFailed
	}
	state.session.UpdatedAt = time.Now()
	return state.session.clone()
}

// CancelResult reports either completed cancellation metadata or that the
// cancellation was recorded as intent behind an in-flight confirmation.
type CancelResult struct {
	Pending      bool          `json:"pending"`
	Cancellation *Cancellation `json:"cancellation,omitempty"`
}

// Cancel moves a non-terminal session to CANCELLED. Cancelling an already
// acknowledged session reports ALREADY_COMPLETED and changes nothing; the
// enqueued invoice in particular stays where it is.
func (c *Coordinator) Cancel(ctx context.Context, sessionID, cancelledBy, reason string) (CancelResult, error) {
	c.mu.Lock()
	state, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return CancelResult{}, sessionNotFound(sessionID)
	}

	switch state.session.State {
	case StateConfirmed:
		c.mu.Unlock()
		return CancelResult{}, alreadyCompleted()
	case StateCancelled, StateFailed:
		c.mu.Unlock()
		return CancelResult{}, validationError(ErrInvalidState, fmt.Sprintf("Session is already %s", state.session.State))
	}

	if state.inFlight {
		if state.cancelling || state.intent != nil {
			c.mu.Unlock()
			return CancelResult{}, concurrencyError("Cancellation already requested for this session")
		}
		// A confirmation is on the wire. Record the intent; the confirm
		// path resolves it once the network answers.
		state.intent = &cancelIntent{by: cancelledBy, reason: reason, at: time.Now()}
		c.mu.Unlock()
		return CancelResult{Pending: true}, nil
	}

	state.inFlight = true
	state.cancelling = true
	c.mu.Unlock()

	meta, err := c.service.Cancel(ctx, sessionID, cancelledBy, reason)

	c.mu.Lock()
	state.inFlight = false
	state.cancelling = false
	if err != nil {
		c.mu.Unlock()
		return CancelResult{}, err
	}
	if meta.CancelledAt.IsZero() {
		meta = Cancellation{CancelledBy: cancelledBy, CancelledAt: time.Now(), CancellationReason: reason}
	}
	state.session.State = StateCancelled
	state.session.Cancellation = &meta
	state.session.UpdatedAt = time.Now()
	session := state.session.clone()
	c.mu.Unlock()

	c.afterTerminal(ctx, session)
	if c.events != nil {
		_ = c.events.Publish(ctx, "payment.cancelled", map[string]any{
			"sessionId": session.SessionID,
			"cartId":    session.CartID,
			"reason":    meta.CancellationReason,
		})
	}
	return CancelResult{Cancellation: &meta}, nil
}

func (c *Coordinator) afterTerminal(ctx context.Context, session Session) {
	if !session.State.Terminal() || c.archive == nil {
		return
	}
	if err := c.archive.Archive(ctx, session); err != nil && c.logger != nil {
		c.logger.Warn("session archive failed", zap.String("sessionId", session.SessionID), zap.Error(err))
	}
}

func sessionNotFound(sessionID string) *Error {
	return &Error{Code: ErrSessionNotFound, Message: fmt.Sprintf("Unknown session %s", sessionID), StatusCode: http.StatusNotFound}
}
