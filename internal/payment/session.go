package payment

import (
	"time"

	"luntera-pos-services/internal/money"
)

// Method is a closed set; switches over it are exhaustive on purpose.
type Method string

const (
	MethodCash        Method = "CASH"
	MethodCard        Method = "CARD"
	MethodVoucher     Method = "VOUCHER"
	MethodContactless Method = "CONTACTLESS"
)

func ParseMethod(raw string) (Method, bool) {
	switch Method(raw) {
	case MethodCash, MethodCard, MethodVoucher, MethodContactless:
		return Method(raw), true
	}
	return "", false
}

// State machine: CREATED -> AWAITING_ALLOCATION -> CONFIRMED, with CANCELLED
// reachable from any non-terminal state and FAILED on remote rejection.
type State string

const (
	StateCreated            State = "CREATED"
	StateAwaitingAllocation State = "AWAITING_ALLOCATION"
	StateConfirmed          State = "CONFIRMED"
	StateCancelled          State = "CANCELLED"
	StateFailed             State = "FAILED"
)

func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateCancelled || s == StateFailed
}

type Allocation struct {
	Method         Method      `json:"method"`
	Amount         money.Cents `json:"amount"`
	TenderedAmount money.Cents `json:"tenderedAmount,omitempty"`
	ChangeAmount   money.Cents `json:"changeAmount,omitempty"`
}

type Cancellation struct {
	CancelledBy        string    `json:"cancelledBy"`
	CancelledAt        time.Time `json:"cancelledAt"`
	CancellationReason string    `json:"cancellationReason"`
}

type Session struct {
	SessionID   string       `json:"sessionId"`
	CartID      string       `json:"cartId"`
	TotalAmount money.Cents  `json:"totalAmount"`
	Allocations []Allocation `json:"allocations"`
	State       State        `json:"state"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`

	FiscalSignature string        `json:"fiscalSignature,omitempty"`
	InvoiceID       string        `json:"invoiceId,omitempty"`
	Cancellation    *Cancellation `json:"cancellation,omitempty"`
}

// Allocated sums the current allocations.
func (s *Session) Allocated() money.Cents {
	var sum money.Cents
	for _, alloc := range s.Allocations {
		sum += alloc.Amount
	}
	return sum
}

func (s *Session) clone() Session {
	out := *s
	out.Allocations = make([]Allocation, len(s.Allocations))
	copy(out.Allocations, s.Allocations)
	if s.Cancellation != nil {
		meta := *s.Cancellation
		out.Cancellation = &meta
	}
	return out
}
