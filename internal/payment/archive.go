package payment

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGArchive appends terminal sessions to the local audit table. Rows are
// written once and never updated.
type PGArchive struct {
	db *pgxpool.Pool
}

func NewPGArchive(db *pgxpool.Pool) *PGArchive {
	return &PGArchive{db: db}
}

func (a *PGArchive) Archive(ctx context.Context, session Session) error {
	allocations, err := json.Marshal(session.Allocations)
	if err != nil {
		return err
	}

	var cancellation []byte
	if session.Cancellation != nil {
		cancellation, err = json.Marshal(session.Cancellation)
		if err != nil {
			return err
		}
	}

	_, err = a.db.Exec(ctx, `
		insert into payment_sessions (session_id, cart_id, total_amount, state, allocations, fiscal_signature, invoice_id, cancellation, created_at, closed_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		on conflict (session_id) do nothing
	`, session.SessionID, session.CartID, session.TotalAmount.Decimal(), string(session.State),
		allocations, nilIfBlank(session.FiscalSignature), nilIfBlank(session.InvoiceID), cancellation,
		session.CreatedAt, session.UpdatedAt)
	return err
}

func nilIfBlank(value string) any {
	if value == "" {
		return nil
	}
	return value
}
