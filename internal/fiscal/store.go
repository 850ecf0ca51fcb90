package fiscal

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the durable side of the pending queue. Entries are appended and
// removed, never rewritten in place; attempt bookkeeping touches only the
// two counters so a partial write cannot corrupt the signed payload.
type Store interface {
	Append(ctx context.Context, invoice PendingInvoice) error
	Remove(ctx context.Context, invoiceID string) error
	RecordAttempt(ctx context.Context, invoiceID string, attempts int64, lastError string) error
	LoadAll(ctx context.Context) ([]PendingInvoice, error)
}

// PGStore keeps the queue in the terminal's local Postgres.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, invoice PendingInvoice) error {
	_, err := s.db.Exec(ctx, `
		insert into pending_invoices (invoice_id, cart_id, total_amount, fiscal_signature, created_at, submission_attempts, last_error)
		values ($1,$2,$3,$4,$5,$6,$7)
		on conflict (invoice_id) do nothing
	`, invoice.InvoiceID, invoice.CartID, invoice.TotalAmount, invoice.FiscalSignature,
		invoice.CreatedAt, invoice.SubmissionAttempts, nilIfBlank(invoice.LastError))
	return err
}

func (s *PGStore) Remove(ctx context.Context, invoiceID string) error {
	_, err := s.db.Exec(ctx, `delete from pending_invoices where invoice_id = $1`, invoiceID)
	return err
}

func (s *PGStore) RecordAttempt(ctx context.Context, invoiceID string, attempts int64, lastError string) error {
	_, err := s.db.Exec(ctx, `
		update pending_invoices set submission_attempts = $1, last_error = $2 where invoice_id = $3
	`, attempts, nilIfBlank(lastError), invoiceID)
	return err
}

func (s *PGStore) LoadAll(ctx context.Context) ([]PendingInvoice, error) {
	rows, err := s.db.Query(ctx, `
		select invoice_id, cart_id, total_amount, fiscal_signature, created_at, submission_attempts, coalesce(last_error, '')
		from pending_invoices
		order by created_at asc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingInvoice
	for rows.Next() {
		var invoice PendingInvoice
		if err := rows.Scan(&invoice.InvoiceID, &invoice.CartID, &invoice.TotalAmount,
			&invoice.FiscalSignature, &invoice.CreatedAt, &invoice.SubmissionAttempts, &invoice.LastError); err != nil {
			return nil, err
		}
		out = append(out, invoice)
	}
	return out, rows.Err()
}

func nilIfBlank(value string) any {
	if value == "" {
		return nil
	}
	return value
}
