package fiscal

import "time"

// PendingInvoice is a fiscally signed transaction that the compliance
// backend has not acknowledged yet. It exists from the instant a signature
// is produced and may only leave the queue through an acknowledged
// submission.
type PendingInvoice struct {
	InvoiceID          string    `json:"invoiceId"`
	CartID             string    `json:"cartId"`
	TotalAmount        float64   `json:"totalAmount"`
	FiscalSignature    string    `json:"fiscalSignature"`
	CreatedAt          time.Time `json:"createdAt"`
	SubmissionAttempts int64     `json:"submissionAttempts"`
	LastError          string    `json:"lastError,omitempty"`
}
