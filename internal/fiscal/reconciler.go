package fiscal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"luntera-pos-services/internal/netstatus"
)

// ConnectivityGate answers, freshly, whether the compliance backend can be
// reached right now. The reconciler probes at call time so a status flip
// between the caller's check and the submission cannot slip through.
type ConnectivityGate interface {
	ProbeNow(ctx context.Context) netstatus.Status
}

// InvoiceArchiver receives acknowledged invoices for long-term retention.
// Optional; archival failure never resurrects a queue entry.
type InvoiceArchiver interface {
	ArchiveInvoice(ctx context.Context, invoice PendingInvoice) error
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Reconciler owns the pending-invoice queue. The in-memory list is the
// working copy; every change is mirrored to the durable store. Entries leave
// the queue only through an acknowledged submission.
type Reconciler struct {
	store     Store
	submitter Submitter
	gate      ConnectivityGate
	archive   InvoiceArchiver
	events    EventPublisher
	logger    *zap.Logger

	mu      sync.Mutex
	queue   []PendingInvoice
	stopped chan struct{}
}

func NewReconciler(store Store, submitter Submitter, gate ConnectivityGate, archive InvoiceArchiver, events EventPublisher, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:     store,
		submitter: submitter,
		gate:      gate,
		archive:   archive,
		events:    events,
		logger:    logger,
	}
}

// Recover warms the in-memory queue from the durable store. Called once at
// startup, before anything can enqueue.
func (r *Reconciler) Recover(ctx context.Context) error {
	invoices, err := r.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.queue = invoices
	r.mu.Unlock()
	if r.logger != nil && len(invoices) > 0 {
		r.logger.Info("recovered pending invoices from durable store", zap.Int("count", len(invoices)))
	}
	return nil
}

// Enqueue is the only way an invoice enters the queue. It must run at the
// moment the fiscal signature is produced. A durable-store failure is logged
// and the invoice is kept in memory regardless; it is never dropped.
func (r *Reconciler) Enqueue(ctx context.Context, invoice PendingInvoice) error {
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now()
	}

	r.mu.Lock()
	for _, existing := range r.queue {
		if existing.InvoiceID == invoice.InvoiceID {
			r.mu.Unlock()
			return nil
		}
	}
	r.queue = append(r.queue, invoice)
	r.mu.Unlock()

	if err := r.store.Append(ctx, invoice); err != nil {
		if r.logger != nil {
			r.logger.Error("pending invoice not persisted; kept in memory",
				zap.String("invoiceId", invoice.InvoiceID), zap.Error(err))
		}
		return err
	}
	if r.logger != nil {
		r.logger.Info("fiscal invoice enqueued",
			zap.String("invoiceId", invoice.InvoiceID),
			zap.Float64("totalAmount", invoice.TotalAmount))
	}
	return nil
}

// List returns a snapshot of the queue in enqueue order.
func (r *Reconciler) List() []PendingInvoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PendingInvoice, len(r.queue))
	copy(out, r.queue)
	return out
}

func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Report summarizes one submission round.
type Report struct {
	NotReady  bool              `json:"notReady"`
	Submitted []string          `json:"submitted"`
	Failed    map[string]string `json:"failed"`
}

// SubmitAll pushes every queued invoice to the compliance backend. When the
// gate reports the backend unreachable the call is a no-op reporting
// NotReady; nothing is mutated.
func (r *Reconciler) SubmitAll(ctx context.Context) (Report, error) {
	if !r.gate.ProbeNow(ctx).CanSubmitToFiscalBackend {
		return Report{NotReady: true}, nil
	}

	batch := r.List()
	if len(batch) == 0 {
		return Report{Submitted: []string{}, Failed: map[string]string{}}, nil
	}

	report, err := r.submitter.SubmitBatch(ctx, batch)
	if err != nil {
		// Transport-level failure: every invoice stays queued with an
		// incremented attempt count.
		r.recordFailure(ctx, batch, err.Error())
		return Report{}, err
	}

	out := Report{Submitted: []string{}, Failed: map[string]string{}}
	accepted := make(map[string]bool, len(report.Accepted))
	for _, id := range report.Accepted {
		accepted[id] = true
	}

	for _, invoice := range batch {
		if accepted[invoice.InvoiceID] {
			r.acknowledge(ctx, invoice)
			out.Submitted = append(out.Submitted, invoice.InvoiceID)
			continue
		}
		reason, rejected := report.Rejected[invoice.InvoiceID]
		if !rejected {
			reason = "no acknowledgement from backend"
		}
		r.recordFailure(ctx, []PendingInvoice{invoice}, reason)
		out.Failed[invoice.InvoiceID] = reason
	}

	if r.logger != nil {
		r.logger.Info("fiscal submission round finished",
			zap.Int("submitted", len(out.Submitted)), zap.Int("failed", len(out.Failed)))
	}
	return out, nil
}

// Retry submits one invoice. Same gate semantics as SubmitAll.
func (r *Reconciler) Retry(ctx context.Context, invoiceID string) (Report, error) {
	if !r.gate.ProbeNow(ctx).CanSubmitToFiscalBackend {
		return Report{NotReady: true}, nil
	}

	var invoice PendingInvoice
	found := false
	r.mu.Lock()
	for _, entry := range r.queue {
		if entry.InvoiceID == invoiceID {
			invoice = entry
			found = true
			break
		}
	}
	r.mu.Unlock()
	if !found {
		return Report{}, &Error{Code: ErrUnknownInvoice, Message: "No such pending invoice", StatusCode: http.StatusNotFound}
	}

	if err := r.submitter.SubmitOne(ctx, invoice); err != nil {
		r.recordFailure(ctx, []PendingInvoice{invoice}, err.Error())
		return Report{}, err
	}

	r.acknowledge(ctx, invoice)
	return Report{Submitted: []string{invoiceID}, Failed: map[string]string{}}, nil
}

// acknowledge removes an acked invoice from memory and store, then archives
// and announces it.
func (r *Reconciler) acknowledge(ctx context.Context, invoice PendingInvoice) {
	r.mu.Lock()
	kept := r.queue[:0]
	for _, entry := range r.queue {
		if entry.InvoiceID != invoice.InvoiceID {
			kept = append(kept, entry)
		}
	}
	r.queue = kept
	r.mu.Unlock()

	if err := r.store.Remove(ctx, invoice.InvoiceID); err != nil && r.logger != nil {
		r.logger.Warn("acked invoice not removed from durable store",
			zap.String("invoiceId", invoice.InvoiceID), zap.Error(err))
	}
	if r.archive != nil {
		if err := r.archive.ArchiveInvoice(ctx, invoice); err != nil && r.logger != nil {
			r.logger.Warn("invoice archive failed", zap.String("invoiceId", invoice.InvoiceID), zap.Error(err))
		}
	}
	if r.events != nil {
		_ = r.events.Publish(ctx, "invoice.submitted", map[string]any{
			"invoiceId":   invoice.InvoiceID,
			"cartId":      invoice.CartID,
			"totalAmount": invoice.TotalAmount,
		})
	}
}

func (r *Reconciler) recordFailure(ctx context.Context, invoices []PendingInvoice, reason string) {
	r.mu.Lock()
	for i := range r.queue {
		for _, failed := range invoices {
			if r.queue[i].InvoiceID == failed.InvoiceID {
				r.queue[i].SubmissionAttempts++
				r.queue[i].LastError = reason
			}
		}
	}
	snapshot := make([]PendingInvoice, len(r.queue))
	copy(snapshot, r.queue)
	r.mu.Unlock()

	for _, failed := range invoices {
		for _, entry := range snapshot {
			if entry.InvoiceID == failed.InvoiceID {
				if err := r.store.RecordAttempt(ctx, entry.InvoiceID, entry.SubmissionAttempts, entry.LastError); err != nil && r.logger != nil {
					r.logger.Warn("attempt bookkeeping not persisted",
						zap.String("invoiceId", entry.InvoiceID), zap.Error(err))
				}
			}
		}
	}
	if r.events != nil {
		for _, failed := range invoices {
			_ = r.events.Publish(ctx, "invoice.failed", map[string]any{
				"invoiceId": failed.InvoiceID,
				"error":     reason,
			})
		}
	}
}

// Start runs the retry schedule: a coarse timer plus a submission whenever
// connectivity comes back fully. Stop ends it; the scheduler holds no hidden
// timers beyond this loop.
func (r *Reconciler) Start(interval time.Duration, transitions <-chan netstatus.Status) {
	r.mu.Lock()
	if r.stopped != nil {
		close(r.stopped)
	}
	stop := make(chan struct{})
	r.stopped = stop
	r.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := r.SubmitAll(context.Background()); err != nil && r.logger != nil {
					r.logger.Warn("scheduled submission failed", zap.Error(err))
				}
			case status, ok := <-transitions:
				if !ok {
					return
				}
				if status.Status == netstatus.StatusFullyConnected && r.PendingCount() > 0 {
					if _, err := r.SubmitAll(context.Background()); err != nil && r.logger != nil {
						r.logger.Warn("reconnect submission failed", zap.Error(err))
					}
				}
			case <-stop:
				return
			}
		}
	}()
}

func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped != nil {
		close(r.stopped)
		r.stopped = nil
	}
}
