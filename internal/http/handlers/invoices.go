package handlers

import (
	"net/http"
	"strconv"
	"time"

	"luntera-pos-services/pkg/response"
)

func (h *Handler) InvoicesList(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]any{
		"invoices":     h.Invoices.List(),
		"pendingCount": h.Invoices.PendingCount(),
	})
}

func (h *Handler) InvoicesSubmitAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.Invoices.SubmitAll(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, report)
}

// InvoicesArchiveList lists the object keys of invoices archived for one
// fiscal period. Defaults to the current month.
func (h *Handler) InvoicesArchiveList(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		response.Error(w, http.StatusServiceUnavailable, "ARCHIVE_DISABLED", "Invoice archiving is not configured on this terminal")
		return
	}

	now := time.Now().UTC()
	year, month := now.Year(), now.Month()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Year must be numeric")
			return
		}
		year = parsed
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Month must be between 1 and 12")
			return
		}
		month = time.Month(parsed)
	}

	keys, err := h.Archive.ListInvoiceKeys(r.Context(), year, month)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{
		"year":  year,
		"month": int(month),
		"keys":  keys,
	})
}

func (h *Handler) InvoiceRetry(w http.ResponseWriter, r *http.Request) {
	invoiceID := readPathString(r, "invoiceId")
	if invoiceID == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invoice ID is required")
		return
	}

	report, err := h.Invoices.Retry(r.Context(), invoiceID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, report)
}
