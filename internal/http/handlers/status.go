package handlers

import (
	"net/http"

	"luntera-pos-services/pkg/response"
)

func (h *Handler) StatusGet(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]any{
		"network":         h.Monitor.Current(),
		"pendingInvoices": h.Invoices.PendingCount(),
	})
}

// StatusProbe forces a fresh probe instead of returning the cached status.
func (h *Handler) StatusProbe(w http.ResponseWriter, r *http.Request) {
	status := h.Monitor.ProbeNow(r.Context())
	response.Success(w, map[string]any{
		"network":         status,
		"pendingInvoices": h.Invoices.PendingCount(),
	})
}
