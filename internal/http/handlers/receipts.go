package handlers

import (
	"fmt"
	"net/http"

	"luntera-pos-services/internal/cart"
	"luntera-pos-services/internal/receipt"
	"luntera-pos-services/pkg/response"
)

func (h *Handler) ReceiptPDF(w http.ResponseWriter, r *http.Request) {
	sessionID := readPathString(r, "sessionId")

	session, err := h.Payments.Get(sessionID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	data := receipt.Data{
		VenueName:  h.Config.VenueName,
		TerminalID: h.Config.TerminalID,
		Session:    session,
		Cart:       h.cartByID(session.CartID),
	}
	if data.VenueName == "" {
		data.VenueName = h.Config.TerminalID
	}

	buf, err := receipt.Render(data)
	if err != nil {
		h.Logger.Error("receipt render failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate receipt")
		return
	}

	if h.Archive != nil {
		if url, err := h.Archive.ArchiveReceipt(r.Context(), session.SessionID, buf.Bytes()); err != nil {
			h.Logger.Warn("receipt archive failed", zapError(err))
		} else if url != "" {
			w.Header().Set("X-Receipt-Archive-Url", url)
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", receipt.Filename(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// cartByID walks the open slots for the cart a session was created from.
// Closed slots simply drop off the receipt; the totals on the session
// itself are authoritative either way.
func (h *Handler) cartByID(cartID string) *cart.Cart {
	if cartID == "" {
		return nil
	}
	for _, slot := range h.Carts.Slots() {
		if slot.CartID != cartID {
			continue
		}
		if snapshot, err := h.Carts.GetCart(slot.SlotID); err == nil {
			return snapshot
		}
	}
	return nil
}
