package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"luntera-pos-services/pkg/response"
)

func (h *Handler) SlotsList(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]any{
		"slots":      h.Carts.Slots(),
		"activeSlot": h.Carts.ActiveSlot(),
	})
}

func (h *Handler) SlotOpen(w http.ResponseWriter, r *http.Request) {
	slotID, err := readPathInt64(r, "slotId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Slot ID is required")
		return
	}

	opened, err := h.Carts.OpenSlot(r.Context(), slotID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{"cart": opened})
}

func (h *Handler) SlotClose(w http.ResponseWriter, r *http.Request) {
	slotID, err := readPathInt64(r, "slotId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Slot ID is required")
		return
	}

	if err := h.Carts.CloseSlot(slotID); err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{"slotId": slotID, "isOpen": false})
}

func (h *Handler) SlotActivate(w http.ResponseWriter, r *http.Request) {
	slotID, err := readPathInt64(r, "slotId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Slot ID is required")
		return
	}

	if err := h.Carts.SetActiveSlot(slotID); err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{"activeSlot": slotID})
}

func (h *Handler) SlotCartGet(w http.ResponseWriter, r *http.Request) {
	slotID, err := readPathInt64(r, "slotId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Slot ID is required")
		return
	}

	current, err := h.Carts.GetCart(slotID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{"cart": current})
}

type itemQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *Handler) SlotCartItemPut(w http.ResponseWriter, r *http.Request) {
	slotID, err := readPathInt64(r, "slotId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Slot ID is required")
		return
	}
	itemID := readPathString(r, "itemId")
	if itemID == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Item ID is required")
		return
	}

	var body itemQuantityRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	updated, err := h.Carts.UpdateItemQuantity(r.Context(), slotID, itemID, body.Quantity)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{"cart": updated})
}

func (h *Handler) SlotCartItemDelete(w http.ResponseWriter, r *http.Request) {
	slotID, err := readPathInt64(r, "slotId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Slot ID is required")
		return
	}
	itemID := readPathString(r, "itemId")
	if itemID == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Item ID is required")
		return
	}

	updated, err := h.Carts.RemoveItem(r.Context(), slotID, itemID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{"cart": updated})
}

func (h *Handler) SlotCartClear(w http.ResponseWriter, r *http.Request) {
	slotID, err := readPathInt64(r, "slotId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Slot ID is required")
		return
	}

	cleared, err := h.Carts.ClearCart(r.Context(), slotID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{"cart": cleared})
}

// SlotsRecover refetches every open slot from the cart service. Partial
// failures come back per slot so the UI can flag stale tables.
func (h *Handler) SlotsRecover(w http.ResponseWriter, r *http.Request) {
	recovered, failed := h.Carts.RecoverAll(r.Context())

	failures := make(map[int64]string, len(failed))
	for slotID, err := range failed {
		failures[slotID] = err.Error()
	}

	h.Logger.Info("slot recovery finished",
		zap.Int("recovered", len(recovered)),
		zap.Int("failed", len(failed)),
	)

	response.Success(w, map[string]any{
		"recovered": recovered,
		"failed":    failures,
	})
}
