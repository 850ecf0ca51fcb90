package handlers

import (
	"net/http"

	"luntera-pos-services/internal/change"
	"luntera-pos-services/internal/middleware"
	"luntera-pos-services/internal/money"
	"luntera-pos-services/internal/payment"
	"luntera-pos-services/pkg/response"
)

type paymentCreateRequest struct {
	CartID      string  `json:"cartId"`
	TotalAmount float64 `json:"totalAmount"`
}

func (h *Handler) PaymentCreate(w http.ResponseWriter, r *http.Request) {
	var body paymentCreateRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	session, err := h.Payments.Create(r.Context(), body.CartID, money.FromDecimal(body.TotalAmount))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{"session": session})
}

func (h *Handler) PaymentGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.Payments.Get(readPathString(r, "sessionId"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{"session": session})
}

type paymentAllocateRequest struct {
	Method         string  `json:"method"`
	Amount         float64 `json:"amount"`
	TenderedAmount float64 `json:"tenderedAmount,omitempty"`
}

func (h *Handler) PaymentAllocate(w http.ResponseWriter, r *http.Request) {
	sessionID := readPathString(r, "sessionId")

	var body paymentAllocateRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	method, ok := payment.ParseMethod(body.Method)
	if !ok {
		response.Error(w, http.StatusBadRequest, "INVALID_METHOD", "Unknown payment method")
		return
	}

	session, err := h.Payments.Allocate(sessionID, method,
		money.FromDecimal(body.Amount), money.FromDecimal(body.TenderedAmount))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{"session": session})
}

func (h *Handler) PaymentConfirm(w http.ResponseWriter, r *http.Request) {
	sessionID := readPathString(r, "sessionId")

	session, err := h.Payments.Confirm(r.Context(), sessionID)
	if err != nil {
		h.Logger.Warn("payment confirm failed", zapError(err))
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]any{"session": session})
}

type paymentCancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) PaymentCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := readPathString(r, "sessionId")

	var body paymentCancelRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	cancelledBy := "operator"
	if sc, ok := middleware.GetStaffContext(r.Context()); ok {
		cancelledBy = sc.StaffID
	}

	result, err := h.Payments.Cancel(r.Context(), sessionID, cancelledBy, body.Reason)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, result)
}

type changeComputeRequest struct {
	TotalAmount    float64 `json:"totalAmount"`
	TenderedAmount float64 `json:"tenderedAmount"`
}

func (h *Handler) ChangeCompute(w http.ResponseWriter, r *http.Request) {
	var body changeComputeRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	result, err := change.Compute(money.FromDecimal(body.TotalAmount), money.FromDecimal(body.TenderedAmount))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, result)
}
