package handlers

import (
	"net/http"
	"time"

	"luntera-pos-services/internal/auth"
	"luntera-pos-services/internal/directory"
	"luntera-pos-services/pkg/response"
)

// QuickSwitch returns the three directory lists in one payload. Lists
// that could not be fetched come back empty with an entry in errors.
func (h *Handler) QuickSwitch(w http.ResponseWriter, r *http.Request) {
	snapshot := h.Directory.Fetch(r.Context())

	// Hashes never leave the terminal.
	for i := range snapshot.Waiters {
		snapshot.Waiters[i].PINHash = ""
	}

	response.Success(w, snapshot)
}

type loginRequest struct {
	StaffID string `json:"staffId"`
	PIN     string `json:"pin"`
}

func (h *Handler) StaffLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if body.StaffID == "" || body.PIN == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Staff ID and PIN are required")
		return
	}

	waiters, err := h.Directory.ListWaiters(r.Context())
	if err != nil {
		h.Logger.Warn("staff list unavailable for login", zapError(err))
		response.Error(w, http.StatusServiceUnavailable, "DIRECTORY_UNAVAILABLE", "Staff directory is unreachable")
		return
	}

	var staff *directory.Waiter
	for i := range waiters {
		if waiters[i].ID == body.StaffID {
			staff = &waiters[i]
			break
		}
	}
	if staff == nil || !directory.VerifyPIN(staff.PINHash, body.PIN) {
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Staff ID or PIN is incorrect")
		return
	}

	role := auth.StaffRole(staff.Role)
	switch role {
	case auth.RoleWaiter, auth.RoleShiftManager, auth.RoleAdmin:
	default:
		role = auth.RoleWaiter
	}

	ttl := time.Duration(h.Config.JWTExpirySeconds) * time.Second
	token, err := auth.IssueAccessToken(staff.ID, staff.Name, role, h.Config.TerminalID, h.Config.JWTSecret, ttl)
	if err != nil {
		h.Logger.Error("token signing failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token")
		return
	}

	response.Success(w, map[string]any{
		"token": token,
		"staff": map[string]any{
			"id":   staff.ID,
			"name": staff.Name,
			"role": role,
		},
		"expiresIn": int64(ttl.Seconds()),
	})
}
