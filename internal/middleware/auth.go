package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"luntera-pos-services/internal/auth"
)

type contextKey string

const staffContextKey contextKey = "staffContext"

type StaffContext struct {
	StaffID string
	Name    string
	Role    auth.StaffRole
}

func WithStaffContext(ctx context.Context, sc *StaffContext) context.Context {
	return context.WithValue(ctx, staffContextKey, sc)
}

func GetStaffContext(ctx context.Context) (*StaffContext, bool) {
	value := ctx.Value(staffContextKey)
	if value == nil {
		return nil, false
	}
	sc, ok := value.(*StaffContext)
	return sc, ok
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   "UNAUTHORIZED",
		"message": message,
	})
}

// StaffAuth verifies the terminal-issued token and checks the role
// against the permission guarding the requested route. Tokens are
// minted locally after a PIN check, so no backend round trip happens
// here and authentication keeps working while offline.
func StaffAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			claims, err := auth.VerifyAccessToken(token, jwtSecret)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			if perm := auth.GetPermissionForAPI(r.URL.Path, r.Method); perm != nil {
				if !auth.HasPermission(claims.Role, *perm) {
					writeAuthError(w, http.StatusForbidden, "You do not have permission to access this resource")
					return
				}
			}

			sc := &StaffContext{
				StaffID: claims.StaffID,
				Name:    claims.Name,
				Role:    claims.Role,
			}
			next.ServeHTTP(w, r.WithContext(WithStaffContext(r.Context(), sc)))
		})
	}
}
