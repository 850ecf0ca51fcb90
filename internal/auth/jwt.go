package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type StaffRole string

const (
	RoleWaiter       StaffRole = "WAITER"
	RoleShiftManager StaffRole = "SHIFT_MANAGER"
	RoleAdmin        StaffRole = "ADMIN"
)

type Claims struct {
	StaffID    string    `json:"staffId"`
	TerminalID string    `json:"terminalId"`
	Role       StaffRole `json:"role"`
	Name       string    `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// IssueAccessToken signs a short-lived token for a staff member after a
// successful PIN check. The terminal is both issuer and sole audience.
func IssueAccessToken(staffID, name string, role StaffRole, terminalID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		StaffID:    staffID,
		TerminalID: terminalID,
		Role:       role,
		Name:       name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    terminalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseBearerToken(authHeader string) string {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func VerifyAccessToken(tokenString string, secret string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token required")
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, errors.New("token expired")
	}
	return claims, nil
}
