package change

import (
	"net/http"

	"luntera-pos-services/internal/money"
)

// Denominations the drawer can pay out, in minor units, largest first. The
// greedy walk below is optimal for this set (each denomination divides into
// the combinations of the smaller ones).
var Denominations = []money.Cents{
	50000, 20000, 10000, 5000, 2000, 1000, 500, 200, 100, 50, 20, 10, 5, 2, 1,
}

type DenominationCount struct {
	Denomination money.Cents `json:"denomination"`
	Count        int64       `json:"count"`
}

type Result struct {
	Change    money.Cents         `json:"change"`
	Breakdown []DenominationCount `json:"breakdown"`
}

type Error struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *Error) Error() string     { return e.Message }
func (e *Error) ErrorCode() string { return e.Code }
func (e *Error) HTTPStatus() int   { return e.StatusCode }

func insufficientAmount() *Error {
	return &Error{
		Code:       "INSUFFICIENT_AMOUNT",
		Message:    "Tendered amount does not cover the total",
		StatusCode: http.StatusBadRequest,
	}
}

// Compute returns the change due and its minimal denomination breakdown.
// Pure: no clock, no I/O, no rounding beyond the integer inputs.
func Compute(total, tendered money.Cents) (Result, error) {
	if tendered < total {
		return Result{}, insufficientAmount()
	}

	remaining := tendered - total
	result := Result{Change: remaining, Breakdown: []DenominationCount{}}
	for _, denom := range Denominations {
		if remaining <= 0 {
			break
		}
		count := int64(remaining / denom)
		if count == 0 {
			continue
		}
		result.Breakdown = append(result.Breakdown, DenominationCount{Denomination: denom, Count: count})
		remaining -= denom * money.Cents(count)
	}
	return result, nil
}
