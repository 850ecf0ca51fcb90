package cart

import "net/http"

type ErrorCode string

const (
	ErrSlotOutOfRange ErrorCode = "SLOT_OUT_OF_RANGE"
	ErrSlotClosed     ErrorCode = "SLOT_CLOSED"
	ErrCartInUse      ErrorCode = "CART_IN_USE"
	ErrCartSync       ErrorCode = "CART_SYNC_ERROR"
)

type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) ErrorCode() string {
	return string(e.Code)
}

func (e *Error) HTTPStatus() int {
	return e.StatusCode
}

func validationError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, StatusCode: http.StatusBadRequest}
}

// syncError wraps a failed remote mutation. The local cache is guaranteed to
// be untouched when a caller sees this; they must re-fetch before retrying.
func syncError(message string, cause error) *Error {
	return &Error{Code: ErrCartSync, Message: message, StatusCode: http.StatusBadGateway, Cause: cause}
}
