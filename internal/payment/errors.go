package payment

import "net/http"

type ErrorCode string

const (
	ErrInvalidTotal           ErrorCode = "INVALID_TOTAL"
	ErrInvalidMethod          ErrorCode = "INVALID_METHOD"
	ErrInvalidAmount          ErrorCode = "INVALID_AMOUNT"
	ErrSessionNotFound        ErrorCode = "SESSION_NOT_FOUND"
	ErrInvalidState           ErrorCode = "INVALID_STATE"
	ErrInsufficientAllocation ErrorCode = "INSUFFICIENT_ALLOCATION"
	ErrConcurrency            ErrorCode = "CONCURRENCY_ERROR"
	ErrAlreadyCompleted       ErrorCode = "ALREADY_COMPLETED"
	ErrNetwork                ErrorCode = "NETWORK_ERROR"
	ErrRejected               ErrorCode = "PAYMENT_REJECTED"
	ErrPartialFailure         ErrorCode = "PARTIAL_FAILURE"
)

type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Cause      error

	// SettledMethods is filled on PARTIAL_FAILURE so the UI can tell staff
	// which money has already been taken and must not be collected again.
	SettledMethods []Method
}

func (e *Error) Error() string     { return e.Message }
func (e *Error) Unwrap() error     { return e.Cause }
func (e *Error) ErrorCode() string { return string(e.Code) }
func (e *Error) HTTPStatus() int   { return e.StatusCode }

func validationError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, StatusCode: http.StatusBadRequest}
}

func concurrencyError(message string) *Error {
	return &Error{Code: ErrConcurrency, Message: message, StatusCode: http.StatusConflict}
}

func alreadyCompleted() *Error {
	return &Error{Code: ErrAlreadyCompleted, Message: "Session is already confirmed", StatusCode: http.StatusConflict}
}

func networkError(message string, cause error) *Error {
	return &Error{Code: ErrNetwork, Message: message, StatusCode: http.StatusBadGateway, Cause: cause}
}
