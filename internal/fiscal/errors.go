package fiscal

import "net/http"

type ErrorCode string

const (
	ErrNotReady       ErrorCode = "NOT_READY"
	ErrBackend        ErrorCode = "FISCAL_BACKEND_ERROR"
	ErrNetwork        ErrorCode = "NETWORK_ERROR"
	ErrUnknownInvoice ErrorCode = "UNKNOWN_INVOICE"
)

type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string     { return e.Message }
func (e *Error) Unwrap() error     { return e.Cause }
func (e *Error) ErrorCode() string { return string(e.Code) }
func (e *Error) HTTPStatus() int   { return e.StatusCode }

func backendError(message string, cause error) *Error {
	return &Error{Code: ErrBackend, Message: message, StatusCode: http.StatusBadGateway, Cause: cause}
}

func networkError(message string, cause error) *Error {
	return &Error{Code: ErrNetwork, Message: message, StatusCode: http.StatusBadGateway, Cause: cause}
}
