package netstatus

import "time"

type Level string

const (
	StatusDisconnected   Level = "DISCONNECTED"
	StatusInternetOnly   Level = "INTERNET_ONLY"
	StatusFullyConnected Level = "FULLY_CONNECTED"
)

// Status is derived fresh on every probe and never persisted.
type Status struct {
	IsInternetAvailable      bool      `json:"isInternetAvailable"`
	IsFiscalBackendAvailable bool      `json:"isFiscalBackendAvailable"`
	Status                   Level     `json:"status"`
	CanProcessInvoices       bool      `json:"canProcessInvoices"`
	CanSubmitToFiscalBackend bool      `json:"canSubmitToFiscalBackend"`
	LastChecked              time.Time `json:"lastChecked"`
}

// Derive computes the tri-state status from the two raw probe booleans.
func Derive(internet, fiscal bool, checkedAt time.Time) Status {
	level := StatusDisconnected
	switch {
	case internet && fiscal:
		level = StatusFullyConnected
	case internet:
		level = StatusInternetOnly
	}
	return Status{
		IsInternetAvailable:      internet,
		IsFiscalBackendAvailable: fiscal,
		Status:                   level,
		CanProcessInvoices:       internet && fiscal,
		CanSubmitToFiscalBackend: internet && fiscal,
		LastChecked:              checkedAt,
	}
}
