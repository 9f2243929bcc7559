package models

// TransferStatus is the terminal state of a processed transfer.
type TransferStatus string

const (
	StatusCompleted               TransferStatus = "COMPLETED"
	StatusFailedInsufficientFunds TransferStatus = "FAILED_INSUFFICIENT_FUNDS"
)

const (
	MessageCompleted         = "transfer completed"
	MessageInsufficientFunds = "insufficient funds"
)

// TransferOutcome is the result of a transfer. It doubles as the audit row
// of the durable strategy and is never mutated once produced.
type TransferOutcome struct {
	TransferID       string         `json:"transferId"` // equal to the idempotency key
	Status           TransferStatus `json:"status"`
	Message          string         `json:"message"`
	ProcessingMicros int64          `json:"processingMicros"`
	FromBalanceAfter int64          `json:"fromBalanceAfter"`
	ToBalanceAfter   int64          `json:"toBalanceAfter"`
	AmountMinorUnits int64          `json:"amountMinorUnits"`
}

// Completed reports whether money actually moved.
func (o TransferOutcome) Completed() bool {
	return o.Status == StatusCompleted
}

// ParseTransferStatus converts a persisted status back to its typed form.
func ParseTransferStatus(s string) (TransferStatus, error) {
	switch TransferStatus(s) {
	case StatusCompleted, StatusFailedInsufficientFunds:
		return TransferStatus(s), nil
	}
	return "", ErrUnknownStatus
}
