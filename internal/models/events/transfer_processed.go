package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
)

// minorUnitExponent converts minor units to major units for display.
const minorUnitExponent = -2

type TransferProcessed struct {
	EventID          string          `json:"event_id"`
	TransferID       string          `json:"transfer_id"`
	FromAccount      string          `json:"from_account"`
	ToAccount        string          `json:"to_account"`
	Status           string          `json:"status"`
	AmountMinorUnits int64           `json:"amount_minor_units"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	FromBalanceAfter int64           `json:"from_balance_after"`
	ToBalanceAfter   int64           `json:"to_balance_after"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

// NewTransferProcessed builds the event for a freshly executed transfer.
func NewTransferProcessed(req models.TransferRequest, out models.TransferOutcome, at time.Time) TransferProcessed {
	return TransferProcessed{
		EventID:          uuid.NewString(),
		TransferID:       out.TransferID,
		FromAccount:      req.FromAccount,
		ToAccount:        req.ToAccount,
		Status:           string(out.Status),
		AmountMinorUnits: out.AmountMinorUnits,
		Amount:           decimal.New(out.AmountMinorUnits, minorUnitExponent),
		Currency:         req.Currency,
		FromBalanceAfter: out.FromBalanceAfter,
		ToBalanceAfter:   out.ToBalanceAfter,
		OccurredAt:       at.UTC(),
	}
}
