package models

import (
	"strings"
	"unicode"
)

// TransferRequest represents an intent to move money between two accounts.
// The idempotency key identifies the intent across retries.
type TransferRequest struct {
	IdempotencyKey   string `json:"idempotencyKey" binding:"required"`
	FromAccount      string `json:"fromAccount" binding:"required"`
	ToAccount        string `json:"toAccount" binding:"required,nefield=FromAccount"`
	AmountMinorUnits int64  `json:"amountMinorUnits" binding:"required,gt=0"`
	Currency         string `json:"currency" binding:"required,len=3,alpha"`
}

// Normalize trims every string field and upper-cases the currency.
func (r TransferRequest) Normalize() TransferRequest {
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	r.FromAccount = strings.TrimSpace(r.FromAccount)
	r.ToAccount = strings.TrimSpace(r.ToAccount)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	return r
}

// Validate checks a normalized request. Requests that fail here never reach
// a TransferService.
func (r TransferRequest) Validate() error {
	switch {
	case r.IdempotencyKey == "":
		return ErrMissingIdempotencyKey
	case r.FromAccount == "" || r.ToAccount == "":
		return ErrMissingAccount
	case r.FromAccount == r.ToAccount:
		return ErrSameAccount
	case r.AmountMinorUnits <= 0:
		return ErrInvalidAmount
	case !isCurrencyCode(r.Currency):
		return ErrInvalidCurrency
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, c := range s {
		if c > unicode.MaxASCII || !unicode.IsLetter(c) {
			return false
		}
	}
	return true
}
