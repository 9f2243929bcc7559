package models

import "errors"

// ErrInvalidRequest is wrapped by every request validation error.
var ErrInvalidRequest = errors.New("invalid transfer request")

var (
	ErrMissingIdempotencyKey = invalid("idempotencyKey is required")
	ErrMissingAccount        = invalid("fromAccount and toAccount are required")
	ErrSameAccount           = invalid("fromAccount and toAccount must differ")
	ErrInvalidAmount         = invalid("amountMinorUnits must be greater than zero")
	ErrInvalidCurrency       = invalid("currency must be a 3-letter ISO-4217 code")
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrTransferNotFound  = errors.New("transfer not found")
	ErrDuplicateTransfer = errors.New("transfer already recorded for idempotency key")
	ErrUnknownStatus     = errors.New("unknown transfer status")
)

type validationError struct{ msg string }

func invalid(msg string) error { return &validationError{msg: msg} }

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrInvalidRequest }

// ErrTxConflict marks a storage transaction aborted by a serialization
// failure or deadlock. Such transactions may be retried.
var ErrTxConflict = errors.New("storage transaction conflict")
