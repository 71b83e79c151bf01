package models

import "errors"

// Error taxonomy shared by every money-moving component. Callers wrap these
// with fmt.Errorf("...: %w", err) and the command layer matches with errors.Is.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidState       = errors.New("invalid state")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrNotFound           = errors.New("not found")
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrTxConflict is returned when a serializable transaction keeps
	// conflicting after every retry attempt.
	ErrTxConflict = errors.New("transaction conflict, retry")

	ErrInvalidBet    = errors.New("invalid bet")
	ErrInvalidAmount = errors.New("invalid amount")
)
