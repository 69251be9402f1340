package apperr

import "errors"

// Sentinel errors raised by the coordinator services. Callers classify with
// errors.Is after unwrapping.
var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conditional write lost the race")
	ErrInvalidTransition = errors.New("operation not legal from current state")
	ErrAlreadySettled    = errors.New("order already settled")
	ErrMissingProof      = errors.New("payment proof required for promptpay")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrTokenNotFound     = errors.New("session token not found")
	ErrTokenExpired      = errors.New("session token expired")
)
