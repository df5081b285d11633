package apperr

import (
	"errors"

	"github.com/fatflowers/pointsledger/pkg/response"
)

// Sentinel errors shared by services and handlers. Wrap them with
// fmt.Errorf("...: %w", ErrX) and match with errors.Is.
var (
	// ErrValidation marks malformed input (missing fields, zero amount, unknown type).
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a referenced user, subscription or plan that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPersistence marks a failed store transaction. Mutations are transactional,
	// so callers may retry.
	ErrPersistence = errors.New("persistence error")
	// ErrInsufficientBalance is returned by debits that would take a balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrAlreadyApplied is returned when an idempotency key was already consumed.
	ErrAlreadyApplied = errors.New("already applied")
	// ErrSignature marks a payment payload that failed signature verification.
	ErrSignature = errors.New("invalid signature")
)

// Code maps an error to the API envelope code.
func Code(err error) response.APIResponseCode {
	switch {
	case err == nil:
		return response.APIResponseCodeOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSignature):
		return response.APIResponseCodeBadRequest
	case errors.Is(err, ErrNotFound):
		return response.APIResponseCodeNotFound
	case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrAlreadyApplied):
		return response.APIResponseCodeConflict
	default:
		return response.APIResponseCodeError
	}
}

// IsClientError reports whether err was caused by the caller rather than by
// the service or its store.
func IsClientError(err error) bool {
	c := Code(err)
	return c != response.APIResponseCodeOK && c != response.APIResponseCodeError
}
