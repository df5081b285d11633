package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fatflowers/pointsledger/pkg/response"
	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want response.APIResponseCode
	}{
		{name: "nil", err: nil, want: response.APIResponseCodeOK},
		{name: "validation", err: fmt.Errorf("amount must be non-zero: %w", ErrValidation), want: response.APIResponseCodeBadRequest},
		{name: "signature", err: ErrSignature, want: response.APIResponseCodeBadRequest},
		{name: "not found", err: fmt.Errorf("user u1: %w", ErrNotFound), want: response.APIResponseCodeNotFound},
		{name: "insufficient", err: fmt.Errorf("wrapped: %w", fmt.Errorf("debit: %w", ErrInsufficientBalance)), want: response.APIResponseCodeConflict},
		{name: "already applied", err: ErrAlreadyApplied, want: response.APIResponseCodeConflict},
		{name: "persistence", err: fmt.Errorf("%w: boom", ErrPersistence), want: response.APIResponseCodeError},
		{name: "unknown", err: errors.New("boom"), want: response.APIResponseCodeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestIsClientError(t *testing.T) {
	require.True(t, IsClientError(ErrValidation))
	require.True(t, IsClientError(ErrNotFound))
	require.False(t, IsClientError(ErrPersistence))
	require.False(t, IsClientError(nil))
}
