package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateFilters(t *testing.T) {
	allowed := []string{"user_id", "type", "created_at"}

	require.NoError(t, ValidateFilters(nil, allowed))
	require.NoError(t, ValidateFilters([]*CommonFilter{
		{Field: "user_id", Operator: CommonFilterOperatorEq, Values: []any{"u1"}},
		{Field: "created_at", Operator: CommonFilterOperatorRange, Values: []any{"2026-01-01", "2026-02-01"}},
	}, allowed))

	err := ValidateFilters([]*CommonFilter{{Field: "amount; drop table x", Operator: CommonFilterOperatorEq}}, allowed)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not allowed")

	err = ValidateFilters([]*CommonFilter{{Field: "type", Operator: "like"}}, allowed)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported filter operator")

	require.Error(t, ValidateFilters([]*CommonFilter{nil}, allowed))
}
