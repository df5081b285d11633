package tool

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUIDV7(t *testing.T) {
	a := GenerateUUIDV7()
	b := GenerateUUIDV7()
	require.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), parsed.Version())
}

func TestScopedKey(t *testing.T) {
	require.Equal(t, "stripe:evt_1", ScopedKey("stripe", "evt_1"))
	require.Equal(t, "download:ord-9", ScopedKey("download", " ord-9 "))
}
