package tool

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUIDV7 returns a time-ordered UUID string used for primary keys.
func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ScopedKey joins a scope and an external id into an idempotency key,
// e.g. ScopedKey("stripe", "evt_1") == "stripe:evt_1".
func ScopedKey(scope, id string) string {
	return scope + ":" + strings.TrimSpace(id)
}
