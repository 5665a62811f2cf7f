package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrKeyReused is returned when an idempotency key comes back with a different request.
var ErrKeyReused = errors.New("idempotency key reused with a different request")

// Key is a client supplied idempotency key plus a fingerprint of the request it guards.
// The zero Key disables idempotency.
type Key struct {
	Value       string
	Fingerprint string
}

func (k Key) Enabled() bool {
	return k.Value != ""
}

// Matches reports whether a stored fingerprint belongs to the same request. Rows written
// before fingerprints existed match anything.
func (k Key) Matches(stored string) bool {
	return stored == "" || k.Fingerprint == "" || stored == k.Fingerprint
}

// Fingerprint hashes the request fields that define a booking.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
