package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash returns the hex SHA-256 of s.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Key derives a stable identifier from parts joined with ':'.
// Used as message id for deduplication of broker deliveries.
func Key(parts ...string) string {
	return Hash(strings.Join(parts, ":"))
}
