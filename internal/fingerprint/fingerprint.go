// Package fingerprint computes content fingerprints for duplicate detection.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the length of a fingerprint in hex characters.
const Size = 12

// Hash returns a deterministic fingerprint over the exact byte content of
// text. No normalization is applied: equal inputs always produce equal
// fingerprints, unequal inputs collide only with negligible probability.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:Size]
}
