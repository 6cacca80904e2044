package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint is the SHA-256 digest of a canonical RenderRequest.
type Fingerprint [sha256.Size]byte

// String returns the lowercase hex digest.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}
