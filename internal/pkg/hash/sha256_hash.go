package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns the hex sha256 of data. Used as the identifier of
// images inserted without one.
func ContentHash(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}
