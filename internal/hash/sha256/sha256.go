// Package sha256 digests downloaded image content so saved files can be
// matched against their source URL in the logs.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements download.Hasher using SHA-256. The downloader calls it
// once per written file and logs the result under the "sha256" field.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the lowercase hex digest of data. It never fails; the error
// return satisfies download.Hasher.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
