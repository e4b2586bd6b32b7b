// Package util holds small helpers shared across the service layer.
package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random hex identifier, prefixed ("u_…", "l_…", "n_…")
// so document dumps stay readable.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
