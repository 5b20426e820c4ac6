package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSeriesID computes a deterministic series_id using SHA256.
// Formula: SHA256(symbol|source)
// Returns hex-encoded hash (64 characters).
func ComputeSeriesID(symbol, source string) string {
	data := fmt.Sprintf("%s|%s", symbol, source)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
