package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SnapshotKey is the cache key for an encoded graph snapshot at a
// given store revision.
func SnapshotKey(revision uint64) string {
	return fmt.Sprintf("snapshot:%d", revision)
}

// ExportKey is the cache key for a rendered export artifact at a given
// store revision.
func ExportKey(revision uint64, format string) string {
	return fmt.Sprintf("export:%d:%s", revision, format)
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
