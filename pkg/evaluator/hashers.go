package evaluator

import (
	"encoding/hex"
	"fmt"

	"github.com/segmentio/fasthash/fnv1a"
	"github.com/zeebo/blake3"
)

// Hasher computes the content hash stored by seal and checked by verify.
// It must be deterministic.
type Hasher func(data []byte) string

// Blake3Hasher is the default hasher: hex-encoded BLAKE3-256.
func Blake3Hasher(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FNVHasher is a fast non-cryptographic alternative: 64-bit FNV-1a in hex.
func FNVHasher(data []byte) string {
	return fmt.Sprintf("%016x", fnv1a.HashBytes64(data))
}

// HasherByName resolves "blake3" or "fnv".
func HasherByName(name string) (Hasher, bool) {
	switch name {
	case "", "blake3":
		return Blake3Hasher, true
	case "fnv", "fnv1a":
		return FNVHasher, true
	default:
		return nil, false
	}
}
