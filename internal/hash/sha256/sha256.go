// Package sha256 provides content hashing for cache validators.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hasher implements scout.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// WeakETag renders a validator as a weak entity tag for conditional requests.
// Transformed proxy bodies are semantically, not byte-for-byte, equivalent to
// the origin's, so a weak tag is the honest choice.
func WeakETag(validator string) string {
	return fmt.Sprintf(`W/%q`, validator)
}

// ValidatorFromETag strips weak markers and quotes from an If-None-Match
// header value, recovering the validator it carries.
func ValidatorFromETag(etag string) string {
	v := etag
	if len(v) >= 2 && v[:2] == "W/" {
		v = v[2:]
	}
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return v
}
