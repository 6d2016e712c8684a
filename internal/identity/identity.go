// Package identity derives the deterministic container name for a host
// directory. The name is a pure function of the canonicalized absolute
// path, so every invocation from the same directory addresses the same
// container and two different directories never collide in practice.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"dev/internal/domain"
)

// NamePrefix tags every managed container so list operations can filter
// out unrelated containers on the same host.
const NamePrefix = "dev-"

// suffixLen is the number of hex characters taken from the path hash.
// 48 bits keeps names short while making accidental collisions between
// project directories vanishingly unlikely.
const suffixLen = 12

// NameFor maps a host path to its container identity. Relative paths are
// made absolute against the current working directory first; the function
// itself is total and never fails.
func NameFor(path string) domain.ContainerIdentity {
	abs := path
	if !filepath.IsAbs(abs) {
		if a, err := filepath.Abs(abs); err == nil {
			abs = a
		}
	}
	abs = filepath.Clean(abs)

	sum := sha256.Sum256([]byte(abs))
	return domain.ContainerIdentity{
		Name:       NamePrefix + hex.EncodeToString(sum[:])[:suffixLen],
		SourcePath: abs,
	}
}
