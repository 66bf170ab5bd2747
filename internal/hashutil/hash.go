// Package hashutil computes the on-chain-compatible hash primitives behind
// the /hashing/{algorithm} endpoints. Each function is referentially
// transparent: identical input bytes always produce identical output bytes.
package hashutil

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // ripemd160 is required for hash160/SIP-010 parity, not a general hash choice
)

// Algorithm identifies one of the supported hash primitives.
type Algorithm string

const (
	SHA256     Algorithm = "sha256"
	SHA512     Algorithm = "sha512"
	SHA512_256 Algorithm = "sha512-256"
	Keccak256  Algorithm = "keccak256"
	Hash160    Algorithm = "hash160"
	Ripemd160  Algorithm = "ripemd160"
)

// DisplayName returns the human-readable algorithm name used in API responses.
func (a Algorithm) DisplayName() string {
	switch a {
	case SHA256:
		return "SHA-256"
	case SHA512:
		return "SHA-512"
	case SHA512_256:
		return "SHA-512/256"
	case Keccak256:
		return "Keccak-256"
	case Hash160:
		return "HASH160"
	case Ripemd160:
		return "RIPEMD-160"
	default:
		return string(a)
	}
}

// Compute hashes data with alg, returning the raw digest bytes.
func Compute(alg Algorithm, data []byte) ([]byte, error) {
	switch alg {
	case SHA256:
		sum := sha256.Sum256(data)
		return sum[:], nil
	case SHA512:
		sum := sha512.Sum512(data)
		return sum[:], nil
	case SHA512_256:
		sum := sha512.Sum512_256(data)
		return sum[:], nil
	case Keccak256:
		return crypto.Keccak256(data), nil
	case Ripemd160:
		h := ripemd160.New()
		h.Write(data)
		return h.Sum(nil), nil
	case Hash160:
		sha := sha256.Sum256(data)
		h := ripemd160.New()
		h.Write(sha[:])
		return h.Sum(nil), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", alg)
	}
}

// Valid reports whether alg is one of the supported algorithms.
func Valid(alg string) bool {
	switch Algorithm(alg) {
	case SHA256, SHA512, SHA512_256, Keccak256, Hash160, Ripemd160:
		return true
	default:
		return false
	}
}
