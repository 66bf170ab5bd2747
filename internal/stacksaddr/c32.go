// Package stacksaddr implements the Stacks "c32check" address encoding and
// SIP-018 structured-data hashing used by the /stacks/* wrapper endpoints.
//
// c32check is a base32 variant over the alphabet "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
// (digits 0-9 plus uppercase letters, excluding I, L, O, U to avoid visual
// ambiguity), applied to (version byte || payload || 4-byte checksum).
package stacksaddr

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
)

const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// AddressVersion identifies a Stacks address kind (network x account-type).
type AddressVersion byte

const (
	MainnetP2PKH AddressVersion = 22 // 'P'
	MainnetP2SH  AddressVersion = 20 // 'M'
	TestnetP2PKH AddressVersion = 26 // 'T'
	TestnetP2SH  AddressVersion = 21 // 'N'
)

var c32Index = func() map[byte]int {
	m := make(map[byte]int, len(c32Alphabet))
	for i := 0; i < len(c32Alphabet); i++ {
		m[c32Alphabet[i]] = i
	}
	return m
}()

// doubleSha256Checksum returns the first 4 bytes of sha256(sha256(version||payload)).
func doubleSha256Checksum(version AddressVersion, payload []byte) []byte {
	buf := make([]byte, 0, 1+len(payload))
	buf = append(buf, byte(version))
	buf = append(buf, payload...)
	first := sha256.Sum256(buf)
	second := sha256.Sum256(first[:])
	return second[:4]
}

// c32Encode base32-encodes data using the c32 alphabet, preserving leading
// zero bytes as leading '0' characters the way the reference c32check does.
func c32Encode(data []byte) string {
	leadingZeros := 0
	for _, b := range data {
		if b != 0 {
			break
		}
		leadingZeros++
	}

	n := new(big.Int).SetBytes(data)
	var out []byte
	base := big.NewInt(32)
	zero := big.NewInt(0)
	mod := new(big.Int)
	for n.Cmp(zero) > 0 {
		n.DivMod(n, base, mod)
		out = append(out, c32Alphabet[mod.Int64()])
	}
	// reverse
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	prefix := strings.Repeat(string(c32Alphabet[0]), leadingZeros)
	return prefix + string(out)
}

// c32Decode reverses c32Encode, returning the original byte slice of the
// given minimum length.
func c32Decode(s string, minLen int) ([]byte, error) {
	n := new(big.Int)
	base := big.NewInt(32)
	leadingZeros := 0
	seenNonZero := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		v, ok := c32Index[c]
		if !ok {
			return nil, fmt.Errorf("invalid c32 character: %q", c)
		}
		if v == 0 && !seenNonZero {
			leadingZeros++
		} else {
			seenNonZero = true
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(v)))
	}
	raw := n.Bytes()
	out := make([]byte, leadingZeros+len(raw))
	copy(out[leadingZeros:], raw)
	if minLen > 0 && len(out) < minLen {
		padded := make([]byte, minLen)
		copy(padded[minLen-len(out):], out)
		out = padded
	}
	return out, nil
}

// Encode renders a Stacks address for version and a 20-byte hash160 payload.
func Encode(version AddressVersion, hash160 []byte) (string, error) {
	if len(hash160) != 20 {
		return "", fmt.Errorf("stacks address payload must be 20 bytes, got %d", len(hash160))
	}
	checksum := doubleSha256Checksum(version, hash160)
	body := append(append([]byte{}, hash160...), checksum...)
	return "S" + string(c32Alphabet[version%32]) + c32Encode(body), nil
}

// Decode parses a Stacks c32check address into its version and 20-byte hash160.
func Decode(address string) (AddressVersion, []byte, error) {
	if len(address) < 6 || address[0] != 'S' {
		return 0, nil, fmt.Errorf("not a Stacks address: %q", address)
	}
	v, ok := c32Index[address[1]]
	if !ok {
		return 0, nil, fmt.Errorf("invalid version character in address %q", address)
	}
	version := AddressVersion(v)

	decoded, err := c32Decode(address[2:], 24)
	if err != nil {
		return 0, nil, fmt.Errorf("decoding address body: %w", err)
	}
	if len(decoded) != 24 {
		return 0, nil, fmt.Errorf("unexpected decoded length %d, want 24", len(decoded))
	}
	payload, checksum := decoded[:20], decoded[20:]
	want := doubleSha256Checksum(version, payload)
	for i := range want {
		if checksum[i] != want[i] {
			return 0, nil, fmt.Errorf("checksum mismatch for address %q", address)
		}
	}
	return version, payload, nil
}

// Valid reports whether address is a structurally valid c32check address.
func Valid(address string) bool {
	_, _, err := Decode(address)
	return err == nil
}
