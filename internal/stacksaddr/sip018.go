package stacksaddr

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/umbra-labs/x402-gateway/internal/hashutil"
)

// sip018Prefix is the fixed magic bytes SIP-018 prepends to every
// structured-data hash, mirroring Clarity's "SIP018" domain separator.
var sip018Prefix = []byte{0x53, 0x49, 0x50, 0x30, 0x31, 0x38}

// Domain is the SIP-018 signing domain (name, version, chain id).
type Domain struct {
	Name    string
	Version string
	ChainID uint32
}

func (d Domain) hash() []byte {
	buf := make([]byte, 0, len(d.Name)+len(d.Version)+4)
	buf = append(buf, []byte(d.Name)...)
	buf = append(buf, []byte(d.Version)...)
	var chainID [4]byte
	binary.BigEndian.PutUint32(chainID[:], d.ChainID)
	buf = append(buf, chainID[:]...)
	sum := sha256.Sum256(buf)
	return sum[:]
}

// StructuredDataHash computes the SIP-018 digest for message signed under domain.
func StructuredDataHash(domain Domain, message []byte) []byte {
	domainHash := domain.hash()
	messageHash := sha256.Sum256(message)
	buf := make([]byte, 0, len(sip018Prefix)+len(domainHash)+len(messageHash))
	buf = append(buf, sip018Prefix...)
	buf = append(buf, domainHash...)
	buf = append(buf, messageHash[:]...)
	sum := sha256.Sum256(buf)
	return sum[:]
}

// VerifyMessageSignature recovers the signer of a 65-byte recoverable
// secp256k1 signature over digest and reports whether it matches expected
// (a 20-byte hash160, as embedded in a Stacks address).
func VerifyMessageSignature(digest, sig, expectedHash160 []byte) (bool, error) {
	if len(sig) != 65 {
		return false, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	normalized := append([]byte{}, sig...)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return false, fmt.Errorf("recovering public key: %w", err)
	}
	compressed := crypto.CompressPubkey(pub)
	h160, err := hashutil.Compute(hashutil.Hash160, compressed)
	if err != nil {
		return false, err
	}
	if len(h160) != len(expectedHash160) {
		return false, nil
	}
	for i := range h160 {
		if h160[i] != expectedHash160[i] {
			return false, nil
		}
	}
	return true, nil
}
