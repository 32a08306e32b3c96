package identity

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"
)

const (
	keyVariantED25519 = 0x11
	checksumLength    = 4
)

// Address encodes a public key as a checksummed base58 string.
func Address(pub ed25519.PublicKey) string {
	buffer := append([]byte{keyVariantED25519}, pub...)
	checksum := sha3.Sum256(buffer)
	buffer = append(buffer, checksum[:checksumLength]...)
	return base58.Encode(buffer)
}

// ParseAddress decodes an address and verifies its checksum.
func ParseAddress(address string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != 1+ed25519.PublicKeySize+checksumLength {
		return nil, fmt.Errorf("address has %d bytes, want %d", len(raw), 1+ed25519.PublicKeySize+checksumLength)
	}
	if raw[0] != keyVariantED25519 {
		return nil, fmt.Errorf("unsupported key variant 0x%02x", raw[0])
	}
	body := raw[:1+ed25519.PublicKeySize]
	checksum := sha3.Sum256(body)
	if !bytes.Equal(checksum[:checksumLength], raw[len(body):]) {
		return nil, fmt.Errorf("address checksum mismatch")
	}
	return ed25519.PublicKey(append([]byte(nil), body[1:]...)), nil
}
