// Package iphash turns caller IP addresses into keyed, non-reversible
// identifiers so analytics can count distinct callers without storing
// addresses.
package iphash

import (
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// Hasher computes keyed BLAKE2b-256 digests.
type Hasher struct {
	key []byte
}

// New returns a Hasher. The key must be 1 to 64 bytes.
func New(key []byte) (*Hasher, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, errors.New("iphash: key must be between 1 and 64 bytes")
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Hasher{key: k}, nil
}

// Hash returns the hex digest of ip, or "" for an empty ip.
func (h *Hasher) Hash(ip string) string {
	if ip == "" {
		return ""
	}
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// unreachable: key length checked in New
		return ""
	}
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))
}
