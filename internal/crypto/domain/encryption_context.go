package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"maps"
	"math"
	"slices"
)

// EncryptionContext is non-secret associated data bound to a ciphertext. It is
// authenticated together with the ciphertext, so decrypting under a different context
// fails. Keys and values are plain strings; the canonical form sorts keys.
type EncryptionContext map[string]string

// Canonical returns the deterministic binary form of the context:
//
//	[pairs:2]([keyLen:2][key][valueLen:2][value])*
//
// with pairs sorted by key.
func (c EncryptionContext) Canonical() ([]byte, error) {
	if len(c) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: too many encryption context entries", ErrMalformedEnvelope)
	}

	buf := binary.BigEndian.AppendUint16(nil, uint16(len(c)))
	for _, k := range slices.Sorted(maps.Keys(c)) {
		v := c[k]
		if len(k) > math.MaxUint16 || len(v) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: encryption context entry %q too long", ErrMalformedEnvelope, k)
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(k)))
		buf = append(buf, k...)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(v)))
		buf = append(buf, v...)
	}
	return buf, nil
}

// DigestSize is the length of a context digest.
const DigestSize = sha256.Size

// Digest returns the SHA-256 of the canonical form. Envelopes record the digest rather
// than the context itself, so their size does not depend on the context values.
func (c EncryptionContext) Digest() ([]byte, error) {
	canonical, err := c.Canonical()
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(canonical)
	return sum[:], nil
}
