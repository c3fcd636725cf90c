package fleettwin

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
)

// A CapabilityHash is a consistent hash (i.e., content address) over a
// capability set. Two capability sets with the same CapabilityHash contain
// exactly the same affordances, so the class table uses it to deduplicate
// classes on creation.
//
// The hash is independent of the order in which affordances were added to the
// set; affordances are digested in their sorted order.
//
// Note: Since fingerprints participate in the class-table dedup invariant, it
// is good design to guarantee the hashing here is stable as the software
// evolves.
type CapabilityHash [sha1.Size]byte

// Fingerprint digests the given capability set into a CapabilityHash.
//
// The empty set hashes to a well-defined (non-zero) value so that it remains
// distinguishable from a CapabilityHash that was never computed.
func Fingerprint(s CapabilitySet) CapabilityHash {
	h := sha1.New()
	// Sort lexicographically to achieve consistency regardless of map
	// iteration order.
	for _, a := range s.Sorted() {
		h.Write([]byte(a.Name))
		h.Write([]byte{0})
		h.Write([]byte(a.Kind))
		h.Write([]byte{0})
		h.Write([]byte(a.Type))
		h.Write([]byte{0})
	}
	return CapabilityHash(h.Sum(nil))
}

func (h CapabilityHash) MarshalText() ([]byte, error) {
	text := make([]byte, hex.EncodedLen(len(h)))
	hex.Encode(text, h[:]) // always returns hex.EncodedLen(len(h)) (see hex.Encode)
	return text, nil
}

func (h *CapabilityHash) UnmarshalText(text []byte) error {
	n, err := hex.Decode(h[:], text)
	if err != nil {
		return fmt.Errorf("decode hex: %w", err)
	}
	if n != len(h) { // always n <= len(h[:]) (see hex.Decode)
		return fmt.Errorf("not enough bytes: %w", io.ErrUnexpectedEOF)
	}
	return nil
}

func (h CapabilityHash) String() string {
	return "capability(" + hex.EncodeToString(h[:]) + ")"
}

// IsZero reports whether h is the zero value of the type.
func (h CapabilityHash) IsZero() bool {
	return h == CapabilityHash{}
}
