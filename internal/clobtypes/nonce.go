package clobtypes

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// NonceSize is the fixed big-endian byte width a Nonce is stored in.
const NonceSize = 32

// Nonce is a 32-byte big-endian integer. On the wire it accepts either a
// native JSON number (up to 64 bits, so clients on platforms without
// bignum JSON numbers can still send common values) or a decimal string,
// so that values beyond 2^53 can round-trip exactly. This mirrors the
// custom deserialization visitor the reference engine used for the same
// field, translated to Go's UnmarshalJSON hook instead of a serde Visitor.
type Nonce [NonceSize]byte

// NonceFromUint64 builds a Nonce from a native unsigned integer.
func NonceFromUint64(v uint64) Nonce {
	var n Nonce
	big.NewInt(0).SetUint64(v).FillBytes(n[:])
	return n
}

// NonceFromBigInt builds a Nonce from a non-negative integer of at most 256
// bits; a negative or wider value returns an error.
func NonceFromBigInt(v *big.Int) (Nonce, error) {
	var n Nonce
	if v.Sign() < 0 {
		return n, fmt.Errorf("nonce must be non-negative")
	}
	if v.BitLen() > NonceSize*8 {
		return n, fmt.Errorf("nonce exceeds %d bytes", NonceSize)
	}
	v.FillBytes(n[:])
	return n, nil
}

// Big returns the Nonce as a big.Int.
func (n Nonce) Big() *big.Int {
	return new(big.Int).SetBytes(n[:])
}

// Bytes returns the 32 big-endian bytes of the nonce.
func (n Nonce) Bytes() [NonceSize]byte { return n }

// String renders the nonce as a 0x-prefixed 32-byte hex string, matching
// spec.md section 6's wire serialization.
func (n Nonce) String() string {
	return "0x" + hexEncode(n[:])
}

// MarshalJSON always emits the 0x-prefixed 32-byte hex form.
func (n Nonce) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON accepts a JSON number, a decimal string, or a 0x-prefixed
// hex string, and normalizes all three to the 32-byte big-endian form.
func (n *Nonce) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	var v *big.Int
	switch t := raw.(type) {
	case json.Number:
		parsed, ok := new(big.Int).SetString(t.String(), 10)
		if !ok {
			return fmt.Errorf("nonce: invalid number %q", t.String())
		}
		v = parsed
	case string:
		s := t
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s = s[2:]
			base = 16
		}
		parsed, ok := new(big.Int).SetString(s, base)
		if !ok {
			return fmt.Errorf("nonce: invalid string %q", t)
		}
		v = parsed
	default:
		return fmt.Errorf("nonce: unsupported JSON type %T", raw)
	}

	converted, err := NonceFromBigInt(v)
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	*n = converted
	return nil
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}
