package clobcrypto

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/uhyunpark/ddxclob/internal/clobtypes"
)

// ChecksumAddress computes the EIP-55 checksummed hex form of an address,
// for display purposes only. The wire format used by spec.md section 6 is
// plain lowercase hex; this is never used for comparisons or hashing.
func ChecksumAddress(addr clobtypes.Address) string {
	hexaddr := hex.EncodeToString(addr.Bytes())

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(hexaddr))
	hash := h.Sum(nil)

	out := make([]byte, 2+len(hexaddr))
	copy(out, []byte("0x"))
	for i, c := range []byte(hexaddr) {
		if c >= '0' && c <= '9' {
			out[2+i] = c
			continue
		}
		var nibble byte
		if i%2 == 0 {
			nibble = (hash[i>>1] >> 4) & 0x0f
		} else {
			nibble = hash[i>>1] & 0x0f
		}
		if nibble >= 8 {
			out[2+i] = byte(strings.ToUpper(string(c))[0])
		} else {
			out[2+i] = c
		}
	}
	return string(out)
}
