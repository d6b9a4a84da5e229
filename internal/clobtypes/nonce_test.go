package clobtypes

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestNonceFromUint64(t *testing.T) {
	n := NonceFromUint64(12)
	if n.Big().Uint64() != 12 {
		t.Errorf("Big() = %s, want 12", n.Big())
	}
	if got := n.String(); len(got) != 2+NonceSize*2 {
		t.Errorf("String() length = %d, want %d (0x + %d hex digits)", len(got), 2+NonceSize*2, NonceSize*2)
	}
}

func TestNonceFromBigIntRejectsNegative(t *testing.T) {
	if _, err := NonceFromBigInt(big.NewInt(-1)); err == nil {
		t.Fatal("expected error for negative nonce")
	}
}

func TestNonceFromBigIntRejectsOversize(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 257)
	if _, err := NonceFromBigInt(huge); err == nil {
		t.Fatal("expected error for nonce exceeding 256 bits")
	}
}

func TestNonceUnmarshalJSON(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  uint64
	}{
		{"number", `12`, 12},
		{"decimal string", `"12"`, 12},
		{"hex string", `"0xc"`, 12},
		{"hex string uppercase prefix", `"0XC"`, 12},
		{"zero", `0`, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var n Nonce
			if err := json.Unmarshal([]byte(c.input), &n); err != nil {
				t.Fatalf("Unmarshal(%s) error: %v", c.input, err)
			}
			if n.Big().Uint64() != c.want {
				t.Errorf("Unmarshal(%s) = %s, want %d", c.input, n.Big(), c.want)
			}
		})
	}
}

func TestNonceUnmarshalJSONRejectsNegative(t *testing.T) {
	var n Nonce
	if err := json.Unmarshal([]byte(`-1`), &n); err == nil {
		t.Fatal("expected error for negative nonce")
	}
}

func TestNonceRoundTrip(t *testing.T) {
	original := NonceFromUint64(1234567890)
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded Nonce
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip mismatch: got %s, want %s", decoded, original)
	}
}
