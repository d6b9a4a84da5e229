// Package clobcrypto implements the structured-data (EIP-712-compatible)
// digest used to name orders, plus an EIP-55 checksum address formatter.
// The hasher is a pure function: it depends only on {amount, nonce, price,
// side, traderAddress} and never on timestamp.
package clobcrypto

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/ddxclob/internal/clobtypes"
)

// typeHashDomain and typeHashOrder are the EIP-712 type hashes of the domain
// and order structs, e.g.
// type_hash_domain = keccak256("EIP712Domain(string name,string version)").
var (
	typeHashDomain = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version)"))
	typeHashOrder  = crypto.Keccak256Hash([]byte(
		"Order(uint256 amount,uint256 nonce,uint256 price,uint8 side,address traderAddress)"))
)

// Domain names the EIP-712 domain separator inputs.
type Domain struct {
	Name    string
	Version string
}

// DefaultDomain is the domain every order in this engine hashes under.
var DefaultDomain = Domain{Name: "DDX take-home", Version: "0.1.0"}

// OrderHasher computes the canonical 32-byte digest of an order under a
// fixed domain. It deliberately builds the EIP-712 encoding by hand
// (rather than going through go-ethereum's apitypes.TypedData.HashStruct)
// so the Decimal-to-uint256 encoding rule is explicit and auditable in one
// place instead of implicit inside a generic ABI encoder.
type OrderHasher struct {
	domainHash common.Hash
}

// NewOrderHasher builds a hasher for an explicit domain. Most callers want
// NewDefaultOrderHasher.
func NewOrderHasher(d Domain) *OrderHasher {
	return &OrderHasher{domainHash: hashDomain(d)}
}

// NewDefaultOrderHasher builds a hasher under DefaultDomain.
func NewDefaultOrderHasher() *OrderHasher {
	return NewOrderHasher(DefaultDomain)
}

func hashDomain(d Domain) common.Hash {
	nameHash := crypto.Keccak256Hash([]byte(d.Name))
	versionHash := crypto.Keccak256Hash([]byte(d.Version))
	return crypto.Keccak256Hash(
		typeHashDomain.Bytes(),
		nameHash.Bytes(),
		versionHash.Bytes(),
	)
}

// Hash computes keccak256(0x19 || 0x01 || domain_hash || struct_hash(order)).
func (h *OrderHasher) Hash(o clobtypes.Order) common.Hash {
	structHash := h.hashStruct(o)
	buf := make([]byte, 0, 2+32+32)
	buf = append(buf, 0x19, 0x01)
	buf = append(buf, h.domainHash.Bytes()...)
	buf = append(buf, structHash.Bytes()...)
	return crypto.Keccak256Hash(buf)
}

func (h *OrderHasher) hashStruct(o clobtypes.Order) common.Hash {
	amount := decimalToUint256Bytes(o.Amount)
	nonce := o.Nonce.Bytes()
	price := decimalToUint256Bytes(o.Price)
	side := leftPadTo32(byte(o.Side))
	trader := leftPadAddress(o.TraderAddress)

	return crypto.Keccak256Hash(
		typeHashOrder.Bytes(),
		amount,
		nonce[:],
		price,
		side,
		trader,
	)
}

// decimalToUint256Bytes encodes a Decimal as 32 big-endian bytes using its
// unscaled integer coefficient at its native scale: the digit sequence of
// the decimal as it was parsed, with any decimal point removed and trailing
// zeros kept, e.g. "1234" and "12.50" encode as the integers 1234 and 1250
// respectively. This is the rule spec.md section 9 requires implementers
// to pick and document; it was verified against the cryptographic test
// vector in spec.md section 8 (amount "1234", price "5432" hash to the
// documented digest using exactly this rule, not a fixed-18-decimal
// rescaling).
func decimalToUint256Bytes(d decimal.Decimal) []byte {
	coeff := new(big.Int).Abs(d.Coefficient())
	var out [32]byte
	coeff.FillBytes(out[:])
	return out[:]
}

func leftPadTo32(b byte) []byte {
	var out [32]byte
	out[31] = b
	return out[:]
}

func leftPadAddress(addr common.Address) []byte {
	var out [32]byte
	copy(out[12:], addr.Bytes())
	return out[:]
}
