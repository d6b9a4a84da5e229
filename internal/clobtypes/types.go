// Package clobtypes holds the wire-level data model shared by the ledger,
// order book, and engine facade: addresses, hashes, sides, nonces, orders,
// fills, accounts, and L2 snapshots.
package clobtypes

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Address is a 20-byte trader identifier, wire-encoded as 0x-prefixed
// lowercase hex.
type Address = common.Address

// Hash is a 32-byte identifier, wire-encoded as 0x-prefixed lowercase hex.
// Order hashes are produced by the structured hasher; they double as the
// order's canonical ID everywhere in this module.
type Hash = common.Hash

// Asset distinguishes the two legs of the DDX/USD market.
type Asset int8

const (
	DDX Asset = iota
	USD
)

func (a Asset) String() string {
	if a == DDX {
		return "DDX"
	}
	return "USD"
}

// Side is the resting/incoming direction of an order. Wire-encoded as 0
// (Bid) or 1 (Ask), matching spec.md's Structured Hasher field encoding.
type Side uint8

const (
	Bid Side = 0
	Ask Side = 1
)

func (s Side) String() string {
	if s == Bid {
		return "Bid"
	}
	return "Ask"
}

func (s Side) Valid() bool { return s == Bid || s == Ask }

// Struck is the asset a side of this direction gives up when it trades:
// a Bid pays USD and receives DDX, an Ask pays DDX and receives USD.
func (s Side) Struck() Asset {
	if s == Bid {
		return USD
	}
	return DDX
}

// Counter is the asset a side of this direction receives.
func (s Side) Counter() Asset {
	if s == Bid {
		return DDX
	}
	return USD
}

// Order is a single resting or incoming limit order. TraderAddress, Nonce,
// Price, Amount, and Side are exactly the fields the structured hasher
// digests; Timestamp is assigned by the engine at admission and is not a
// hashed field (spec.md section 4.1).
type Order struct {
	Amount        decimal.Decimal `json:"amount"`
	Price         decimal.Decimal `json:"price"`
	Side          Side            `json:"side"`
	TraderAddress Address         `json:"traderAddress"`
	Nonce         Nonce           `json:"nonce"`
	Timestamp     uint64          `json:"timestamp"`
	Hash          Hash            `json:"hash"`
}

// Fill records one match produced by a single submission. The execution
// price is always the maker's resting price.
type Fill struct {
	MakerHash  Hash            `json:"makerHash"`
	TakerHash  Hash            `json:"takerHash"`
	FillAmount decimal.Decimal `json:"fillAmount"`
	Price      decimal.Decimal `json:"price"`
}

// Account holds a trader's custodied balances. Reserved amounts are
// derived state backing resting orders; they are never serialized out
// (spec.md section 3).
type Account struct {
	TraderAddress Address         `json:"traderAddress"`
	DDXBalance    decimal.Decimal `json:"ddxBalance"`
	USDBalance    decimal.Decimal `json:"usdBalance"`
	DDXReserved   decimal.Decimal `json:"-"`
	USDReserved   decimal.Decimal `json:"-"`
}

// Balance returns the balance of the given asset.
func (a *Account) Balance(asset Asset) decimal.Decimal {
	if asset == DDX {
		return a.DDXBalance
	}
	return a.USDBalance
}

// Reserved returns the reserved amount of the given asset.
func (a *Account) Reserved(asset Asset) decimal.Decimal {
	if asset == DDX {
		return a.DDXReserved
	}
	return a.USDReserved
}

// Free returns balance minus reserved for the given asset.
func (a *Account) Free(asset Asset) decimal.Decimal {
	return a.Balance(asset).Sub(a.Reserved(asset))
}

// L2Level is one aggregated price level in a depth snapshot.
type L2Level struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

// L2Snapshot is the top-of-book view returned by l2_snapshot: bids
// descending by price, asks ascending, each truncated to 50 levels.
type L2Snapshot struct {
	Bids []L2Level `json:"bids"`
	Asks []L2Level `json:"asks"`
}

// MaxL2Levels bounds the depth of an L2Snapshot per side.
const MaxL2Levels = 50
