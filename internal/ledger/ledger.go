// Package ledger implements the account custody ledger: balances and
// reserved amounts per trader, per asset, with the reserve/settle
// primitives the engine facade composes into an atomic submit pipeline.
package ledger

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/ddxclob/internal/clob"
	"github.com/uhyunpark/ddxclob/internal/clobtypes"
)

// balanceScale is the fractional-digit scale balances are rescaled to on
// account creation, per spec.md section 4.3 ("rescales balances to 18
// fractional digits").
const balanceScale = 18

// Ledger maps trader address to custodied balances and reservations. All
// public methods are single-writer: one exclusive lock held for the
// duration of the call, per spec.md section 5.
type Ledger struct {
	mu       sync.Mutex
	accounts map[clobtypes.Address]*clobtypes.Account
}

// New builds an empty ledger.
func New() *Ledger {
	return &Ledger{accounts: make(map[clobtypes.Address]*clobtypes.Account)}
}

// Create registers a new account. Fails with AccountAlreadyExists if the
// address is known, or NegativeBalance if either balance is negative.
func (l *Ledger) Create(acc clobtypes.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.accounts[acc.TraderAddress]; exists {
		return clob.ErrAccountAlreadyExists(addrStringer(acc.TraderAddress))
	}
	if acc.DDXBalance.Sign() < 0 {
		return clob.ErrNegativeBalance(clobtypes.DDX.String())
	}
	if acc.USDBalance.Sign() < 0 {
		return clob.ErrNegativeBalance(clobtypes.USD.String())
	}

	stored := &clobtypes.Account{
		TraderAddress: acc.TraderAddress,
		DDXBalance:    acc.DDXBalance.Round(balanceScale),
		USDBalance:    acc.USDBalance.Round(balanceScale),
		DDXReserved:   decimal.Zero,
		USDReserved:   decimal.Zero,
	}
	l.accounts[acc.TraderAddress] = stored
	return nil
}

// Get returns a copy of the account's current state, or AccountNotFound.
func (l *Ledger) Get(addr clobtypes.Address) (clobtypes.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[addr]
	if !ok {
		return clobtypes.Account{}, clob.ErrAccountNotFound(addrStringer(addr))
	}
	return *acc, nil
}

// Delete removes an account. The caller (the engine facade) is
// responsible for cancelling the trader's resting orders and releasing
// their reservations before calling Delete; see spec.md section 9 and
// DESIGN.md's decided resolution of that open question.
func (l *Ledger) Delete(addr clobtypes.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[addr]; !ok {
		return clob.ErrAccountNotFound(addrStringer(addr))
	}
	delete(l.accounts, addr)
	return nil
}

// Reserve earmarks amount of asset against addr's free balance
// (balance - reserved). Fails with InsufficientBalance if free < amount.
func (l *Ledger) Reserve(addr clobtypes.Address, asset clobtypes.Asset, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[addr]
	if !ok {
		return clob.ErrAccountNotFound(addrStringer(addr))
	}

	free := acc.Free(asset)
	if free.LessThan(amount) {
		return clob.ErrInsufficientBalance(decStringer(free), decStringer(amount))
	}

	setReserved(acc, asset, acc.Reserved(asset).Add(amount))
	return nil
}

// Release gives back a previously reserved amount without touching the
// balance (used when a resting order is cancelled or an unfilled
// remainder's reservation must shrink).
func (l *Ledger) Release(addr clobtypes.Address, asset clobtypes.Asset, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[addr]
	if !ok {
		return clob.ErrAccountNotFound(addrStringer(addr))
	}
	setReserved(acc, asset, acc.Reserved(asset).Sub(amount))
	return nil
}

// Settle atomically adjusts addr's balance of asset by delta (positive to
// credit, negative to debit) and releases the given reserved amount of
// the same asset. This is the primitive the engine facade calls once per
// side of a fill: each party is debited in the asset it pays and
// separately credited (via a second Settle call on the other asset) in
// the asset it receives.
func (l *Ledger) Settle(addr clobtypes.Address, asset clobtypes.Asset, delta decimal.Decimal, release decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[addr]
	if !ok {
		return clob.ErrAccountNotFound(addrStringer(addr))
	}

	setBalance(acc, asset, acc.Balance(asset).Add(delta))
	setReserved(acc, asset, acc.Reserved(asset).Sub(release))
	return nil
}

func setBalance(acc *clobtypes.Account, asset clobtypes.Asset, v decimal.Decimal) {
	if asset == clobtypes.DDX {
		acc.DDXBalance = v
	} else {
		acc.USDBalance = v
	}
}

func setReserved(acc *clobtypes.Account, asset clobtypes.Asset, v decimal.Decimal) {
	if asset == clobtypes.DDX {
		acc.DDXReserved = v
	} else {
		acc.USDReserved = v
	}
}

type addrStringer clobtypes.Address

func (a addrStringer) String() string { return clobtypes.Address(a).Hex() }

type decStringer decimal.Decimal

func (d decStringer) String() string { return decimal.Decimal(d).String() }
