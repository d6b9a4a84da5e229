// Package clob holds the error taxonomy shared by the ledger, order book,
// and engine facade.
package clob

import (
	"errors"
	"fmt"
)

// Kind identifies one of the fixed error categories the engine can return.
// Every operation failure is deterministic given its pre-state and input,
// so callers can safely switch on Kind rather than parsing messages.
type Kind int

const (
	// KindNegativeBalance: create_account given a balance < 0.
	KindNegativeBalance Kind = iota
	// KindAccountAlreadyExists: create_account with a known address.
	KindAccountAlreadyExists
	// KindAccountNotFound: operation referencing an unknown address.
	KindAccountNotFound
	// KindInsufficientBalance: a reservation would exceed available funds.
	KindInsufficientBalance
	// KindDuplicateOrder: submission whose hash already rests for that trader.
	KindDuplicateOrder
	// KindOrderNotFound: get/cancel on an unknown hash.
	KindOrderNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNegativeBalance:
		return "NegativeBalance"
	case KindAccountAlreadyExists:
		return "AccountAlreadyExists"
	case KindAccountNotFound:
		return "AccountNotFound"
	case KindInsufficientBalance:
		return "InsufficientBalance"
	case KindDuplicateOrder:
		return "DuplicateOrder"
	case KindOrderNotFound:
		return "OrderNotFound"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every public operation in
// this module. Transport layers translate Kind to a protocol status code;
// the core never retries or recovers from one locally.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Is makes errors.Is(err, target) match any *Error of the same Kind,
// regardless of message text.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == e.Kind
}

func newErr(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, msg: fmt.Sprintf(format, args...)}
}

func ErrNegativeBalance(asset string) error {
	return newErr(KindNegativeBalance, "negative balance not allowed for asset %s", asset)
}

func ErrAccountAlreadyExists(addr fmt.Stringer) error {
	return newErr(KindAccountAlreadyExists, "account already exists: %s", addr)
}

func ErrAccountNotFound(addr fmt.Stringer) error {
	return newErr(KindAccountNotFound, "account not found: %s", addr)
}

// ErrInsufficientBalance reports the free balance actually available and the
// amount that was required, matching spec.md's InsufficientBalance(free, required).
func ErrInsufficientBalance(free, required fmt.Stringer) error {
	return newErr(KindInsufficientBalance, "insufficient balance: free=%s required=%s", free, required)
}

func ErrDuplicateOrder(hash, trader fmt.Stringer) error {
	return newErr(KindDuplicateOrder, "duplicate order %s for trader %s", hash, trader)
}

func ErrOrderNotFound(hash fmt.Stringer) error {
	return newErr(KindOrderNotFound, "order not found: %s", hash)
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Kind, true
}
