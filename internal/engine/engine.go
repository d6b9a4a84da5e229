// Package engine composes the account ledger and the order book behind
// the facade spec.md section 4.4 describes: it sequences
// "reserve -> match -> settle" atomically per submission, and owns
// monotonic timestamp assignment so price-time fairness cannot be
// subverted by a caller-supplied clock.
package engine

import (
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/ddxclob/internal/clobtypes"
	"github.com/uhyunpark/ddxclob/internal/ledger"
	"github.com/uhyunpark/ddxclob/internal/orderbook"
	"github.com/uhyunpark/ddxclob/pkg/util"
)

// Engine is the single entry point for the matching engine: one exclusive
// lock guards every public operation, matching spec.md section 5's
// single-writer concurrency model.
type Engine struct {
	mu sync.Mutex

	ledger *ledger.Ledger
	book   *orderbook.OrderBook
	clock  util.Clock
	log    *zap.SugaredLogger

	lastTimestamp uint64
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithClock overrides the default util.RealClock, primarily for tests.
func WithClock(c util.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger attaches structured logging. Logging is an ambient concern:
// a nil logger (the default) makes every log call a no-op.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) { e.log = l }
}

// New builds an Engine over a fresh ledger and order book.
func New(book *orderbook.OrderBook, opts ...Option) *Engine {
	e := &Engine{
		ledger: ledger.New(),
		book:   book,
		clock:  util.RealClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) logf(msg string, kv ...any) {
	if e.log == nil {
		return
	}
	e.log.Infow(msg, kv...)
}

// CreateAccount registers a new account and returns its address.
func (e *Engine) CreateAccount(acc clobtypes.Account) (clobtypes.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ledger.Create(acc); err != nil {
		return clobtypes.Address{}, err
	}
	e.logf("account_created", "address", acc.TraderAddress.Hex())
	return acc.TraderAddress, nil
}

// GetAccount returns the account's current state.
func (e *Engine) GetAccount(addr clobtypes.Address) (clobtypes.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Get(addr)
}

// DeleteAccount cancels every resting order the trader owns, releases
// their reservations, and removes the account. See spec.md section 9 and
// DESIGN.md: this is the decided resolution of the delete-vs-resting-
// orders open question.
func (e *Engine) DeleteAccount(addr clobtypes.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.ledger.Get(addr); err != nil {
		return err
	}

	for _, cancelled := range e.book.CancelAllForTrader(addr) {
		asset, amount := reservationFor(cancelled.Side, cancelled.Amount, cancelled.Price)
		_ = e.ledger.Release(addr, asset, amount)
	}

	if err := e.ledger.Delete(addr); err != nil {
		return err
	}
	e.logf("account_deleted", "address", addr.Hex())
	return nil
}

// GetOrder returns a resting order by hash.
func (e *Engine) GetOrder(hash clobtypes.Hash) (clobtypes.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Get(hash)
}

// Cancel removes a resting order and releases its reservation.
func (e *Engine) Cancel(hash clobtypes.Hash) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.book.Cancel(hash)
	if err != nil {
		return err
	}
	asset, amount := reservationFor(order.Side, order.Amount, order.Price)
	_ = e.ledger.Release(order.TraderAddress, asset, amount)
	e.logf("order_cancelled", "hash", hash.Hex())
	return nil
}

// L2Snapshot returns the current top-of-book depth.
func (e *Engine) L2Snapshot() clobtypes.L2Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.L2Snapshot()
}

// Submit runs the full admission pipeline from spec.md section 4.4:
// assign timestamp, locate the taker account, reserve the required
// amount, match against the book, settle every fill on both sides, and
// leave the remaining reservation in force for whatever rests. Any
// failure after the reservation step unwinds the reservation so no
// partial state is left visible; any failure is returned with the engine
// state unchanged from its pre-call value.
func (e *Engine) Submit(order clobtypes.Order) ([]clobtypes.Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order.Timestamp = e.nextTimestamp()

	if _, err := e.ledger.Get(order.TraderAddress); err != nil {
		return nil, err
	}

	asset, required := reservationFor(order.Side, order.Amount, order.Price)
	if err := e.ledger.Reserve(order.TraderAddress, asset, required); err != nil {
		return nil, err
	}

	details, err := e.book.AddWithDetails(order)
	if err != nil {
		_ = e.ledger.Release(order.TraderAddress, asset, required)
		return nil, err
	}

	for _, d := range details {
		e.settleFill(order.TraderAddress, order.Side, order.Price, d)
	}
	// Whatever reservation the fills consumed has already been released,
	// fill by fill, inside settleFill; any unfilled remainder keeps its
	// original reservation in force automatically, since only the
	// consumed portion was ever released.

	fills := make([]clobtypes.Fill, len(details))
	for i, d := range details {
		fills[i] = d.Fill
	}
	e.logf("order_submitted", "hash", order.Hash.Hex(), "fills", len(fills))
	return fills, nil
}

// settleFill debits the taker and the matched maker in the asset each
// gives up and credits each in the asset it receives. This is the
// economically correct behavior spec.md section 9 requires in place of
// the reference implementation's settlement symmetry bug: regardless of
// which side is the taker, a Bid party always pays USD/receives DDX and
// an Ask party always pays DDX/receives USD.
//
// The reservation released on the taker's struck leg is computed from
// the taker's own order price, not the fill price: a Bid reserves
// amount*order.Price up front, and the fill price is the maker's resting
// price per spec.md section 4.2, so a price-improved fill (fill.Price <
// order.Price for a Bid) must still release the full amount*order.Price
// slice of reservation that quantity was holding, or USD is left
// permanently stuck in USDReserved after a full fill. The maker's own
// resting price always equals the fill price, so its release is
// unaffected by this distinction.
func (e *Engine) settleFill(taker clobtypes.Address, takerSide clobtypes.Side, takerPrice decimal.Decimal, d orderbook.FillDetail) {
	notional := d.Fill.FillAmount.Mul(d.Fill.Price)
	makerSide := opposite(takerSide)

	_, takerRelease := reservationFor(takerSide, d.Fill.FillAmount, takerPrice)
	_, makerRelease := reservationFor(makerSide, d.Fill.FillAmount, d.Fill.Price)

	settleParty(e.ledger, taker, takerSide, d.Fill.FillAmount, notional, takerRelease)
	settleParty(e.ledger, d.MakerTrader, makerSide, d.Fill.FillAmount, notional, makerRelease)
}

// settleParty applies one party's side of a single fill: pay the struck
// asset (ddxAmount or usdAmount, whichever the side gives up), releasing
// `struckRelease` of reservation (which may differ from the amount paid
// when price improvement is in play), and receive the other of the two
// amounts in the counter asset (no reservation held on the receiving leg).
func settleParty(l *ledger.Ledger, addr clobtypes.Address, side clobtypes.Side, ddxAmount, usdAmount, struckRelease decimal.Decimal) {
	struckAsset := side.Struck()
	counterAsset := side.Counter()

	var struckAmount decimal.Decimal
	if struckAsset == clobtypes.DDX {
		struckAmount = ddxAmount
	} else {
		struckAmount = usdAmount
	}
	var counterAmount decimal.Decimal
	if counterAsset == clobtypes.DDX {
		counterAmount = ddxAmount
	} else {
		counterAmount = usdAmount
	}

	_ = l.Settle(addr, struckAsset, struckAmount.Neg(), struckRelease)
	_ = l.Settle(addr, counterAsset, counterAmount, decimal.Zero)
}

func opposite(s clobtypes.Side) clobtypes.Side {
	if s == clobtypes.Bid {
		return clobtypes.Ask
	}
	return clobtypes.Bid
}

// reservationFor computes the amount and asset an order of the given side
// must reserve: a Bid reserves amount*price in USD, an Ask reserves
// amount in DDX (spec.md section 4.3).
func reservationFor(side clobtypes.Side, amount, price decimal.Decimal) (clobtypes.Asset, decimal.Decimal) {
	if side == clobtypes.Bid {
		return clobtypes.USD, amount.Mul(price)
	}
	return clobtypes.DDX, amount
}

// nextTimestamp returns a strictly-increasing nanosecond timestamp even
// if the clock does not advance between two submissions in the same
// process, preserving spec.md section 3's "strictly non-decreasing"
// requirement under back-to-back calls.
func (e *Engine) nextTimestamp() uint64 {
	now := uint64(e.clock.Now().UnixNano())
	if now <= e.lastTimestamp {
		now = e.lastTimestamp + 1
	}
	e.lastTimestamp = now
	return now
}
