package orderbook

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/ddxclob/internal/clob"
	"github.com/uhyunpark/ddxclob/internal/clobcrypto"
	"github.com/uhyunpark/ddxclob/internal/clobtypes"
)

func addr(n byte) clobtypes.Address {
	var a clobtypes.Address
	a[19] = n
	return a
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newOrder(amount, price string, side clobtypes.Side, trader clobtypes.Address, nonce uint64, ts uint64) clobtypes.Order {
	return clobtypes.Order{
		Amount:        dec(amount),
		Price:         dec(price),
		Side:          side,
		TraderAddress: trader,
		Nonce:         clobtypes.NonceFromUint64(nonce),
		Timestamp:     ts,
	}
}

func newBook() *OrderBook {
	return New(clobcrypto.NewDefaultOrderHasher())
}

func TestRestWithNoCross(t *testing.T) {
	ob := newBook()
	fills, err := ob.Add(newOrder("10", "100", clobtypes.Bid, addr(1), 1, 1))
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if len(fills) != 0 {
		t.Fatalf("expected no fills, got %d", len(fills))
	}

	snap := ob.L2Snapshot()
	if len(snap.Bids) != 1 || !snap.Bids[0].Price.Equal(dec("100")) || !snap.Bids[0].Amount.Equal(dec("10")) {
		t.Fatalf("unexpected bid snapshot: %+v", snap.Bids)
	}
}

func TestFullMatch(t *testing.T) {
	ob := newBook()
	if _, err := ob.Add(newOrder("10", "100", clobtypes.Bid, addr(1), 1, 1)); err != nil {
		t.Fatal(err)
	}
	fills, err := ob.Add(newOrder("10", "100", clobtypes.Ask, addr(2), 1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}
	if !fills[0].FillAmount.Equal(dec("10")) || !fills[0].Price.Equal(dec("100")) {
		t.Fatalf("unexpected fill: %+v", fills[0])
	}

	snap := ob.L2Snapshot()
	if len(snap.Bids) != 0 || len(snap.Asks) != 0 {
		t.Fatalf("book should be empty after full match: %+v", snap)
	}
}

func TestPriceTimePriority(t *testing.T) {
	ob := newBook()
	// two bids at the same price; earlier one must fill first
	if _, err := ob.Add(newOrder("5", "100", clobtypes.Bid, addr(1), 1, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := ob.Add(newOrder("5", "100", clobtypes.Bid, addr(2), 1, 2)); err != nil {
		t.Fatal(err)
	}

	fills, err := ob.Add(newOrder("5", "100", clobtypes.Ask, addr(3), 1, 3))
	if err != nil {
		t.Fatal(err)
	}
	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}

	order, err := ob.Get(fills[0].MakerHash)
	if err == nil {
		t.Fatalf("maker order %s should have been evicted, got %+v", fills[0].MakerHash.Hex(), order)
	}

	// the first trader's resting order should be the one consumed: confirm
	// by checking the second trader's order still rests in full.
	second, err := ob.Get(ob.Hash(newOrder("5", "100", clobtypes.Bid, addr(2), 1, 2)))
	if err != nil || !second.Amount.Equal(dec("5")) {
		t.Fatalf("expected the second trader's bid to rest in full, got %+v (err %v)", second, err)
	}
	snap := ob.L2Snapshot()
	if len(snap.Bids) != 1 || !snap.Bids[0].Amount.Equal(dec("5")) {
		t.Fatalf("expected one remaining bid level of 5, got %+v", snap.Bids)
	}
}

func TestBetterPriceTakesPriorityOverTime(t *testing.T) {
	ob := newBook()
	if _, err := ob.Add(newOrder("5", "99", clobtypes.Bid, addr(1), 1, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := ob.Add(newOrder("5", "100", clobtypes.Bid, addr(2), 1, 2)); err != nil {
		t.Fatal(err)
	}

	fills, err := ob.Add(newOrder("5", "99", clobtypes.Ask, addr(3), 1, 3))
	if err != nil {
		t.Fatal(err)
	}
	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}
	if !fills[0].Price.Equal(dec("100")) {
		t.Fatalf("expected the better (higher) bid to fill first, got price %s", fills[0].Price)
	}
}

func TestPartialFillLeavesRemainder(t *testing.T) {
	ob := newBook()
	if _, err := ob.Add(newOrder("10", "100", clobtypes.Bid, addr(1), 1, 1)); err != nil {
		t.Fatal(err)
	}
	fills, err := ob.Add(newOrder("4", "100", clobtypes.Ask, addr(2), 1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(fills) != 1 || !fills[0].FillAmount.Equal(dec("4")) {
		t.Fatalf("unexpected fills: %+v", fills)
	}

	snap := ob.L2Snapshot()
	if len(snap.Bids) != 1 || !snap.Bids[0].Amount.Equal(dec("6")) {
		t.Fatalf("expected 6 remaining, got %+v", snap.Bids)
	}
}

func TestSelfMatchBreaksTraversal(t *testing.T) {
	ob := newBook()
	trader := addr(1)
	if _, err := ob.Add(newOrder("5", "100", clobtypes.Bid, trader, 1, 1)); err != nil {
		t.Fatal(err)
	}
	// a better-priced bid from a different trader, resting behind in the
	// traversal order price-wise? No: same side can't cross itself, use
	// a second bid at a worse price from another trader to verify the
	// traversal stops entirely at the self-owned level rather than
	// skipping through to it.
	if _, err := ob.Add(newOrder("5", "99", clobtypes.Bid, addr(2), 1, 2)); err != nil {
		t.Fatal(err)
	}

	fills, err := ob.Add(newOrder("5", "99", clobtypes.Ask, trader, 1, 3))
	if err != nil {
		t.Fatal(err)
	}
	if len(fills) != 0 {
		t.Fatalf("expected self-match to prevent any fill, got %+v", fills)
	}

	snap := ob.L2Snapshot()
	if len(snap.Asks) != 1 {
		t.Fatalf("expected the taker ask to rest after self-match break, got %+v", snap.Asks)
	}
}

func TestDuplicateOrderRejected(t *testing.T) {
	ob := newBook()
	trader := addr(1)
	order := newOrder("5", "100", clobtypes.Bid, trader, 7, 1)
	if _, err := ob.Add(order); err != nil {
		t.Fatal(err)
	}
	_, err := ob.Add(order)
	if err == nil {
		t.Fatal("expected duplicate order error")
	}
	if kind, ok := clob.KindOf(err); !ok || kind != clob.KindDuplicateOrder {
		t.Fatalf("expected KindDuplicateOrder, got %v", err)
	}
}

func TestCancelReleasesDepth(t *testing.T) {
	ob := newBook()
	fills, err := ob.Add(newOrder("5", "100", clobtypes.Bid, addr(1), 1, 1))
	if err != nil || len(fills) != 0 {
		t.Fatalf("setup failed: fills=%v err=%v", fills, err)
	}

	order, err := ob.Get(ob.Hash(newOrder("5", "100", clobtypes.Bid, addr(1), 1, 1)))
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	cancelled, err := ob.Cancel(order.Hash)
	if err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if !cancelled.Amount.Equal(dec("5")) {
		t.Fatalf("unexpected cancelled order: %+v", cancelled)
	}

	snap := ob.L2Snapshot()
	if len(snap.Bids) != 0 {
		t.Fatalf("expected empty book after cancel, got %+v", snap.Bids)
	}
}

func TestCancelUnknownHash(t *testing.T) {
	ob := newBook()
	_, err := ob.Cancel(common.Hash{})
	if err == nil {
		t.Fatal("expected OrderNotFound")
	}
	if kind, ok := clob.KindOf(err); !ok || kind != clob.KindOrderNotFound {
		t.Fatalf("expected KindOrderNotFound, got %v", err)
	}
}

func TestCancelAllForTrader(t *testing.T) {
	ob := newBook()
	trader := addr(1)
	if _, err := ob.Add(newOrder("5", "100", clobtypes.Bid, trader, 1, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := ob.Add(newOrder("3", "150", clobtypes.Ask, trader, 2, 2)); err != nil {
		t.Fatal(err)
	}
	if _, err := ob.Add(newOrder("1", "100", clobtypes.Bid, addr(2), 1, 3)); err != nil {
		t.Fatal(err)
	}

	cancelled := ob.CancelAllForTrader(trader)
	if len(cancelled) != 2 {
		t.Fatalf("expected 2 cancelled orders, got %d", len(cancelled))
	}

	snap := ob.L2Snapshot()
	if len(snap.Bids) != 1 || len(snap.Asks) != 0 {
		t.Fatalf("expected only the other trader's bid to remain, got %+v", snap)
	}
}

func TestL2SnapshotOrderingAndTruncation(t *testing.T) {
	ob := newBook()
	for i := 0; i < clobtypes.MaxL2Levels+5; i++ {
		price := decimal.NewFromInt(int64(100 + i))
		order := clobtypes.Order{
			Amount:        dec("1"),
			Price:         price,
			Side:          clobtypes.Bid,
			TraderAddress: addr(1),
			Nonce:         clobtypes.NonceFromUint64(uint64(i)),
			Timestamp:     uint64(i),
		}
		if _, err := ob.Add(order); err != nil {
			t.Fatalf("Add() error at i=%d: %v", i, err)
		}
	}

	snap := ob.L2Snapshot()
	if len(snap.Bids) != clobtypes.MaxL2Levels {
		t.Fatalf("expected %d levels, got %d", clobtypes.MaxL2Levels, len(snap.Bids))
	}
	for i := 1; i < len(snap.Bids); i++ {
		if snap.Bids[i].Price.GreaterThan(snap.Bids[i-1].Price) {
			t.Fatalf("bids not descending at index %d: %s then %s", i, snap.Bids[i-1].Price, snap.Bids[i].Price)
		}
	}
}
