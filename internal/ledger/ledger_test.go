package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/ddxclob/internal/clob"
	"github.com/uhyunpark/ddxclob/internal/clobtypes"
)

func addr(n byte) clobtypes.Address {
	var a clobtypes.Address
	a[19] = n
	return a
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateAndGet(t *testing.T) {
	l := New()
	a := addr(1)
	if err := l.Create(clobtypes.Account{TraderAddress: a, DDXBalance: dec("10"), USDBalance: dec("100")}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	acc, err := l.Get(a)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !acc.DDXBalance.Equal(dec("10")) || !acc.USDBalance.Equal(dec("100")) {
		t.Fatalf("unexpected account: %+v", acc)
	}
}

func TestCreateRejectsDuplicate(t *testing.T) {
	l := New()
	a := addr(1)
	acc := clobtypes.Account{TraderAddress: a, DDXBalance: dec("1"), USDBalance: dec("1")}
	if err := l.Create(acc); err != nil {
		t.Fatal(err)
	}
	err := l.Create(acc)
	if kind, ok := clob.KindOf(err); !ok || kind != clob.KindAccountAlreadyExists {
		t.Fatalf("expected KindAccountAlreadyExists, got %v", err)
	}
}

func TestCreateRejectsNegativeBalance(t *testing.T) {
	l := New()
	err := l.Create(clobtypes.Account{TraderAddress: addr(1), DDXBalance: dec("-1"), USDBalance: dec("0")})
	if kind, ok := clob.KindOf(err); !ok || kind != clob.KindNegativeBalance {
		t.Fatalf("expected KindNegativeBalance, got %v", err)
	}
}

func TestGetUnknownAccount(t *testing.T) {
	l := New()
	_, err := l.Get(addr(1))
	if kind, ok := clob.KindOf(err); !ok || kind != clob.KindAccountNotFound {
		t.Fatalf("expected KindAccountNotFound, got %v", err)
	}
}

func TestReserveAndRelease(t *testing.T) {
	l := New()
	a := addr(1)
	if err := l.Create(clobtypes.Account{TraderAddress: a, DDXBalance: dec("0"), USDBalance: dec("100")}); err != nil {
		t.Fatal(err)
	}

	if err := l.Reserve(a, clobtypes.USD, dec("40")); err != nil {
		t.Fatalf("Reserve() error: %v", err)
	}
	acc, _ := l.Get(a)
	if !acc.Free(clobtypes.USD).Equal(dec("60")) {
		t.Fatalf("free balance after reserve = %s, want 60", acc.Free(clobtypes.USD))
	}

	if err := l.Release(a, clobtypes.USD, dec("40")); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	acc, _ = l.Get(a)
	if !acc.Free(clobtypes.USD).Equal(dec("100")) {
		t.Fatalf("free balance after release = %s, want 100", acc.Free(clobtypes.USD))
	}
}

func TestReserveInsufficientBalance(t *testing.T) {
	l := New()
	a := addr(1)
	if err := l.Create(clobtypes.Account{TraderAddress: a, DDXBalance: dec("0"), USDBalance: dec("10")}); err != nil {
		t.Fatal(err)
	}
	err := l.Reserve(a, clobtypes.USD, dec("20"))
	if kind, ok := clob.KindOf(err); !ok || kind != clob.KindInsufficientBalance {
		t.Fatalf("expected KindInsufficientBalance, got %v", err)
	}
}

func TestSettleCreditsAndReleases(t *testing.T) {
	l := New()
	a := addr(1)
	if err := l.Create(clobtypes.Account{TraderAddress: a, DDXBalance: dec("10"), USDBalance: dec("10000")}); err != nil {
		t.Fatal(err)
	}
	if err := l.Reserve(a, clobtypes.USD, dec("100")); err != nil {
		t.Fatal(err)
	}

	// A bid party pays USD (debit + release) and receives DDX (credit).
	if err := l.Settle(a, clobtypes.USD, dec("-100"), dec("100")); err != nil {
		t.Fatal(err)
	}
	if err := l.Settle(a, clobtypes.DDX, dec("1"), decimal.Zero); err != nil {
		t.Fatal(err)
	}

	acc, _ := l.Get(a)
	if !acc.USDBalance.Equal(dec("9900")) {
		t.Errorf("USDBalance = %s, want 9900", acc.USDBalance)
	}
	if !acc.USDReserved.Equal(dec("0")) {
		t.Errorf("USDReserved = %s, want 0", acc.USDReserved)
	}
	if !acc.DDXBalance.Equal(dec("11")) {
		t.Errorf("DDXBalance = %s, want 11", acc.DDXBalance)
	}
}

func TestDeleteRemovesAccount(t *testing.T) {
	l := New()
	a := addr(1)
	if err := l.Create(clobtypes.Account{TraderAddress: a}); err != nil {
		t.Fatal(err)
	}
	if err := l.Delete(a); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := l.Get(a); err == nil {
		t.Fatal("expected account to be gone after Delete")
	}
}
