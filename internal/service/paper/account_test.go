package paper

import (
	"errors"
	"math"
	"sync"
	"testing"

	"Quantra/internal/domain/models"
)

func TestBuySell(t *testing.T) {
	a := NewAccount(10000)
	qty, err := a.Buy(5000, 100)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if qty != 50 {
		t.Fatalf("expected qty 50, got %v", qty)
	}
	p := a.Snapshot(100)
	if p.Cash != 5000 || p.Quantity != 50 || p.Equity != 10000 {
		t.Fatalf("bad snapshot %+v", p)
	}

	proceeds, err := a.Sell(50, 110)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if proceeds != 5500 {
		t.Fatalf("expected 5500, got %v", proceeds)
	}
	p = a.Snapshot(110)
	if p.Quantity != 0 || p.Cash != 10500 {
		t.Fatalf("bad snapshot after sell %+v", p)
	}
}

func TestBuyClampsToCash(t *testing.T) {
	a := NewAccount(100)
	qty, err := a.Buy(500, 10)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if qty != 10 {
		t.Fatalf("buy must clamp to available cash, got qty %v", qty)
	}
	if p := a.Snapshot(10); p.Cash != 0 {
		t.Fatalf("cash must be exhausted, got %v", p.Cash)
	}
}

func TestSellClampsToPosition(t *testing.T) {
	a := NewAccount(1000)
	if _, err := a.Buy(1000, 10); err != nil {
		t.Fatalf("buy: %v", err)
	}
	proceeds, err := a.Sell(500, 10)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if proceeds != 1000 {
		t.Fatalf("sell must clamp to held quantity, got %v", proceeds)
	}
}

func TestInvalidOrders(t *testing.T) {
	a := NewAccount(1000)
	if _, err := a.Buy(100, 0); err == nil {
		t.Fatalf("zero price must fail")
	}
	if _, err := a.Buy(-5, 10); err == nil {
		t.Fatalf("negative value must fail")
	}
	if _, err := a.Sell(1, 10); err == nil {
		t.Fatalf("selling with no position must fail")
	}
}

func TestEmptyAccountReportsInsufficientBalance(t *testing.T) {
	a := NewAccount(1000)
	if _, err := a.Buy(500, 10); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := a.Buy(1000, 10); err != nil {
		t.Fatalf("clamped buy: %v", err)
	}
	// Cash is exhausted now.
	if _, err := a.Buy(1, 10); !errors.Is(err, models.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	b := NewAccount(100)
	if _, err := b.Sell(1, 10); !errors.Is(err, models.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance on empty sell, got %v", err)
	}
}

func TestConcurrentOrdersConserveEquity(t *testing.T) {
	a := NewAccount(10000)
	const price = 100.0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Buy(100, price)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Sell(0.5, price)
		}()
	}
	wg.Wait()
	// With a constant price, no sequence of fills can create or destroy value.
	p := a.Snapshot(price)
	if math.Abs(p.Equity-10000) > 1e-6 {
		t.Fatalf("equity drifted to %v", p.Equity)
	}
}
