package paper

import (
	"fmt"
	"sync"

	"Quantra/internal/domain/models"
)

// Account is a simulated cash-and-position account. Every mutation happens
// under one lock, so a buy can never spend cash that a concurrent sell
// already observed.
type Account struct {
	mu   sync.Mutex
	cash float64
	qty  float64
}

// NewAccount opens an account with the given starting cash.
func NewAccount(initialBalance float64) *Account {
	return &Account{cash: initialBalance}
}

// Buy spends value of cash at price and returns the quantity acquired.
func (a *Account) Buy(value, price float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("paper buy: invalid price %v", price)
	}
	if value <= 0 {
		return 0, fmt.Errorf("paper buy: invalid value %v", value)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if value > a.cash {
		value = a.cash
	}
	if value <= 0 {
		return 0, fmt.Errorf("paper buy: %w", models.ErrInsufficientBalance)
	}
	qty := value / price
	a.cash -= value
	a.qty += qty
	return qty, nil
}

// Sell disposes qty at price and returns the proceeds. Selling more than
// held is clamped to the position.
func (a *Account) Sell(qty, price float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("paper sell: invalid price %v", price)
	}
	if qty <= 0 {
		return 0, fmt.Errorf("paper sell: invalid quantity %v", qty)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if qty > a.qty {
		qty = a.qty
	}
	if qty <= 0 {
		return 0, fmt.Errorf("paper sell: %w", models.ErrInsufficientBalance)
	}
	proceeds := qty * price
	a.qty -= qty
	a.cash += proceeds
	return proceeds, nil
}

// Snapshot marks the position at lastPrice.
func (a *Account) Snapshot(lastPrice float64) models.Portfolio {
	a.mu.Lock()
	defer a.mu.Unlock()
	return models.Portfolio{
		Cash:      a.cash,
		Quantity:  a.qty,
		LastPrice: lastPrice,
		Equity:    a.cash + a.qty*lastPrice,
	}
}
