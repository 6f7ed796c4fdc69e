package book

import (
	"main/internal/model"
	"main/internal/model/enum"

	"github.com/shopspring/decimal"
)

// Callback is invoked synchronously when the order fills.
type Callback func(model.Execution)

// Order is a resting or pending order. Fields are immutable after
// submission except LockedPrice, which is set exactly once for market
// orders at lock time.
type Order struct {
	ID       int64
	Owner    int64
	Symbol   string
	Side     enum.OrderSide
	Kind     enum.OrderKind
	Quantity decimal.Decimal

	// LimitPrice is set for limit orders only.
	LimitPrice decimal.Decimal

	// LockedPrice is the reference price a market order reserved funds
	// at; releasing the lock on execution uses this price, not the
	// fill price, so a moving tape cannot drift the ledger.
	LockedPrice decimal.Decimal

	Callback Callback
}

// lockValue is the quote amount the order reserved at submission.
func (o *Order) lockValue() decimal.Decimal {
	if o.Kind == enum.OrderKindMarket {
		return o.Quantity.Mul(o.LockedPrice)
	}
	return o.Quantity.Mul(o.LimitPrice)
}
