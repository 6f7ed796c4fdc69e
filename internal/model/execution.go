package model

import (
	"main/internal/model/enum"

	"github.com/shopspring/decimal"
)

// Execution is emitted once per filled order. Price is the
// post-slippage execution price and Commission is denominated in the
// symbol's quote asset.
type Execution struct {
	OrderID    int64
	Symbol     string
	Side       enum.OrderSide
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	Commission decimal.Decimal
}

// Balance is one asset's total/locked pair. Available is derived and
// never stored.
type Balance struct {
	Total  decimal.Decimal
	Locked decimal.Decimal
}

// Available returns total minus locked.
func (b Balance) Available() decimal.Decimal {
	return b.Total.Sub(b.Locked)
}
