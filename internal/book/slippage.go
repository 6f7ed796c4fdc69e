package book

import "github.com/shopspring/decimal"

// Slippage adjusts every fill price before ledger effects. The engine
// has no order-book depth data, so the default is a flat pass-through;
// the extension point exists so a depth-aware model can be plugged in.
type Slippage interface {
	Adjust(symbol string, price decimal.Decimal) decimal.Decimal
}

// Flat is the identity slippage model.
type Flat struct{}

func (Flat) Adjust(_ string, price decimal.Decimal) decimal.Decimal {
	return price
}
