// Package margin implements the USD-M margin account model: derived
// maintenance/liquidation/PnL math over a position snapshot, wallet
// transfers, leverage changes, and funding settlement.
package margin

import (
	"main/internal/errors"

	"github.com/shopspring/decimal"
)

var (
	ErrExceedsRemovable = errors.New("margin: amount exceeds max removable")
	ErrDivisionByZero   = errors.New("margin: liquidation price undefined")
	ErrInvalidLeverage  = errors.New("margin: invalid leverage")
	ErrLeverageLocked   = errors.New("margin: cannot raise leverage with open position")
)

// Account is one client's margin position on one symbol. Size is
// signed: positive is long, negative is short. Wallet is the margin
// capital backing the position.
type Account struct {
	Symbol          string
	Size            decimal.Decimal
	EntryPrice      decimal.Decimal
	Leverage        int64
	MarkPrice       decimal.Decimal
	Wallet          decimal.Decimal
	MaintenanceRate decimal.Decimal
}

// NewAccount creates a flat account with the given leverage and
// maintenance rate.
func NewAccount(sym string, leverage int64, maintenanceRate decimal.Decimal) (*Account, error) {
	if leverage <= 0 {
		return nil, errors.Wrapf(ErrInvalidLeverage, "leverage=%d", leverage)
	}
	return &Account{
		Symbol:          sym,
		Leverage:        leverage,
		MaintenanceRate: maintenanceRate,
	}, nil
}

// MaintenanceMargin returns mark price x size x maintenance rate.
func (a *Account) MaintenanceMargin() decimal.Decimal {
	return a.MarkPrice.Mul(a.Size).Mul(a.MaintenanceRate)
}

// LiquidationPrice returns the price at which the position is
// liquidated. The denominator |size| x rate - size can cancel to zero;
// that case is surfaced as ErrDivisionByZero instead of an infinity.
func (a *Account) LiquidationPrice() (decimal.Decimal, error) {
	denom := a.Size.Abs().Mul(a.MaintenanceRate).Sub(a.Size)
	if denom.IsZero() {
		return decimal.Zero, errors.Wrapf(ErrDivisionByZero,
			"symbol=%s size=%s rate=%s", a.Symbol, a.Size, a.MaintenanceRate)
	}
	num := a.Wallet.Add(a.MaintenanceMargin()).Sub(a.Size.Mul(a.EntryPrice))
	return num.Div(denom), nil
}

// PnL returns the unrealized profit of the position at the mark price.
func (a *Account) PnL() decimal.Decimal {
	return a.MarkPrice.Sub(a.EntryPrice).Mul(a.Size)
}

// MarginBalance returns wallet plus unrealized PnL.
func (a *Account) MarginBalance() decimal.Decimal {
	return a.Wallet.Add(a.PnL())
}

// MaxRemovable returns the largest amount that can be withdrawn from
// the wallet without endangering the position. Never negative.
func (a *Account) MaxRemovable() decimal.Decimal {
	withPnL := a.Wallet.Add(a.PnL()).
		Sub(a.MarkPrice.Mul(a.Size.Abs()).Div(decimal.NewFromInt(a.Leverage)))
	removable := decimal.Min(a.Wallet.Sub(a.MaintenanceMargin()), withPnL)
	return decimal.Max(removable, decimal.Zero)
}

// SetMarkPrice replaces the mark price used by the derived math.
func (a *Account) SetMarkPrice(price decimal.Decimal) {
	a.MarkPrice = price
}

// SetLeverage changes the leverage. Raising leverage while a position
// is open is rejected and leaves the account unchanged.
func (a *Account) SetLeverage(leverage int64) error {
	if leverage <= 0 {
		return errors.Wrapf(ErrInvalidLeverage, "leverage=%d", leverage)
	}
	if !a.Size.IsZero() && leverage > a.Leverage {
		return errors.Wrapf(ErrLeverageLocked,
			"symbol=%s current=%d requested=%d", a.Symbol, a.Leverage, leverage)
	}
	a.Leverage = leverage
	return nil
}

// AddToWallet deposits margin capital.
func (a *Account) AddToWallet(amount decimal.Decimal) {
	a.Wallet = a.Wallet.Add(amount)
}

// RemoveFromWallet withdraws margin capital, rejecting amounts above
// MaxRemovable without touching the wallet.
func (a *Account) RemoveFromWallet(amount decimal.Decimal) error {
	if amount.GreaterThan(a.MaxRemovable()) {
		return errors.Wrapf(ErrExceedsRemovable,
			"symbol=%s amount=%s removable=%s", a.Symbol, amount, a.MaxRemovable())
	}
	a.Wallet = a.Wallet.Sub(amount)
	return nil
}

// FundingAmount returns size x mark price x rate: the payment the
// position makes (negative) or receives (positive) at settlement.
func (a *Account) FundingAmount(rate decimal.Decimal) decimal.Decimal {
	return a.Size.Mul(a.MarkPrice).Mul(rate)
}

// SettleFunding applies the funding payment to the wallet.
func (a *Account) SettleFunding(rate decimal.Decimal) {
	a.Wallet = a.Wallet.Add(a.FundingAmount(rate))
}
