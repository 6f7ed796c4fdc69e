// Package ledger keeps per-account, per-asset total/locked balance
// pairs. It is the only owner of balance state: the matching engine and
// broker mutate balances exclusively through this API, and every
// mutation is an atomic check-then-apply, so a rejected operation
// leaves the entry untouched.
package ledger

import (
	"fmt"
	"sort"

	"main/internal/errors"
	"main/internal/model"
	"main/internal/symbol"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownAsset        = errors.New("ledger: unknown asset")
	ErrUnknownAccount      = errors.New("ledger: unknown account")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrInvalidAmount       = errors.New("ledger: invalid amount")
)

type entry struct {
	total  decimal.Decimal
	locked decimal.Decimal
}

// Ledger holds the balances of every registered account for one
// exchange instance. It is owned by a single broker and never shared
// across backtest runs.
type Ledger struct {
	assets   *symbol.Table
	accounts map[int64]map[string]*entry
}

// New creates an empty ledger constrained to the given asset table.
func New(assets *symbol.Table) *Ledger {
	return &Ledger{
		assets:   assets,
		accounts: make(map[int64]map[string]*entry),
	}
}

// Register creates an empty balance set for an account. Registering an
// existing account is a no-op.
func (l *Ledger) Register(account int64) {
	if _, ok := l.accounts[account]; !ok {
		l.accounts[account] = make(map[string]*entry)
	}
}

func (l *Ledger) lookup(account int64, asset string) (*entry, error) {
	if !l.assets.Has(asset) {
		return nil, errors.Wrap(ErrUnknownAsset, fmt.Sprintf("asset=%s", asset))
	}
	balances, ok := l.accounts[account]
	if !ok {
		return nil, errors.Wrap(ErrUnknownAccount, fmt.Sprintf("account=%d", account))
	}
	e, ok := balances[asset]
	if !ok {
		e = &entry{}
		balances[asset] = e
	}
	return e, nil
}

// Available returns total minus locked for one asset.
func (l *Ledger) Available(account int64, asset string) (decimal.Decimal, error) {
	e, err := l.lookup(account, asset)
	if err != nil {
		return decimal.Zero, err
	}
	return e.total.Sub(e.locked), nil
}

// ChangeTotal adjusts the total balance by delta. A negative delta that
// would drive the total below zero, or below the locked amount, is
// rejected before any mutation.
func (l *Ledger) ChangeTotal(account int64, asset string, delta decimal.Decimal) error {
	e, err := l.lookup(account, asset)
	if err != nil {
		return err
	}
	next := e.total.Add(delta)
	if next.IsNegative() || next.LessThan(e.locked) {
		return errors.Wrap(ErrInsufficientBalance,
			fmt.Sprintf("total asset=%s have=%s locked=%s delta=%s", asset, e.total, e.locked, delta))
	}
	e.total = next
	return nil
}

// ChangeLocked adjusts the locked balance by delta. A negative delta
// that would drive the locked amount below zero, or a positive delta
// exceeding the unlocked remainder, is rejected before any mutation.
func (l *Ledger) ChangeLocked(account int64, asset string, delta decimal.Decimal) error {
	e, err := l.lookup(account, asset)
	if err != nil {
		return err
	}
	next := e.locked.Add(delta)
	if next.IsNegative() || next.GreaterThan(e.total) {
		return errors.Wrap(ErrInsufficientBalance,
			fmt.Sprintf("locked asset=%s total=%s have=%s delta=%s", asset, e.total, e.locked, delta))
	}
	e.locked = next
	return nil
}

// Credit deposits a non-negative amount into the account's total.
func (l *Ledger) Credit(account int64, asset string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Wrap(ErrInvalidAmount, fmt.Sprintf("asset=%s amount=%s", asset, amount))
	}
	e, err := l.lookup(account, asset)
	if err != nil {
		return err
	}
	e.total = e.total.Add(amount)
	return nil
}

// Balances returns a snapshot of every non-empty balance the account
// holds, keyed by asset.
func (l *Ledger) Balances(account int64) (map[string]model.Balance, error) {
	balances, ok := l.accounts[account]
	if !ok {
		return nil, errors.Wrap(ErrUnknownAccount, fmt.Sprintf("account=%d", account))
	}
	out := make(map[string]model.Balance, len(balances))
	for asset, e := range balances {
		out[asset] = model.Balance{Total: e.total, Locked: e.locked}
	}
	return out, nil
}

// Accounts returns the registered account ids in ascending order.
func (l *Ledger) Accounts() []int64 {
	ids := make([]int64, 0, len(l.accounts))
	for id := range l.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
