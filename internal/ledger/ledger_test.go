package ledger

import (
	"testing"

	"main/internal/symbol"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := New(symbol.NewTable([]string{"USDT", "BTC", "ADA", "AUD"}))
	l.Register(1)
	return l
}

func TestCreditAndAvailable(t *testing.T) {
	l := newTestLedger(t)

	require.NoError(t, l.Credit(1, "USDT", decimal.NewFromInt(1000)))

	available, err := l.Available(1, "USDT")
	require.NoError(t, err)
	assert.True(t, available.Equal(decimal.NewFromInt(1000)))
}

func TestCreditNegative(t *testing.T) {
	l := newTestLedger(t)
	err := l.Credit(1, "USDT", decimal.NewFromInt(-5))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestUnknownAssetAndAccount(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.Available(1, "DOGE")
	require.ErrorIs(t, err, ErrUnknownAsset)

	_, err = l.Available(99, "USDT")
	require.ErrorIs(t, err, ErrUnknownAccount)

	err = l.ChangeTotal(99, "USDT", decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrUnknownAccount)
}

func TestChangeTotalRejectsNegative(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Credit(1, "USDT", decimal.NewFromInt(100)))

	err := l.ChangeTotal(1, "USDT", decimal.NewFromInt(-150))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// rejected operation must leave the entry untouched
	available, err := l.Available(1, "USDT")
	require.NoError(t, err)
	assert.True(t, available.Equal(decimal.NewFromInt(100)))
}

func TestChangeLockedRejectsOverTotal(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Credit(1, "USDT", decimal.NewFromInt(100)))

	err := l.ChangeLocked(1, "USDT", decimal.NewFromInt(101))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	balances, err := l.Balances(1)
	require.NoError(t, err)
	assert.True(t, balances["USDT"].Locked.IsZero())
}

func TestChangeLockedRejectsNegative(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Credit(1, "USDT", decimal.NewFromInt(100)))
	require.NoError(t, l.ChangeLocked(1, "USDT", decimal.NewFromInt(40)))

	err := l.ChangeLocked(1, "USDT", decimal.NewFromInt(-50))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	balances, err := l.Balances(1)
	require.NoError(t, err)
	assert.True(t, balances["USDT"].Locked.Equal(decimal.NewFromInt(40)))
}

func TestLockedTotalInvariantAcrossSequence(t *testing.T) {
	l := newTestLedger(t)

	ops := []struct {
		fn     func() error
		wantOK bool
	}{
		{func() error { return l.Credit(1, "BTC", decimal.NewFromFloat(0.5)) }, true},
		{func() error { return l.ChangeLocked(1, "BTC", decimal.NewFromFloat(0.3)) }, true},
		{func() error { return l.ChangeTotal(1, "BTC", decimal.NewFromFloat(-0.2)) }, true},
		{func() error { return l.ChangeLocked(1, "BTC", decimal.NewFromFloat(-0.4)) }, false},
		{func() error { return l.ChangeTotal(1, "BTC", decimal.NewFromFloat(-0.4)) }, false},
		{func() error { return l.ChangeLocked(1, "BTC", decimal.NewFromFloat(-0.3)) }, true},
	}

	for i, op := range ops {
		err := op.fn()
		if op.wantOK {
			require.NoErrorf(t, err, "op %d", i)
		} else {
			require.Errorf(t, err, "op %d", i)
		}

		balances, err := l.Balances(1)
		require.NoError(t, err)
		for asset, b := range balances {
			assert.Falsef(t, b.Total.IsNegative(), "op %d asset %s total negative", i, asset)
			assert.Falsef(t, b.Locked.IsNegative(), "op %d asset %s locked negative", i, asset)
		}
	}
}

func TestAccountsSorted(t *testing.T) {
	l := newTestLedger(t)
	l.Register(7)
	l.Register(3)
	assert.Equal(t, []int64{1, 3, 7}, l.Accounts())
}
