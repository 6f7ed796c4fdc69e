package backtest

import (
	"context"
	"testing"

	"main/internal/broker"
	"main/internal/model"
	"main/internal/model/enum"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tick(sym, price string, ts int64) model.Trade {
	return model.Trade{Symbol: sym, Time: ts, Price: d(price), Qty: d("1"), QuoteQty: d(price)}
}

func TestStateMachine(t *testing.T) {
	drv := New(broker.DefaultConfig())
	assert.Equal(t, StateIdle, drv.State())

	drv.AddTicks(enum.MarketKindSpot, []model.Trade{tick("BTCUSDT", "50000", 1000)})

	_, err := drv.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFinished, drv.State())
	assert.EqualValues(t, 1000, drv.Time())

	_, err = drv.Run(context.Background())
	require.ErrorIs(t, err, ErrNotIdle)
}

func TestSharedTimestampTicksApplyBeforeBars(t *testing.T) {
	drv := New(broker.DefaultConfig())
	c := drv.Broker().Client()
	require.NoError(t, c.Deposit("BTC", d("1")))
	require.NoError(t, c.Deposit("ADA", d("1000")))

	var sequence []string
	require.NoError(t, c.SubscribeBars(enum.MarketKindSpot, "BTCUSDT", "1m", func(model.Kline) {
		sequence = append(sequence, "bar")
	}))

	submit := func(sym, price, qty string) {
		_, err := c.SubmitOrder(broker.OrderSpec{
			Symbol: sym, Side: enum.OrderSideAsk, Kind: enum.OrderKindLimit,
			Quantity: d(qty), LimitPrice: d(price),
			Callback: func(x model.Execution) {
				sequence = append(sequence, "fill:"+x.Symbol)
			},
		})
		require.NoError(t, err)
	}
	submit("BTCUSDT", "50000", "0.1")
	submit("ADAAUD", "0.5", "100")

	// both ticks share timestamp 2000; the bar closes at 1500 and must
	// still be delivered after both matches
	drv.AddTicks(enum.MarketKindSpot, []model.Trade{tick("BTCUSDT", "50000", 2000)})
	drv.AddTicks(enum.MarketKindSpot, []model.Trade{tick("ADAAUD", "0.5", 2000)})
	drv.AddBars(enum.MarketKindSpot, []model.Kline{{
		Symbol: "BTCUSDT", Interval: "1m", OpenTime: 1440, CloseTime: 1500, Close: d("50000"),
	}})

	_, err := drv.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"fill:BTCUSDT", "fill:ADAAUD", "bar"}, sequence)
}

func TestBarsNeverTriggerMatch(t *testing.T) {
	drv := New(broker.DefaultConfig())
	c := drv.Broker().Client()
	require.NoError(t, c.Deposit("BTC", d("1")))

	filled := false
	_, err := c.SubmitOrder(broker.OrderSpec{
		Symbol: "BTCUSDT", Side: enum.OrderSideAsk, Kind: enum.OrderKindLimit,
		Quantity: d("0.1"), LimitPrice: d("50000"),
		Callback: func(model.Execution) { filled = true },
	})
	require.NoError(t, err)

	// crossing close price arrives only as a bar, tick stays below
	drv.AddTicks(enum.MarketKindSpot, []model.Trade{tick("BTCUSDT", "49000", 2000)})
	drv.AddBars(enum.MarketKindSpot, []model.Kline{{
		Symbol: "BTCUSDT", Interval: "1m", CloseTime: 1500, Close: d("51000"),
	}})

	_, err = drv.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, filled)
}

func TestRunHaltsOnCoreError(t *testing.T) {
	drv := New(broker.DefaultConfig())

	drv.AddTicks(enum.MarketKindSpot, []model.Trade{
		tick("BTCUSDT", "50000", 1000),
		tick("BTCUSDT", "50100", 2000),
	})
	// unlisted symbol fails inside the step
	drv.AddBars(enum.MarketKindSpot, []model.Kline{{
		Symbol: "ETHUSDT", Interval: "1m", CloseTime: 500, Close: d("1"),
	}})

	_, err := drv.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFinished, drv.State())
}

func TestRunHonorsContext(t *testing.T) {
	drv := New(broker.DefaultConfig())
	drv.AddTicks(enum.MarketKindSpot, []model.Trade{tick("BTCUSDT", "50000", 1000)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := drv.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFinished, drv.State())
}

func TestRunExportsLogs(t *testing.T) {
	drv := New(broker.DefaultConfig())
	c := drv.Broker().Client()
	require.NoError(t, c.Deposit("USDT", d("1000")))

	drv.AddTicks(enum.MarketKindSpot, []model.Trade{
		tick("BTCUSDT", "50000", 1000),
		tick("BTCUSDT", "50100", 2000),
	})

	out, err := drv.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out["balances"], 2, "one balances row per time-step")
	assert.EqualValues(t, 1000, out["balances"][0].Time)
	assert.EqualValues(t, 2000, out["balances"][1].Time)
}

func TestMarkEventsReachMarginAccounts(t *testing.T) {
	drv := New(broker.DefaultConfig())
	c := drv.Broker().Client()

	a, err := c.MarginAccount("BTCUSDT")
	require.NoError(t, err)

	var marks []model.MarkPrice
	require.NoError(t, c.SubscribeMarkPrice("BTCUSDT", func(m model.MarkPrice) {
		marks = append(marks, m)
	}))

	drv.AddTicks(enum.MarketKindSpot, []model.Trade{tick("BTCUSDT", "50000", 2000)})
	drv.AddMarks([]MarkEvent{{
		Time: 1500, Symbol: "BTCUSDT", Price: d("50010"), Premium: d("0.0001"),
	}})

	_, err = drv.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.True(t, a.MarkPrice.Equal(d("50010")))
	// premium equal to the interest rate passes through unclamped
	assert.True(t, marks[0].FundingRate.Equal(d("0.0001")), "rate %s", marks[0].FundingRate)
}
