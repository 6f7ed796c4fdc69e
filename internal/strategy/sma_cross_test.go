package strategy

import (
	"context"
	"testing"

	"main/internal/backtest"
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

func TestSMACrossRoundTrip(t *testing.T) {
	drv := backtest.New(broker.DefaultConfig())
	c := drv.Broker().Client()
	require.NoError(t, c.Deposit("USDT", d("1000")))

	s := &SMACross{
		Symbol:   "BTCUSDT",
		Interval: "15m",
		Fast:     2,
		Slow:     3,
		Quantity: d("0.01"),
	}
	require.NoError(t, s.Init(c))

	closes := []string{"100", "100", "100", "120", "80", "60", "60"}
	var ticks []model.Trade
	var bars []model.Kline
	for i, close := range closes {
		ts := int64(i+1) * 1000
		ticks = append(ticks, model.Trade{
			Symbol: "BTCUSDT", Time: ts, Price: d("100"), Qty: d("1"), QuoteQty: d("100"),
		})
		bars = append(bars, model.Kline{
			Symbol: "BTCUSDT", Interval: "15m", CloseTime: ts, Close: d(close),
		})
	}
	drv.AddTicks(enum.MarketKindSpot, ticks)
	drv.AddBars(enum.MarketKindSpot, bars)

	out, err := drv.Run(context.Background())
	require.NoError(t, err)

	// one buy on the upward cross, one sell on the downward cross,
	// both filled by the following tick
	require.Len(t, out["orders"], 2)
	require.Len(t, out["executions"], 2)
	assert.Equal(t, "bid", out["orders"][0].Data["side"])
	assert.Equal(t, "ask", out["orders"][1].Data["side"])

	balances, err := c.Balances()
	require.NoError(t, err)
	assert.True(t, balances["BTC"].Total.IsZero())
	// round trip at the same price costs two commissions of 0.001
	assert.True(t, balances["USDT"].Total.Equal(d("999.998")), "usdt %s", balances["USDT"].Total)
}
