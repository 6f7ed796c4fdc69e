package histdata

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

const klineCSV = `1633046400000,43820.01,43880.00,43750.52,43800.10,12.34567,1633047299999,540123.45,987,6.17,270061.72,0
1633047300000,43800.10,43900.00,43799.00,43890.55,8.76543,1633048199999,384567.89,654,4.38,192283.94,0
`

func TestReadKlines(t *testing.T) {
	klines, err := ReadKlines(strings.NewReader(klineCSV), "BTCUSDT", "15m")
	require.NoError(t, err)
	require.Len(t, klines, 2)

	k := klines[0]
	assert.Equal(t, "BTCUSDT", k.Symbol)
	assert.EqualValues(t, 1633046400000, k.OpenTime)
	assert.EqualValues(t, 1633047299999, k.CloseTime)
	assert.True(t, k.Open.Equal(d("43820.01")))
	assert.True(t, k.High.Equal(d("43880.00")))
	assert.True(t, k.Low.Equal(d("43750.52")))
	assert.True(t, k.Close.Equal(d("43800.10")))
	assert.True(t, k.Volume.Equal(d("12.34567")))
	assert.EqualValues(t, 987, k.TradeCount)
}

func TestReadKlinesRejectsBadRows(t *testing.T) {
	_, err := ReadKlines(strings.NewReader("1,2,3\n"), "BTCUSDT", "15m")
	require.Error(t, err)

	bad := `notatime,43820.01,43880.00,43750.52,43800.10,12.34567,1633047299999,1,987,1,1,0` + "\n"
	_, err = ReadKlines(strings.NewReader(bad), "BTCUSDT", "15m")
	require.ErrorIs(t, err, ErrBadRecord)
}

const tradeCSV = `100,50000,0.5,25000,1633046401234,true,true
101,50010,0.5,25005,1633046405000,false,true
102,50200,1,50200,1633046412000,true,true
`

func TestReadTrades(t *testing.T) {
	trades, err := ReadTrades(strings.NewReader(tradeCSV))
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.EqualValues(t, 100, trades[0].ID)
	assert.EqualValues(t, 1633046401234, trades[0].Time)
	assert.True(t, trades[2].Price.Equal(d("50200")))
}

func TestResampleTrades(t *testing.T) {
	trades, err := ReadTrades(strings.NewReader(tradeCSV))
	require.NoError(t, err)

	out := ResampleTrades("BTCUSDT", trades)
	require.Len(t, out, 2)

	// first bucket: two trades floored to ...400000
	first := out[0]
	assert.EqualValues(t, 1633046400000, first.Time)
	assert.True(t, first.Price.Equal(d("50005")), "mean price %s", first.Price)
	assert.True(t, first.Qty.Equal(d("1")))
	assert.True(t, first.QuoteQty.Equal(d("50005")))

	// second bucket: lone trade floored to ...410000
	second := out[1]
	assert.EqualValues(t, 1633046410000, second.Time)
	assert.True(t, second.Price.Equal(d("50200")))
	assert.True(t, second.Qty.Equal(d("1")))
}

func TestResampleEmpty(t *testing.T) {
	assert.Empty(t, ResampleTrades("BTCUSDT", nil))
}
