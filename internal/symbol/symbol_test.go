package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	table := NewTable([]string{"USDT", "BTC", "ADA", "AUD"})

	base, quote, err := table.Split("BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "BTC", base)
	assert.Equal(t, "USDT", quote)

	base, quote, err = table.Split("ADAAUD")
	require.NoError(t, err)
	assert.Equal(t, "ADA", base)
	assert.Equal(t, "AUD", quote)
}

func TestSplitUnknown(t *testing.T) {
	table := NewTable([]string{"USDT", "BTC"})

	_, _, err := table.Split("ETHUSDT")
	require.ErrorIs(t, err, ErrUnsplittable)

	_, _, err = table.Split("BTC")
	require.ErrorIs(t, err, ErrUnsplittable)
}

func TestHas(t *testing.T) {
	table := NewTable([]string{"USDT"})
	assert.True(t, table.Has("USDT"))
	assert.False(t, table.Has("BTC"))
}
