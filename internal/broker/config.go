package broker

import (
	"main/internal/book"
	"main/internal/model"

	"github.com/shopspring/decimal"
)

// Config fixes the exchange surface of one simulated venue: tradable
// assets, listed symbols per market, bar intervals and fee rates.
type Config struct {
	Assets        []string
	SpotSymbols   []string
	MarginSymbols []string
	Intervals     []model.Interval

	SpotFees    book.Fees
	FuturesFees book.Fees

	// Funding-rate inputs for the margin market.
	InterestRate decimal.Decimal
	PremiumCap   decimal.Decimal

	MaintenanceRate decimal.Decimal
	DefaultLeverage int64

	// FundingInterval is the simulated-time spacing of funding
	// settlements, in milliseconds.
	FundingInterval int64

	Slippage book.Slippage
}

// DefaultConfig mirrors the exchange constants of the venue being
// simulated.
func DefaultConfig() Config {
	return Config{
		Assets:        []string{"USDT", "BTC", "ADA", "AUD"},
		SpotSymbols:   []string{"BTCUSDT", "ADAAUD"},
		MarginSymbols: []string{"BTCUSDT"},
		Intervals: []model.Interval{
			"1m", "3m", "5m", "15m", "30m",
			"1h", "2h", "4h", "6h", "8h",
			"1d", "3d", "1w", "1M",
		},
		SpotFees: book.Fees{
			Maker: decimal.NewFromFloat(0.001),
			Taker: decimal.NewFromFloat(0.001),
		},
		FuturesFees: book.Fees{
			Maker: decimal.NewFromFloat(0.0002),
			Taker: decimal.NewFromFloat(0.0004),
		},
		InterestRate:    decimal.NewFromFloat(0.0001),
		PremiumCap:      decimal.NewFromFloat(0.0005),
		MaintenanceRate: decimal.NewFromFloat(0.004),
		DefaultLeverage: 20,
		FundingInterval: 8 * 60 * 60 * 1000,
	}
}
