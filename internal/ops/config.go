package ops

import (
	"encoding/json"
	"fmt"
	"os"

	"main/internal/broker"
	"main/internal/errors"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/strategy"
	"main/pkg/conn"

	"github.com/shopspring/decimal"
)

var ErrInvalidConfig = errors.New("ops: invalid config")

// FileConfig mirrors the JSON run-config layout. Every exchange field
// is optional and falls back to the venue defaults.
type FileConfig struct {
	Run      string          `json:"run"`
	Exchange ExchangeConfig  `json:"exchange"`
	Data     DataConfig      `json:"data"`
	Strategy StrategyConfig  `json:"strategy"`
	Postgres *PostgresConfig `json:"postgres"`
}

// ExchangeConfig overrides the simulated venue constants. Decimal
// fields are strings to keep exact values through JSON.
type ExchangeConfig struct {
	Assets          []string `json:"assets"`
	SpotSymbols     []string `json:"spotSymbols"`
	MarginSymbols   []string `json:"marginSymbols"`
	Intervals       []string `json:"intervals"`
	SpotMakerFee    string   `json:"spotMakerFee"`
	SpotTakerFee    string   `json:"spotTakerFee"`
	FuturesMakerFee string   `json:"futuresMakerFee"`
	FuturesTakerFee string   `json:"futuresTakerFee"`
	InterestRate    string   `json:"interestRate"`
	PremiumCap      string   `json:"premiumCap"`
	MaintenanceRate string   `json:"maintenanceRate"`
	DefaultLeverage int64    `json:"defaultLeverage"`
}

// DataConfig lists the historical dumps to replay.
type DataConfig struct {
	Klines []KlineFile `json:"klines"`
	Trades []TradeFile `json:"trades"`
}

// KlineFile points at one kline dump.
type KlineFile struct {
	Path     string `json:"path"`
	Market   string `json:"market"`
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
}

// TradeFile points at one trade dump.
type TradeFile struct {
	Path   string `json:"path"`
	Market string `json:"market"`
	Symbol string `json:"symbol"`
}

// StrategyConfig selects and parameterizes the strategy to run.
type StrategyConfig struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Fast     int    `json:"fast"`
	Slow     int    `json:"slow"`
	Quantity string `json:"quantity"`
	Deposit  string `json:"deposit"`
}

// PostgresConfig enables result export when present.
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
}

// Loaded is the resolved run configuration.
type Loaded struct {
	Run      string
	Broker   broker.Config
	Klines   []KlineFile
	Trades   []TradeFile
	Strategy strategy.Strategy
	Deposit  decimal.Decimal
	Postgres *conn.Option
}

// Load reads a JSON run config and resolves it against the venue
// defaults.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse resolves a raw JSON run config.
func Parse(data []byte) (Loaded, error) {
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "unmarshal config")
	}

	bc, err := resolveExchange(cfg.Exchange)
	if err != nil {
		return Loaded{}, err
	}
	strat, deposit, err := resolveStrategy(cfg.Strategy)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{
		Run:      cfg.Run,
		Broker:   bc,
		Klines:   cfg.Data.Klines,
		Trades:   cfg.Data.Trades,
		Strategy: strat,
		Deposit:  deposit,
	}
	if loaded.Run == "" {
		loaded.Run = "backtest"
	}
	if cfg.Postgres != nil {
		loaded.Postgres = &conn.Option{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}
	}
	return loaded, nil
}

// ParseMarket maps a config market name onto its kind. An empty name
// defaults to spot.
func ParseMarket(name string) (enum.MarketKind, error) {
	switch name {
	case "spot", "":
		return enum.MarketKindSpot, nil
	case "margin":
		return enum.MarketKindMargin, nil
	default:
		return enum.MarketKindUnknown, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("market=%s", name))
	}
}

func resolveExchange(ec ExchangeConfig) (broker.Config, error) {
	bc := broker.DefaultConfig()
	if len(ec.Assets) > 0 {
		bc.Assets = ec.Assets
	}
	if len(ec.SpotSymbols) > 0 {
		bc.SpotSymbols = ec.SpotSymbols
	}
	if len(ec.MarginSymbols) > 0 {
		bc.MarginSymbols = ec.MarginSymbols
	}
	if len(ec.Intervals) > 0 {
		bc.Intervals = bc.Intervals[:0]
		for _, i := range ec.Intervals {
			bc.Intervals = append(bc.Intervals, model.Interval(i))
		}
	}
	if ec.DefaultLeverage > 0 {
		bc.DefaultLeverage = ec.DefaultLeverage
	}

	fields := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{ec.SpotMakerFee, &bc.SpotFees.Maker},
		{ec.SpotTakerFee, &bc.SpotFees.Taker},
		{ec.FuturesMakerFee, &bc.FuturesFees.Maker},
		{ec.FuturesTakerFee, &bc.FuturesFees.Taker},
		{ec.InterestRate, &bc.InterestRate},
		{ec.PremiumCap, &bc.PremiumCap},
		{ec.MaintenanceRate, &bc.MaintenanceRate},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return broker.Config{}, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("decimal %q", f.raw))
		}
		*f.dst = v
	}
	return bc, nil
}

func resolveStrategy(sc StrategyConfig) (strategy.Strategy, decimal.Decimal, error) {
	deposit := decimal.Zero
	if sc.Deposit != "" {
		v, err := decimal.NewFromString(sc.Deposit)
		if err != nil {
			return nil, decimal.Zero, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("deposit %q", sc.Deposit))
		}
		deposit = v
	}

	switch sc.Name {
	case "", "none":
		return nil, deposit, nil
	case "sma-cross":
		qty, err := decimal.NewFromString(sc.Quantity)
		if err != nil {
			return nil, decimal.Zero, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("quantity %q", sc.Quantity))
		}
		if sc.Fast <= 0 || sc.Slow <= sc.Fast {
			return nil, decimal.Zero, errors.Wrap(ErrInvalidConfig,
				fmt.Sprintf("sma windows fast=%d slow=%d", sc.Fast, sc.Slow))
		}
		return &strategy.SMACross{
			Symbol:   sc.Symbol,
			Interval: model.Interval(sc.Interval),
			Fast:     sc.Fast,
			Slow:     sc.Slow,
			Quantity: qty,
		}, deposit, nil
	default:
		return nil, decimal.Zero, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("strategy=%s", sc.Name))
	}
}
