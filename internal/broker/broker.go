package broker

import (
	"fmt"
	"strconv"

	"main/internal/book"
	"main/internal/errors"
	"main/internal/feed"
	"main/internal/ledger"
	"main/internal/margin"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/report"
	"main/internal/symbol"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

var (
	ErrInvalidOrderSpec = errors.New("broker: invalid order spec")
	ErrNoMarketData     = errors.New("broker: no market data for symbol")
)

// Recorder log keys.
const (
	logOrders     = "orders"
	logExecutions = "executions"
	logBalances   = "balances"
)

// Broker is the exchange facade for one backtest run. It owns the
// ledger, the matching engine, the feed registry and all id counters;
// strategies talk to it only through Client handles.
type Broker struct {
	cfg      Config
	assets   *symbol.Table
	ledger   *ledger.Ledger
	engine   *book.Engine
	registry *feed.Registry
	rec      *report.Recorder
	now      func() int64

	orderID  int64
	clientID int64

	commissions map[int64]map[string]decimal.Decimal
	lastTrade   map[enum.MarketKind]map[string]model.Trade

	// Margin market state, keyed by client then symbol.
	margins     map[int64]map[string]*margin.Account
	markPrices  map[string]decimal.Decimal
	funding     map[string]decimal.Decimal
	nextFunding int64
}

// New wires a broker from its collaborators. now supplies the current
// simulated time in milliseconds and is owned by the driver.
func New(cfg Config, rec *report.Recorder, now func() int64) *Broker {
	assets := symbol.NewTable(cfg.Assets)
	l := ledger.New(assets)
	markets := map[enum.MarketKind][]string{
		enum.MarketKindSpot:   cfg.SpotSymbols,
		enum.MarketKindMargin: cfg.MarginSymbols,
	}
	return &Broker{
		cfg:      cfg,
		assets:   assets,
		ledger:   l,
		engine:   book.NewEngine(l, assets, cfg.SpotFees, cfg.Slippage),
		registry: feed.NewRegistry(markets, cfg.Intervals),
		rec:      rec,
		now:      now,
		commissions: make(map[int64]map[string]decimal.Decimal),
		lastTrade: map[enum.MarketKind]map[string]model.Trade{
			enum.MarketKindSpot:   make(map[string]model.Trade),
			enum.MarketKindMargin: make(map[string]model.Trade),
		},
		margins:     make(map[int64]map[string]*margin.Account),
		markPrices:  make(map[string]decimal.Decimal),
		funding:     make(map[string]decimal.Decimal),
		nextFunding: -1,
	}
}

// Client issues a handle bound to a fresh account id.
func (b *Broker) Client() *Client {
	b.clientID++
	id := b.clientID
	b.ledger.Register(id)
	b.commissions[id] = make(map[string]decimal.Decimal)
	b.margins[id] = make(map[string]*margin.Account)
	logs.Infof("broker: client %d registered", id)
	return &Client{broker: b, id: id}
}

// Time returns the current simulated time in milliseconds.
func (b *Broker) Time() int64 {
	return b.now()
}

// price returns the last traded price for a symbol in a market.
func (b *Broker) price(market enum.MarketKind, sym string) (decimal.Decimal, error) {
	t, ok := b.lastTrade[market][sym]
	if !ok {
		return decimal.Decimal{}, errors.Wrap(ErrNoMarketData, fmt.Sprintf("market=%s symbol=%s", market, sym))
	}
	return t.Price, nil
}

// ApplyTrade caches a resampled trade and, for the spot market, runs a
// matching pass against its price. Fills are logged and their
// commissions accumulated per client.
func (b *Broker) ApplyTrade(market enum.MarketKind, t model.Trade) error {
	b.lastTrade[market][t.Symbol] = t

	if market != enum.MarketKindSpot {
		return nil
	}

	fills, err := b.engine.Match(t.Symbol, t.Price)
	for _, f := range fills {
		b.addCommission(f.Owner, f.QuoteAsset, f.Execution.Commission)
		b.rec.Append(logExecutions, report.Row{
			Time: b.now(),
			Data: map[string]any{
				"orderID":    f.Execution.OrderID,
				"clientID":   f.Owner,
				"symbol":     f.Execution.Symbol,
				"side":       f.Execution.Side.String(),
				"price":      f.Execution.Price.String(),
				"quantity":   f.Execution.Quantity.String(),
				"commission": f.Execution.Commission.String(),
			},
		})
	}
	if err != nil {
		return errors.Wrapf(err, "match symbol=%s", t.Symbol)
	}
	return nil
}

// ApplyBar buffers a bar into the feed registry for the next publish.
func (b *Broker) ApplyBar(market enum.MarketKind, k model.Kline) error {
	return b.registry.UpdateBar(market, k)
}

// FlushStep closes one driver time-step: settle funding if a boundary
// passed, deliver all buffered market data once, then log aggregate
// balances.
func (b *Broker) FlushStep() error {
	if err := b.settleDueFunding(); err != nil {
		return err
	}
	b.registry.PublishDue()
	b.logBalances()
	return nil
}

func (b *Broker) logBalances() {
	accounts := make(map[string]map[string]string)
	for _, id := range b.ledger.Accounts() {
		balances, err := b.ledger.Balances(id)
		if err != nil {
			continue
		}
		totals := make(map[string]string, len(balances))
		for asset, bal := range balances {
			totals[asset] = bal.Total.String()
		}
		accounts[strconv.FormatInt(id, 10)] = totals
	}
	b.rec.Append(logBalances, report.Row{
		Time: b.now(),
		Data: map[string]any{"accounts": accounts},
	})
}

func (b *Broker) addCommission(client int64, asset string, amount decimal.Decimal) {
	totals, ok := b.commissions[client]
	if !ok {
		totals = make(map[string]decimal.Decimal)
		b.commissions[client] = totals
	}
	totals[asset] = totals[asset].Add(amount)
}

func (b *Broker) submitOrder(client int64, spec OrderSpec) (int64, error) {
	if spec.Quantity.LessThanOrEqual(decimal.Zero) {
		return 0, errors.Wrap(ErrInvalidOrderSpec, fmt.Sprintf("quantity=%s", spec.Quantity))
	}
	if spec.Kind == enum.OrderKindLimit && spec.LimitPrice.LessThanOrEqual(decimal.Zero) {
		return 0, errors.Wrap(ErrInvalidOrderSpec, "limit order without price")
	}

	b.orderID++
	o := &book.Order{
		ID:         b.orderID,
		Owner:      client,
		Symbol:     spec.Symbol,
		Side:       spec.Side,
		Kind:       spec.Kind,
		Quantity:   spec.Quantity,
		LimitPrice: spec.LimitPrice,
		Callback:   spec.Callback,
	}

	var err error
	switch spec.Kind {
	case enum.OrderKindMarket:
		var ref decimal.Decimal
		ref, err = b.price(enum.MarketKindSpot, spec.Symbol)
		if err == nil {
			err = b.engine.SubmitMarket(o, ref)
		}
	case enum.OrderKindLimit:
		err = b.engine.SubmitLimit(o)
	default:
		err = errors.Wrap(ErrInvalidOrderSpec, fmt.Sprintf("kind=%s", spec.Kind))
	}
	if err != nil {
		b.orderID--
		return 0, err
	}

	b.rec.Append(logOrders, report.Row{
		Time: b.now(),
		Data: map[string]any{
			"orderID":  o.ID,
			"clientID": client,
			"symbol":   o.Symbol,
			"side":     o.Side.String(),
			"kind":     o.Kind.String(),
			"quantity": o.Quantity.String(),
		},
	})
	return o.ID, nil
}
