package backtest

import (
	"context"
	"sort"

	"main/internal/broker"
	"main/internal/errors"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/report"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

var ErrNotIdle = errors.New("backtest: driver already ran")

// State tracks the driver lifecycle. A driver runs exactly once.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// TickEvent is one resampled trade to replay.
type TickEvent struct {
	Market enum.MarketKind
	Trade  model.Trade
}

// BarEvent is one closed bar to replay.
type BarEvent struct {
	Market enum.MarketKind
	Kline  model.Kline
}

// MarkEvent carries a mark-price and premium reading for a margin
// symbol.
type MarkEvent struct {
	Time    int64
	Symbol  string
	Price   decimal.Decimal
	Premium decimal.Decimal
}

// Driver replays pre-sorted historical sequences through a broker,
// advancing simulated time tick by tick. All data is loaded before Run
// starts; the run itself does no I/O.
type Driver struct {
	broker *broker.Broker
	rec    *report.Recorder
	state  State
	now    int64

	ticks []TickEvent
	bars  []BarEvent
	marks []MarkEvent
}

// New builds a driver and the broker it drives. The broker reads
// simulated time from the driver.
func New(cfg broker.Config) *Driver {
	d := &Driver{rec: report.NewRecorder()}
	d.broker = broker.New(cfg, d.rec, d.Time)
	return d
}

// Broker exposes the driven broker so callers can create clients
// before the run starts.
func (d *Driver) Broker() *broker.Broker {
	return d.broker
}

// Time returns the current simulated time in milliseconds.
func (d *Driver) Time() int64 {
	return d.now
}

// Recorder exposes the report recorder backing this run.
func (d *Driver) Recorder() *report.Recorder {
	return d.rec
}

// State returns the driver lifecycle state.
func (d *Driver) State() State {
	return d.state
}

// AddTicks appends a symbol's trade sequence. Sequences from multiple
// symbols are merged by timestamp; ticks sharing a timestamp keep
// their insertion order.
func (d *Driver) AddTicks(market enum.MarketKind, trades []model.Trade) {
	for _, t := range trades {
		d.ticks = append(d.ticks, TickEvent{Market: market, Trade: t})
	}
	sort.SliceStable(d.ticks, func(i, j int) bool {
		return d.ticks[i].Trade.Time < d.ticks[j].Trade.Time
	})
}

// AddBars appends a symbol's bar sequence, merged by close time.
func (d *Driver) AddBars(market enum.MarketKind, klines []model.Kline) {
	for _, k := range klines {
		d.bars = append(d.bars, BarEvent{Market: market, Kline: k})
	}
	sort.SliceStable(d.bars, func(i, j int) bool {
		return d.bars[i].Kline.CloseTime < d.bars[j].Kline.CloseTime
	})
}

// AddMarks appends a margin symbol's mark-price sequence, merged by
// time.
func (d *Driver) AddMarks(marks []MarkEvent) {
	d.marks = append(d.marks, marks...)
	sort.SliceStable(d.marks, func(i, j int) bool {
		return d.marks[i].Time < d.marks[j].Time
	})
}

// Run replays the loaded data to exhaustion of the tick sequence and
// returns the accumulated report logs. Any ledger or matching error
// halts the run immediately; a halted ledger state must not keep
// replaying. ctx is checked once per time-step.
func (d *Driver) Run(ctx context.Context) (map[string][]report.Row, error) {
	if d.state != StateIdle {
		return nil, errors.Wrapf(ErrNotIdle, "state=%s", d.state)
	}
	d.state = StateRunning
	logs.Infof("backtest: run started ticks=%d bars=%d marks=%d",
		len(d.ticks), len(d.bars), len(d.marks))

	ti, bi, mi := 0, 0, 0
	steps := 0
	for ti < len(d.ticks) {
		select {
		case <-ctx.Done():
			d.state = StateFinished
			return nil, ctx.Err()
		default:
		}

		ts := d.ticks[ti].Trade.Time
		d.now = ts

		for ti < len(d.ticks) && d.ticks[ti].Trade.Time == ts {
			ev := d.ticks[ti]
			if err := d.broker.ApplyTrade(ev.Market, ev.Trade); err != nil {
				d.state = StateFinished
				return nil, errors.Wrapf(err, "tick symbol=%s time=%d", ev.Trade.Symbol, ts)
			}
			ti++
		}

		for mi < len(d.marks) && d.marks[mi].Time <= ts {
			ev := d.marks[mi]
			if err := d.broker.UpdateMarkPrice(ev.Symbol, ev.Price); err != nil {
				d.state = StateFinished
				return nil, errors.Wrapf(err, "mark symbol=%s time=%d", ev.Symbol, ev.Time)
			}
			if err := d.broker.UpdateFundingPremium(ev.Symbol, ev.Premium); err != nil {
				d.state = StateFinished
				return nil, errors.Wrapf(err, "premium symbol=%s time=%d", ev.Symbol, ev.Time)
			}
			mi++
		}

		for bi < len(d.bars) && d.bars[bi].Kline.CloseTime <= ts {
			ev := d.bars[bi]
			if err := d.broker.ApplyBar(ev.Market, ev.Kline); err != nil {
				d.state = StateFinished
				return nil, errors.Wrapf(err, "bar symbol=%s close=%d", ev.Kline.Symbol, ev.Kline.CloseTime)
			}
			bi++
		}

		if err := d.broker.FlushStep(); err != nil {
			d.state = StateFinished
			return nil, errors.Wrapf(err, "flush time=%d", ts)
		}
		steps++
	}

	d.state = StateFinished
	logs.Infof("backtest: run finished steps=%d", steps)
	return d.rec.Export(), nil
}
