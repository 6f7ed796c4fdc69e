package feed

import (
	"fmt"
	"sort"

	"main/internal/errors"
	"main/internal/model"
	"main/internal/model/enum"
)

var (
	ErrUnsupportedSymbol   = errors.New("feed: symbol not listed on market")
	ErrUnsupportedInterval = errors.New("feed: unsupported interval")
)

// BarCallback receives the latest bar for a subscribed key.
type BarCallback func(model.Kline)

// MarkCallback receives the latest mark price and funding rate.
type MarkCallback func(model.MarkPrice)

type barKey struct {
	Market   enum.MarketKind
	Symbol   string
	Interval model.Interval
}

// Registry buffers incoming market data per key and fans the latest
// value out to subscribers once per driver step. Updates landing
// between two publishes overwrite in place, so subscribers only ever
// see the freshest value per key.
type Registry struct {
	intervals map[model.Interval]struct{}
	markets   map[enum.MarketKind]map[string]struct{}

	barSubs  map[barKey]map[int64]BarCallback
	markSubs map[string]map[int64]MarkCallback

	barCache  map[barKey]model.Kline
	markCache map[string]model.MarkPrice

	dirtyBars    []barKey
	dirtyBarSet  map[barKey]struct{}
	dirtyMarks   []string
	dirtyMarkSet map[string]struct{}
}

// NewRegistry builds a registry for the given market symbol lists and
// supported bar intervals.
func NewRegistry(markets map[enum.MarketKind][]string, intervals []model.Interval) *Registry {
	ms := make(map[enum.MarketKind]map[string]struct{}, len(markets))
	for mkt, symbols := range markets {
		set := make(map[string]struct{}, len(symbols))
		for _, s := range symbols {
			set[s] = struct{}{}
		}
		ms[mkt] = set
	}
	is := make(map[model.Interval]struct{}, len(intervals))
	for _, i := range intervals {
		is[i] = struct{}{}
	}
	return &Registry{
		intervals:    is,
		markets:      ms,
		barSubs:      make(map[barKey]map[int64]BarCallback),
		markSubs:     make(map[string]map[int64]MarkCallback),
		barCache:     make(map[barKey]model.Kline),
		markCache:    make(map[string]model.MarkPrice),
		dirtyBarSet:  make(map[barKey]struct{}),
		dirtyMarkSet: make(map[string]struct{}),
	}
}

func (r *Registry) checkKey(market enum.MarketKind, symbol string, interval model.Interval) error {
	symbols, ok := r.markets[market]
	if !ok {
		return errors.Wrap(ErrUnsupportedSymbol, fmt.Sprintf("market=%s", market))
	}
	if _, ok := symbols[symbol]; !ok {
		return errors.Wrap(ErrUnsupportedSymbol, fmt.Sprintf("market=%s symbol=%s", market, symbol))
	}
	if _, ok := r.intervals[interval]; !ok {
		return errors.Wrap(ErrUnsupportedInterval, fmt.Sprintf("interval=%s", interval))
	}
	return nil
}

// SubscribeBars registers a bar callback for (market, symbol, interval).
// A second subscription with the same subscriber id replaces the first.
func (r *Registry) SubscribeBars(market enum.MarketKind, symbol string, interval model.Interval, subscriber int64, cb BarCallback) error {
	if err := r.checkKey(market, symbol, interval); err != nil {
		return err
	}
	key := barKey{Market: market, Symbol: symbol, Interval: interval}
	subs, ok := r.barSubs[key]
	if !ok {
		subs = make(map[int64]BarCallback)
		r.barSubs[key] = subs
	}
	subs[subscriber] = cb
	return nil
}

// UnsubscribeBars removes a bar subscription. Unsubscribing a key the
// subscriber never held is a no-op once the key itself validates.
func (r *Registry) UnsubscribeBars(market enum.MarketKind, symbol string, interval model.Interval, subscriber int64) error {
	if err := r.checkKey(market, symbol, interval); err != nil {
		return err
	}
	key := barKey{Market: market, Symbol: symbol, Interval: interval}
	if subs, ok := r.barSubs[key]; ok {
		delete(subs, subscriber)
		if len(subs) == 0 {
			delete(r.barSubs, key)
		}
	}
	return nil
}

// SubscribeMark registers a mark-price callback for a margin symbol.
func (r *Registry) SubscribeMark(symbol string, subscriber int64, cb MarkCallback) error {
	if err := r.checkMarkSymbol(symbol); err != nil {
		return err
	}
	subs, ok := r.markSubs[symbol]
	if !ok {
		subs = make(map[int64]MarkCallback)
		r.markSubs[symbol] = subs
	}
	subs[subscriber] = cb
	return nil
}

// UnsubscribeMark removes a mark-price subscription.
func (r *Registry) UnsubscribeMark(symbol string, subscriber int64) error {
	if err := r.checkMarkSymbol(symbol); err != nil {
		return err
	}
	if subs, ok := r.markSubs[symbol]; ok {
		delete(subs, subscriber)
		if len(subs) == 0 {
			delete(r.markSubs, symbol)
		}
	}
	return nil
}

func (r *Registry) checkMarkSymbol(symbol string) error {
	symbols, ok := r.markets[enum.MarketKindMargin]
	if !ok {
		return errors.Wrap(ErrUnsupportedSymbol, "no margin market")
	}
	if _, ok := symbols[symbol]; !ok {
		return errors.Wrap(ErrUnsupportedSymbol, fmt.Sprintf("symbol=%s", symbol))
	}
	return nil
}

// UpdateBar buffers a bar and marks its key dirty for the next publish.
func (r *Registry) UpdateBar(market enum.MarketKind, k model.Kline) error {
	if err := r.checkKey(market, k.Symbol, k.Interval); err != nil {
		return err
	}
	key := barKey{Market: market, Symbol: k.Symbol, Interval: k.Interval}
	r.barCache[key] = k
	if _, ok := r.dirtyBarSet[key]; !ok {
		r.dirtyBarSet[key] = struct{}{}
		r.dirtyBars = append(r.dirtyBars, key)
	}
	return nil
}

// UpdateMark buffers a mark price and marks its symbol dirty.
func (r *Registry) UpdateMark(m model.MarkPrice) error {
	if err := r.checkMarkSymbol(m.Symbol); err != nil {
		return err
	}
	r.markCache[m.Symbol] = m
	if _, ok := r.dirtyMarkSet[m.Symbol]; !ok {
		r.dirtyMarkSet[m.Symbol] = struct{}{}
		r.dirtyMarks = append(r.dirtyMarks, m.Symbol)
	}
	return nil
}

// PublishDue delivers the latest cached value for every dirty key to
// its current subscribers, then clears the dirty sets. Mark prices go
// out first, then spot bars, then margin bars. Keys are visited in the
// order they first dirtied and subscribers in ascending id order,
// keeping replay deterministic.
func (r *Registry) PublishDue() {
	for _, sym := range r.dirtyMarks {
		m := r.markCache[sym]
		for _, id := range sortedIDs(r.markSubs[sym]) {
			r.markSubs[sym][id](m)
		}
	}
	for _, market := range []enum.MarketKind{enum.MarketKindSpot, enum.MarketKindMargin} {
		for _, key := range r.dirtyBars {
			if key.Market != market {
				continue
			}
			k := r.barCache[key]
			for _, id := range sortedIDs(r.barSubs[key]) {
				r.barSubs[key][id](k)
			}
		}
	}
	r.dirtyMarks = r.dirtyMarks[:0]
	r.dirtyBars = r.dirtyBars[:0]
	clear(r.dirtyMarkSet)
	clear(r.dirtyBarSet)
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
