// Package book implements the order book and matching engine: price-
// indexed bid/ask queues plus a pending-market-order queue per symbol,
// executed against an externally supplied reference price.
//
// Matching deliberately selects every eligible price level per pass
// instead of crossing best-price-first. The engine replays a single
// external trade tape, not a live double auction, and both sides of
// the book can cross the same reference price in one pass.
package book

import (
	"fmt"
	"sort"

	"main/internal/errors"
	"main/internal/ledger"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/symbol"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownOrder = errors.New("book: unknown order")
	ErrInvalidOrder = errors.New("book: invalid order")
)

// Fees holds the maker/taker commission rates.
type Fees struct {
	Maker decimal.Decimal
	Taker decimal.Decimal
}

// Fill pairs an execution with the account it settled against; the
// broker consumes fills for commission accounting and logging.
type Fill struct {
	Owner      int64
	QuoteAsset string
	Execution  model.Execution
}

// level is one price level: the exact submitted price plus the resting
// orders in arrival order (time priority within the level).
type level struct {
	price  decimal.Decimal
	orders []*Order
}

type sideBook map[string]*level // price string -> level

// Engine matches orders for every symbol of one exchange instance. All
// balance effects go through the ledger; the engine holds no balance
// state of its own.
type Engine struct {
	ledger *ledger.Ledger
	assets *symbol.Table
	fees   Fees
	slip   Slippage

	bids    map[string]sideBook // symbol -> price -> level
	asks    map[string]sideBook
	pending map[string][]*Order // symbol -> market orders awaiting the next tick
	orders  map[int64]*Order
}

// NewEngine creates an empty engine bound to a ledger and asset table.
func NewEngine(l *ledger.Ledger, assets *symbol.Table, fees Fees, slip Slippage) *Engine {
	if slip == nil {
		slip = Flat{}
	}
	return &Engine{
		ledger:  l,
		assets:  assets,
		fees:    fees,
		slip:    slip,
		bids:    make(map[string]sideBook),
		asks:    make(map[string]sideBook),
		pending: make(map[string][]*Order),
		orders:  make(map[int64]*Order),
	}
}

// SubmitMarket locks funds at the current reference price and queues
// the order for execution on the next matching pass. A bid locks
// quantity x price of the quote asset; an ask locks quantity of the
// base asset.
func (e *Engine) SubmitMarket(o *Order, refPrice decimal.Decimal) error {
	if err := validate(o, enum.OrderKindMarket); err != nil {
		return err
	}
	base, quote, err := e.assets.Split(o.Symbol)
	if err != nil {
		return err
	}

	o.LockedPrice = refPrice
	switch o.Side {
	case enum.OrderSideBid:
		err = e.ledger.ChangeLocked(o.Owner, quote, o.Quantity.Mul(refPrice))
	case enum.OrderSideAsk:
		err = e.ledger.ChangeLocked(o.Owner, base, o.Quantity)
	}
	if err != nil {
		return errors.Wrapf(err, "lock market order %d", o.ID)
	}

	e.pending[o.Symbol] = append(e.pending[o.Symbol], o)
	e.orders[o.ID] = o
	return nil
}

// SubmitLimit locks funds at the limit price and rests the order in the
// bid or ask map keyed by its exact price.
func (e *Engine) SubmitLimit(o *Order) error {
	if err := validate(o, enum.OrderKindLimit); err != nil {
		return err
	}
	base, quote, err := e.assets.Split(o.Symbol)
	if err != nil {
		return err
	}

	switch o.Side {
	case enum.OrderSideBid:
		err = e.ledger.ChangeLocked(o.Owner, quote, o.Quantity.Mul(o.LimitPrice))
	case enum.OrderSideAsk:
		err = e.ledger.ChangeLocked(o.Owner, base, o.Quantity)
	}
	if err != nil {
		return errors.Wrapf(err, "lock limit order %d", o.ID)
	}

	side := e.asks
	if o.Side == enum.OrderSideBid {
		side = e.bids
	}
	bookSide, ok := side[o.Symbol]
	if !ok {
		bookSide = make(sideBook)
		side[o.Symbol] = bookSide
	}
	key := o.LimitPrice.String()
	lv, ok := bookSide[key]
	if !ok {
		lv = &level{price: o.LimitPrice}
		bookSide[key] = lv
	}
	lv.orders = append(lv.orders, o)
	e.orders[o.ID] = o
	return nil
}

// Cancel removes the order from whichever structure holds it. Locked
// funds are intentionally NOT released; see the package design notes.
func (e *Engine) Cancel(orderID int64) error {
	o, ok := e.orders[orderID]
	if !ok {
		return errors.Wrap(ErrUnknownOrder, fmt.Sprintf("order=%d", orderID))
	}

	if o.Kind == enum.OrderKindMarket {
		queue := e.pending[o.Symbol]
		for i, q := range queue {
			if q.ID == orderID {
				e.pending[o.Symbol] = append(queue[:i], queue[i+1:]...)
				break
			}
		}
	} else {
		side := e.asks
		if o.Side == enum.OrderSideBid {
			side = e.bids
		}
		if bookSide, ok := side[o.Symbol]; ok {
			key := o.LimitPrice.String()
			if lv, ok := bookSide[key]; ok {
				for i, q := range lv.orders {
					if q.ID == orderID {
						lv.orders = append(lv.orders[:i], lv.orders[i+1:]...)
						break
					}
				}
				if len(lv.orders) == 0 {
					delete(bookSide, key)
				}
			}
		}
	}

	delete(e.orders, orderID)
	return nil
}

// Open reports whether the order is still resting or pending.
func (e *Engine) Open(orderID int64) bool {
	_, ok := e.orders[orderID]
	return ok
}

// Match executes one pass against the reference price: every bid level
// priced at or above it, every ask level priced at or below it (maker
// commission), then the whole pending market queue unconditionally at
// the reference price (taker commission). Returns the fills in
// execution order. Any ledger error aborts the pass immediately.
func (e *Engine) Match(sym string, refPrice decimal.Decimal) ([]Fill, error) {
	var fills []Fill

	crossed := eligibleOrders(e.bids[sym], func(p decimal.Decimal) bool {
		return p.GreaterThanOrEqual(refPrice)
	})
	crossed = append(crossed, eligibleOrders(e.asks[sym], func(p decimal.Decimal) bool {
		return p.LessThanOrEqual(refPrice)
	})...)

	for _, o := range crossed {
		fill, err := e.execute(o, refPrice, e.fees.Maker)
		if err != nil {
			return fills, err
		}
		fills = append(fills, fill)
		e.remove(o)
	}

	// Detach the queue before iterating: a callback may submit a fresh
	// market order, which belongs to the next pass.
	queue := e.pending[sym]
	e.pending[sym] = nil
	for _, o := range queue {
		fill, err := e.execute(o, refPrice, e.fees.Taker)
		if err != nil {
			return fills, err
		}
		fills = append(fills, fill)
		delete(e.orders, o.ID)
	}

	return fills, nil
}

// execute applies one fill: release the lock, debit the sold asset,
// credit the bought asset, debit the commission from the quote asset,
// then notify the order's callback.
func (e *Engine) execute(o *Order, refPrice decimal.Decimal, feeRate decimal.Decimal) (Fill, error) {
	price := e.slip.Adjust(o.Symbol, refPrice)
	base, quote, err := e.assets.Split(o.Symbol)
	if err != nil {
		return Fill{}, err
	}

	value := o.Quantity.Mul(price)
	commission := value.Mul(feeRate)

	switch o.Side {
	case enum.OrderSideBid:
		if err := e.ledger.ChangeLocked(o.Owner, quote, o.lockValue().Neg()); err != nil {
			return Fill{}, errors.Wrapf(err, "release lock order %d", o.ID)
		}
		if err := e.ledger.ChangeTotal(o.Owner, quote, value.Neg()); err != nil {
			return Fill{}, errors.Wrapf(err, "debit quote order %d", o.ID)
		}
		if err := e.ledger.ChangeTotal(o.Owner, base, o.Quantity); err != nil {
			return Fill{}, errors.Wrapf(err, "credit base order %d", o.ID)
		}
	case enum.OrderSideAsk:
		if err := e.ledger.ChangeLocked(o.Owner, base, o.Quantity.Neg()); err != nil {
			return Fill{}, errors.Wrapf(err, "release lock order %d", o.ID)
		}
		if err := e.ledger.ChangeTotal(o.Owner, base, o.Quantity.Neg()); err != nil {
			return Fill{}, errors.Wrapf(err, "debit base order %d", o.ID)
		}
		if err := e.ledger.ChangeTotal(o.Owner, quote, value); err != nil {
			return Fill{}, errors.Wrapf(err, "credit quote order %d", o.ID)
		}
	}

	if err := e.ledger.ChangeTotal(o.Owner, quote, commission.Neg()); err != nil {
		return Fill{}, errors.Wrapf(err, "debit commission order %d", o.ID)
	}

	exec := model.Execution{
		OrderID:    o.ID,
		Symbol:     o.Symbol,
		Side:       o.Side,
		Price:      price,
		Quantity:   o.Quantity,
		Commission: commission,
	}
	if o.Callback != nil {
		o.Callback(exec)
	}
	return Fill{Owner: o.Owner, QuoteAsset: quote, Execution: exec}, nil
}

// remove drops an executed resting order from its level, deleting the
// level once empty.
func (e *Engine) remove(o *Order) {
	side := e.asks
	if o.Side == enum.OrderSideBid {
		side = e.bids
	}
	bookSide, ok := side[o.Symbol]
	if !ok {
		return
	}
	key := o.LimitPrice.String()
	lv, ok := bookSide[key]
	if !ok {
		return
	}
	for i, q := range lv.orders {
		if q.ID == o.ID {
			lv.orders = append(lv.orders[:i], lv.orders[i+1:]...)
			break
		}
	}
	if len(lv.orders) == 0 {
		delete(bookSide, key)
	}
	delete(e.orders, o.ID)
}

// eligibleOrders snapshots every order at a level passing the price
// predicate, levels sorted by price so replay is deterministic, orders
// in arrival order within a level.
func eligibleOrders(side sideBook, pass func(decimal.Decimal) bool) []*Order {
	if len(side) == 0 {
		return nil
	}
	var levels []*level
	for _, lv := range side {
		if pass(lv.price) {
			levels = append(levels, lv)
		}
	}
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].price.LessThan(levels[j].price)
	})
	var orders []*Order
	for _, lv := range levels {
		orders = append(orders, lv.orders...)
	}
	return orders
}

func validate(o *Order, kind enum.OrderKind) error {
	if o.Kind != kind {
		return errors.Wrap(ErrInvalidOrder, fmt.Sprintf("order %d kind=%s", o.ID, o.Kind))
	}
	if !o.Quantity.IsPositive() {
		return errors.Wrap(ErrInvalidOrder, fmt.Sprintf("order %d quantity=%s", o.ID, o.Quantity))
	}
	if o.Side != enum.OrderSideBid && o.Side != enum.OrderSideAsk {
		return errors.Wrap(ErrInvalidOrder, fmt.Sprintf("order %d side=%d", o.ID, o.Side))
	}
	if kind == enum.OrderKindLimit && !o.LimitPrice.IsPositive() {
		return errors.Wrap(ErrInvalidOrder, fmt.Sprintf("order %d limit price=%s", o.ID, o.LimitPrice))
	}
	return nil
}
