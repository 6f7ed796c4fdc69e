package broker

import (
	"main/internal/book"
	"main/internal/feed"
	"main/internal/model"
	"main/internal/model/enum"

	"github.com/shopspring/decimal"
)

// OrderSpec is the client-facing order request. Market orders ignore
// LimitPrice; the Callback, if set, fires synchronously on execution.
type OrderSpec struct {
	Symbol     string
	Side       enum.OrderSide
	Kind       enum.OrderKind
	Quantity   decimal.Decimal
	LimitPrice decimal.Decimal
	Callback   book.Callback
}

// Client is a strategy's handle onto the broker, bound to one account.
type Client struct {
	broker *Broker
	id     int64
}

// ID returns the account id this handle is bound to.
func (c *Client) ID() int64 {
	return c.id
}

// SubscribeBars registers a bar callback for (market, symbol, interval).
func (c *Client) SubscribeBars(market enum.MarketKind, sym string, interval model.Interval, cb feed.BarCallback) error {
	return c.broker.registry.SubscribeBars(market, sym, interval, c.id, cb)
}

// UnsubscribeBars removes a bar subscription.
func (c *Client) UnsubscribeBars(market enum.MarketKind, sym string, interval model.Interval) error {
	return c.broker.registry.UnsubscribeBars(market, sym, interval, c.id)
}

// SubscribeMarkPrice registers a mark-price callback for a margin symbol.
func (c *Client) SubscribeMarkPrice(sym string, cb feed.MarkCallback) error {
	return c.broker.registry.SubscribeMark(sym, c.id, cb)
}

// UnsubscribeMarkPrice removes a mark-price subscription.
func (c *Client) UnsubscribeMarkPrice(sym string) error {
	return c.broker.registry.UnsubscribeMark(sym, c.id)
}

// SubmitOrder places a spot order and returns its id.
func (c *Client) SubmitOrder(spec OrderSpec) (int64, error) {
	return c.broker.submitOrder(c.id, spec)
}

// CancelOrder removes an open order.
func (c *Client) CancelOrder(orderID int64) error {
	return c.broker.engine.Cancel(orderID)
}

// Balances returns a snapshot of the account's asset balances.
func (c *Client) Balances() (map[string]model.Balance, error) {
	return c.broker.ledger.Balances(c.id)
}

// Commissions returns the total commission paid so far, per asset.
func (c *Client) Commissions() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.broker.commissions[c.id]))
	for asset, total := range c.broker.commissions[c.id] {
		out[asset] = total
	}
	return out
}

// Deposit credits the account with an asset amount.
func (c *Client) Deposit(asset string, amount decimal.Decimal) error {
	return c.broker.ledger.Credit(c.id, asset, amount)
}
