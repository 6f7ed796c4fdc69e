package broker

import (
	"fmt"
	"sort"

	"main/internal/errors"
	"main/internal/ledger"
	"main/internal/margin"
	"main/internal/model"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

// Margin market plumbing: mark-price distribution, per-client margin
// accounts, wallet transfers and periodic funding settlement.

// UpdateMarkPrice caches a new mark price for a margin symbol, feeds it
// to every open margin account on that symbol and buffers it for the
// next publish.
func (b *Broker) UpdateMarkPrice(sym string, price decimal.Decimal) error {
	b.markPrices[sym] = price
	for _, accounts := range b.margins {
		if a, ok := accounts[sym]; ok {
			a.SetMarkPrice(price)
		}
	}
	return b.registry.UpdateMark(model.MarkPrice{
		Symbol:      sym,
		Price:       price,
		FundingRate: b.funding[sym],
	})
}

// UpdateFundingPremium recomputes the funding rate of a margin symbol
// from a new premium reading and buffers the pair for publish.
func (b *Broker) UpdateFundingPremium(sym string, premium decimal.Decimal) error {
	rate := margin.FundingRate(premium, b.cfg.InterestRate, b.cfg.PremiumCap)
	b.funding[sym] = rate
	return b.registry.UpdateMark(model.MarkPrice{
		Symbol:      sym,
		Price:       b.markPrices[sym],
		FundingRate: rate,
	})
}

// settleDueFunding pays funding on every margin account once the next
// settlement boundary passes. The first observed step only anchors the
// schedule.
func (b *Broker) settleDueFunding() error {
	now := b.now()
	if b.nextFunding < 0 {
		b.nextFunding = nextBoundary(now, b.cfg.FundingInterval)
		return nil
	}
	if now < b.nextFunding {
		return nil
	}

	for _, client := range sortedClients(b.margins) {
		for sym, a := range b.margins[client] {
			if a.Size.IsZero() {
				continue
			}
			rate := b.funding[sym]
			amount := a.FundingAmount(rate)
			a.SettleFunding(rate)
			logs.Infof("broker: funding settled client=%d symbol=%s rate=%s amount=%s",
				client, sym, rate, amount)
		}
	}
	b.nextFunding = nextBoundary(now, b.cfg.FundingInterval)
	return nil
}

func nextBoundary(now, interval int64) int64 {
	return (now/interval + 1) * interval
}

func sortedClients(m map[int64]map[string]*margin.Account) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MarginAccount returns the client's margin account for a symbol,
// creating it with the default leverage on first use.
func (c *Client) MarginAccount(sym string) (*margin.Account, error) {
	if a, ok := c.broker.margins[c.id][sym]; ok {
		return a, nil
	}
	if !containsSymbol(c.broker.cfg.MarginSymbols, sym) {
		return nil, errors.Wrap(ErrNoMarketData, fmt.Sprintf("margin symbol=%s", sym))
	}
	a, err := margin.NewAccount(sym, c.broker.cfg.DefaultLeverage, c.broker.cfg.MaintenanceRate)
	if err != nil {
		return nil, err
	}
	if price, ok := c.broker.markPrices[sym]; ok {
		a.SetMarkPrice(price)
	}
	c.broker.margins[c.id][sym] = a
	return a, nil
}

// SetLeverage changes the leverage of the client's margin account.
func (c *Client) SetLeverage(sym string, leverage int64) error {
	a, err := c.MarginAccount(sym)
	if err != nil {
		return err
	}
	return a.SetLeverage(leverage)
}

// TransferToMargin moves USDT from the spot ledger into the margin
// account's wallet.
func (c *Client) TransferToMargin(sym string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.Wrap(ledger.ErrInvalidAmount, fmt.Sprintf("amount=%s", amount))
	}
	a, err := c.MarginAccount(sym)
	if err != nil {
		return err
	}
	if err := c.broker.ledger.ChangeTotal(c.id, marginAsset, amount.Neg()); err != nil {
		return err
	}
	a.AddToWallet(amount)
	return nil
}

// TransferFromMargin moves USDT back out of the margin wallet, capped
// by the account's max removable amount.
func (c *Client) TransferFromMargin(sym string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.Wrap(ledger.ErrInvalidAmount, fmt.Sprintf("amount=%s", amount))
	}
	a, err := c.MarginAccount(sym)
	if err != nil {
		return err
	}
	if err := a.RemoveFromWallet(amount); err != nil {
		return err
	}
	if err := c.broker.ledger.ChangeTotal(c.id, marginAsset, amount); err != nil {
		a.AddToWallet(amount)
		return err
	}
	return nil
}

const marginAsset = "USDT"

func containsSymbol(symbols []string, sym string) bool {
	for _, s := range symbols {
		if s == sym {
			return true
		}
	}
	return false
}
