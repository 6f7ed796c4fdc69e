package strategy

import (
	"main/internal/broker"
	"main/internal/model"
	"main/internal/model/enum"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

// SMACross is a minimal moving-average crossover strategy used to
// exercise the harness end to end: it buys a fixed quantity when the
// fast average crosses above the slow one and sells it back on the
// reverse cross.
type SMACross struct {
	Symbol   string
	Interval model.Interval
	Fast     int
	Slow     int
	Quantity decimal.Decimal

	client *broker.Client
	closes []decimal.Decimal
	long   bool
}

func (s *SMACross) Name() string {
	return "sma-cross"
}

func (s *SMACross) Init(c *broker.Client) error {
	s.client = c
	return c.SubscribeBars(enum.MarketKindSpot, s.Symbol, s.Interval, s.onBar)
}

func (s *SMACross) onBar(k model.Kline) {
	s.closes = append(s.closes, k.Close)
	if len(s.closes) > s.Slow {
		s.closes = s.closes[1:]
	}
	if len(s.closes) < s.Slow {
		return
	}

	fast := mean(s.closes[len(s.closes)-s.Fast:])
	slow := mean(s.closes)

	switch {
	case fast.GreaterThan(slow) && !s.long:
		s.long = true
		s.submit(enum.OrderSideBid)
	case fast.LessThan(slow) && s.long:
		s.long = false
		s.submit(enum.OrderSideAsk)
	}
}

func (s *SMACross) submit(side enum.OrderSide) {
	_, err := s.client.SubmitOrder(broker.OrderSpec{
		Symbol:   s.Symbol,
		Side:     side,
		Kind:     enum.OrderKindMarket,
		Quantity: s.Quantity,
	})
	if err != nil {
		logs.Errorf("sma-cross: submit %s failed, err: %+v", side, err)
	}
}

func mean(values []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}
