package model

import "github.com/shopspring/decimal"

// Interval is a kline interval identifier such as "15m" or "1h".
type Interval string

// Kline is an OHLCV summary for one symbol over a fixed interval.
type Kline struct {
	Symbol     string
	Interval   Interval
	OpenTime   int64
	CloseTime  int64
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.Decimal
	TradeCount int64
}

// Trade is a resampled trade record. Time is floored to the resampling
// bucket, Price is the mean trade price inside the bucket, Qty and
// QuoteQty are sums.
type Trade struct {
	Symbol   string
	Time     int64
	Price    decimal.Decimal
	Qty      decimal.Decimal
	QuoteQty decimal.Decimal
}

// MarkPrice carries the mark price and current funding rate for one
// margin symbol.
type MarkPrice struct {
	Symbol      string
	Price       decimal.Decimal
	FundingRate decimal.Decimal
}
