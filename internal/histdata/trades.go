package histdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"main/internal/errors"
	"main/internal/model"

	"github.com/shopspring/decimal"
)

// RawTrade is one row of an archived trade dump: trade id, price,
// quantity, quote quantity, time, buyer-is-maker, best-match.
type RawTrade struct {
	ID       int64
	Price    decimal.Decimal
	Qty      decimal.Decimal
	QuoteQty decimal.Decimal
	Time     int64
}

const tradeColumns = 7

// BucketMillis is the resampling bucket width: trades are floored onto
// ten-second boundaries before replay.
const BucketMillis = 10_000

// ReadTrades parses a trade dump for one symbol.
func ReadTrades(r io.Reader) ([]RawTrade, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = tradeColumns

	var out []RawTrade
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read trade line=%d", line)
		}
		t, err := parseTrade(record)
		if err != nil {
			return nil, errors.Wrapf(err, "parse trade line=%d", line)
		}
		out = append(out, t)
	}
	return out, nil
}

// LoadTrades reads a trade dump from disk.
func LoadTrades(path string) ([]RawTrade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open trades %s", path)
	}
	defer f.Close()
	return ReadTrades(f)
}

func parseTrade(record []string) (RawTrade, error) {
	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return RawTrade{}, errors.Wrap(ErrBadRecord, fmt.Sprintf("trade id %q", record[0]))
	}
	ts, err := strconv.ParseInt(record[4], 10, 64)
	if err != nil {
		return RawTrade{}, errors.Wrap(ErrBadRecord, fmt.Sprintf("trade time %q", record[4]))
	}
	price, err := decimal.NewFromString(record[1])
	if err != nil {
		return RawTrade{}, errors.Wrap(ErrBadRecord, fmt.Sprintf("price %q", record[1]))
	}
	qty, err := decimal.NewFromString(record[2])
	if err != nil {
		return RawTrade{}, errors.Wrap(ErrBadRecord, fmt.Sprintf("qty %q", record[2]))
	}
	quoteQty, err := decimal.NewFromString(record[3])
	if err != nil {
		return RawTrade{}, errors.Wrap(ErrBadRecord, fmt.Sprintf("quote qty %q", record[3]))
	}
	return RawTrade{ID: id, Price: price, Qty: qty, QuoteQty: quoteQty, Time: ts}, nil
}

// ResampleTrades folds raw trades into bucketed replay ticks: time is
// floored to the bucket, price is the mean over the bucket, quantities
// are summed. Input must be time-ordered; output preserves bucket
// order.
func ResampleTrades(sym string, raw []RawTrade) []model.Trade {
	var out []model.Trade
	var (
		open     bool
		bucket   int64
		priceSum decimal.Decimal
		count    int64
		qty      decimal.Decimal
		quoteQty decimal.Decimal
	)

	flush := func() {
		if !open {
			return
		}
		out = append(out, model.Trade{
			Symbol:   sym,
			Time:     bucket,
			Price:    priceSum.Div(decimal.NewFromInt(count)),
			Qty:      qty,
			QuoteQty: quoteQty,
		})
	}

	for _, t := range raw {
		b := t.Time - t.Time%BucketMillis
		if !open || b != bucket {
			flush()
			open = true
			bucket = b
			priceSum = decimal.Zero
			count = 0
			qty = decimal.Zero
			quoteQty = decimal.Zero
		}
		priceSum = priceSum.Add(t.Price)
		count++
		qty = qty.Add(t.Qty)
		quoteQty = quoteQty.Add(t.QuoteQty)
	}
	flush()
	return out
}
