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

var ErrBadRecord = errors.New("histdata: malformed record")

// Archived kline dumps carry twelve columns and no header row:
// open time, open, high, low, close, volume, close time, quote asset
// volume, number of trades, taker buy base volume, taker buy quote
// volume, ignore.
const klineColumns = 12

// ReadKlines parses a kline dump into time-ordered bars for one
// symbol/interval pair.
func ReadKlines(r io.Reader, sym string, interval model.Interval) ([]model.Kline, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = klineColumns

	var out []model.Kline
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read kline symbol=%s line=%d", sym, line)
		}
		k, err := parseKline(record, sym, interval)
		if err != nil {
			return nil, errors.Wrapf(err, "parse kline symbol=%s line=%d", sym, line)
		}
		out = append(out, k)
	}
	return out, nil
}

// LoadKlines reads a kline dump from disk.
func LoadKlines(path, sym string, interval model.Interval) ([]model.Kline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open klines %s", path)
	}
	defer f.Close()
	return ReadKlines(f, sym, interval)
}

func parseKline(record []string, sym string, interval model.Interval) (model.Kline, error) {
	openTime, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return model.Kline{}, errors.Wrap(ErrBadRecord, fmt.Sprintf("open time %q", record[0]))
	}
	closeTime, err := strconv.ParseInt(record[6], 10, 64)
	if err != nil {
		return model.Kline{}, errors.Wrap(ErrBadRecord, fmt.Sprintf("close time %q", record[6]))
	}
	tradeCount, err := strconv.ParseInt(record[8], 10, 64)
	if err != nil {
		return model.Kline{}, errors.Wrap(ErrBadRecord, fmt.Sprintf("trade count %q", record[8]))
	}

	prices := make([]decimal.Decimal, 5)
	for i, field := range record[1:6] {
		prices[i], err = decimal.NewFromString(field)
		if err != nil {
			return model.Kline{}, errors.Wrap(ErrBadRecord, fmt.Sprintf("price %q", field))
		}
	}

	return model.Kline{
		Symbol:     sym,
		Interval:   interval,
		OpenTime:   openTime,
		CloseTime:  closeTime,
		Open:       prices[0],
		High:       prices[1],
		Low:        prices[2],
		Close:      prices[3],
		Volume:     prices[4],
		TradeCount: tradeCount,
	}, nil
}
