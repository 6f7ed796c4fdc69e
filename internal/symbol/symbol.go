// Package symbol resolves trading-pair symbols against the exchange's
// fixed asset list.
package symbol

import (
	"fmt"

	"main/internal/errors"
)

var ErrUnsplittable = errors.New("symbol: cannot split into known assets")

// Table is the fixed set of assets an exchange trades. It is built once
// at broker construction and read-only afterwards.
type Table struct {
	assets []string
	index  map[string]struct{}
}

// NewTable builds a table from the exchange asset list.
func NewTable(assets []string) *Table {
	index := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		index[a] = struct{}{}
	}
	return &Table{assets: append([]string(nil), assets...), index: index}
}

// Has reports whether the asset is traded on the exchange.
func (t *Table) Has(asset string) bool {
	_, ok := t.index[asset]
	return ok
}

// Assets returns the asset list in registration order.
func (t *Table) Assets() []string {
	return append([]string(nil), t.assets...)
}

// Split breaks a pair symbol into its base and quote assets by testing
// every prefix/suffix cut against the asset list. "BTCUSDT" splits into
// ("BTC", "USDT").
func (t *Table) Split(sym string) (base, quote string, err error) {
	for i := 1; i < len(sym); i++ {
		if t.Has(sym[:i]) && t.Has(sym[i:]) {
			return sym[:i], sym[i:], nil
		}
	}
	return "", "", errors.Wrap(ErrUnsplittable, fmt.Sprintf("symbol=%s", sym))
}
