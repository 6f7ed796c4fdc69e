package enum

// MarketKind distinguishes the spot and margin markets of the exchange.
type MarketKind uint8

const (
	MarketKindUnknown MarketKind = iota
	MarketKindSpot
	MarketKindMargin
)

func (m MarketKind) String() string {
	switch m {
	case MarketKindSpot:
		return "spot"
	case MarketKindMargin:
		return "margin"
	default:
		return "unknown"
	}
}
