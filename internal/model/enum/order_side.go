package enum

// OrderSide is the side of an order.
type OrderSide uint8

const (
	OrderSideUnknown OrderSide = iota
	OrderSideBid
	OrderSideAsk
)

func (s OrderSide) String() string {
	switch s {
	case OrderSideBid:
		return "bid"
	case OrderSideAsk:
		return "ask"
	default:
		return "unknown"
	}
}
