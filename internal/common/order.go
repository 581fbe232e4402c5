// Package common holds the data types shared by every core component: the
// order event crossing the wire, the closed Side/Kind enums, price scaling,
// and the errors the core can raise.
package common

import "fmt"

// Side is a closed, two-variant enum. It is represented as a compact integer
// type with explicit wire mappings, never as a class hierarchy.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

// Kind is a closed, three-variant enum.
type Kind uint8

const (
	Market Kind = iota
	Limit
	Cancel
)

func (k Kind) String() string {
	switch k {
	case Market:
		return "Market"
	case Limit:
		return "Limit"
	case Cancel:
		return "Cancel"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// PriceScale converts between the wire's float64 price and the internal
// scaled-integer key used for all ordering and equality (spec §9: ×10^6).
const PriceScale = 1_000_000

// Price is a scaled fixed-point integer: price units are the 64-bit integer
// count of micro-units. All price-level ordering and equality uses this key.
type Price int64

// EpsilonPrice is the change-filter threshold from spec §4.4: 0.01 price
// units, scaled identically to Price.
const EpsilonPrice Price = Price(0.01 * PriceScale)

// PriceFromFloat scales a wire float64 price into the internal key.
func PriceFromFloat(p float64) Price {
	if p < 0 {
		return Price(p*PriceScale - 0.5)
	}
	return Price(p*PriceScale + 0.5)
}

// Float converts the internal scaled price back to a wire float64.
func (p Price) Float() float64 {
	return float64(p) / PriceScale
}

// MaxInstrumentLen is the wire bound on the instrument symbol (spec §3).
const MaxInstrumentLen = 16

// OrderEvent is the validated, in-memory representation of a decoded wire
// order record (spec §3). It is a plain value: no behavior, no book
// mutation capability.
type OrderEvent struct {
	ID         uint64
	Instrument string
	Price      Price
	Quantity   int32
	Side       Side
	Kind       Kind
	OriginTS   uint64
}

func (o OrderEvent) String() string {
	return fmt.Sprintf("%s | %s | id=%d | %s %d @ %.6f",
		o.Instrument, o.Kind, o.ID, o.Side, o.Quantity, o.Price.Float())
}
