package wire

import (
	"fmt"
	"math"

	"ironbook/internal/common"
)

// Order wire record field numbers (spec §6.1).
const (
	fieldOrderID         = 1
	fieldOrderPrice      = 2
	fieldOrderQuantity   = 3
	fieldOrderSide       = 4
	fieldOrderKind       = 5
	fieldOrderTimestamp  = 6
	fieldOrderInstrument = 7
)

// EncodeOrder serializes an order event to its wire representation. Used by
// cmd/feedgen and by round-trip tests; the validator itself only decodes.
func EncodeOrder(o common.OrderEvent) []byte {
	buf := make([]byte, 0, 48+len(o.Instrument))
	buf = appendUint(buf, fieldOrderID, o.ID)
	buf = appendFloat64(buf, fieldOrderPrice, o.Price.Float())
	buf = appendZigzag32(buf, fieldOrderQuantity, o.Quantity)
	buf = appendUint(buf, fieldOrderSide, uint64(o.Side))
	buf = appendUint(buf, fieldOrderKind, uint64(o.Kind))
	buf = appendUint(buf, fieldOrderTimestamp, o.OriginTS)
	buf = appendString(buf, fieldOrderInstrument, o.Instrument)
	return buf
}

// DecodeOrder parses a wire record into a validated OrderEvent (C1, spec
// §4.1). It performs no book mutation. Unknown side/kind enum values yield
// ErrDecodeError; the §3 invariants on price/quantity/instrument are
// enforced here so the caller never sees an invalid event to apply.
func DecodeOrder(buf []byte) (common.OrderEvent, error) {
	r := reader{buf: buf}
	var o common.OrderEvent
	var sawSide, sawKind bool

	for !r.done() {
		field, wireType, err := r.readTag()
		if err != nil {
			return common.OrderEvent{}, fmt.Errorf("%w: %v", common.ErrDecodeError, err)
		}
		switch field {
		case fieldOrderID:
			v, err := r.readVarint()
			if err != nil {
				return common.OrderEvent{}, fmt.Errorf("%w: id: %v", common.ErrDecodeError, err)
			}
			o.ID = v
		case fieldOrderPrice:
			bits, err := r.readFixed64()
			if err != nil {
				return common.OrderEvent{}, fmt.Errorf("%w: price: %v", common.ErrDecodeError, err)
			}
			o.Price = common.PriceFromFloat(math.Float64frombits(bits))
		case fieldOrderQuantity:
			v, err := r.readVarint()
			if err != nil {
				return common.OrderEvent{}, fmt.Errorf("%w: quantity: %v", common.ErrDecodeError, err)
			}
			o.Quantity = zigzagDecode32(v)
		case fieldOrderSide:
			v, err := r.readVarint()
			if err != nil {
				return common.OrderEvent{}, fmt.Errorf("%w: side: %v", common.ErrDecodeError, err)
			}
			if v > uint64(common.Sell) {
				return common.OrderEvent{}, fmt.Errorf("%w: unknown side %d", common.ErrDecodeError, v)
			}
			o.Side = common.Side(v)
			sawSide = true
		case fieldOrderKind:
			v, err := r.readVarint()
			if err != nil {
				return common.OrderEvent{}, fmt.Errorf("%w: kind: %v", common.ErrDecodeError, err)
			}
			if v > uint64(common.Cancel) {
				return common.OrderEvent{}, fmt.Errorf("%w: unknown kind %d", common.ErrDecodeError, v)
			}
			o.Kind = common.Kind(v)
			sawKind = true
		case fieldOrderTimestamp:
			v, err := r.readVarint()
			if err != nil {
				return common.OrderEvent{}, fmt.Errorf("%w: timestamp: %v", common.ErrDecodeError, err)
			}
			o.OriginTS = v
		case fieldOrderInstrument:
			v, err := r.readBytes()
			if err != nil {
				return common.OrderEvent{}, fmt.Errorf("%w: instrument: %v", common.ErrDecodeError, err)
			}
			o.Instrument = string(v)
		default:
			if err := r.skip(wireType); err != nil {
				return common.OrderEvent{}, fmt.Errorf("%w: unknown field %d: %v", common.ErrDecodeError, field, err)
			}
		}
	}

	if !sawSide || !sawKind {
		return common.OrderEvent{}, fmt.Errorf("%w: missing side or kind", common.ErrDecodeError)
	}
	if err := validate(o); err != nil {
		return common.OrderEvent{}, err
	}
	return o, nil
}

// validate enforces the §3 ingress invariants. Validation precedes any book
// mutation by construction: DecodeOrder is always called before Book.Apply.
func validate(o common.OrderEvent) error {
	if o.Instrument == "" {
		return fmt.Errorf("%w: empty instrument", common.ErrInvalidOrder)
	}
	if len(o.Instrument) > common.MaxInstrumentLen {
		return fmt.Errorf("%w: instrument %q exceeds %d octets", common.ErrInvalidOrder, o.Instrument, common.MaxInstrumentLen)
	}
	switch o.Kind {
	case common.Limit:
		if o.Price <= 0 {
			return fmt.Errorf("%w: limit order with non-positive price", common.ErrInvalidOrder)
		}
		if o.Quantity < 1 {
			return fmt.Errorf("%w: limit order with quantity < 1", common.ErrInvalidOrder)
		}
	case common.Market:
		if o.Quantity < 1 {
			return fmt.Errorf("%w: market order with quantity < 1", common.ErrInvalidOrder)
		}
	case common.Cancel:
		// The book checks the id against its index and the side against the
		// resting order's recorded side at apply time (Book.applyCancel) —
		// that is the only place that knows what rests. Price is not part
		// of that check and is not validated here either.
	}
	return nil
}
