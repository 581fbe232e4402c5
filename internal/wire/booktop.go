package wire

import (
	"math"

	"ironbook/internal/book"
	"ironbook/internal/common"
)

// Book-top wire record field numbers (spec §6.2). Each book-top entry (a
// price/qty pair) is itself a nested length-delimited message with its own
// field numbers 1 (price) and 2 (qty).
const (
	fieldTopInstrument = 1
	fieldTopBid        = 2
	fieldTopAsk        = 3
	fieldTopTimestamp  = 4

	fieldLevelPrice = 1
	fieldLevelQty   = 2
)

func encodeLevel(l book.LevelView) []byte {
	buf := make([]byte, 0, 16)
	buf = appendFloat64(buf, fieldLevelPrice, l.Price.Float())
	buf = appendZigzag32(buf, fieldLevelQty, l.Qty)
	return buf
}

func decodeLevel(buf []byte) (book.LevelView, error) {
	r := reader{buf: buf}
	var l book.LevelView
	for !r.done() {
		field, wireType, err := r.readTag()
		if err != nil {
			return book.LevelView{}, err
		}
		switch field {
		case fieldLevelPrice:
			bits, err := r.readFixed64()
			if err != nil {
				return book.LevelView{}, err
			}
			l.Price = common.PriceFromFloat(math.Float64frombits(bits))
		case fieldLevelQty:
			v, err := r.readVarint()
			if err != nil {
				return book.LevelView{}, err
			}
			l.Qty = zigzagDecode32(v)
		default:
			if err := r.skip(wireType); err != nil {
				return book.LevelView{}, err
			}
		}
	}
	return l, nil
}

// EncodeBookTop serializes a book snapshot to its wire representation (C5,
// spec §6.2). Bids and asks are encoded best-first, matching snapshot order.
func EncodeBookTop(s book.Snapshot) []byte {
	buf := make([]byte, 0, 64+16*(len(s.Bids)+len(s.Asks)))
	buf = appendString(buf, fieldTopInstrument, s.Instrument)
	for _, b := range s.Bids {
		buf = appendBytes(buf, fieldTopBid, encodeLevel(b))
	}
	for _, a := range s.Asks {
		buf = appendBytes(buf, fieldTopAsk, encodeLevel(a))
	}
	buf = appendUint(buf, fieldTopTimestamp, s.LastUpdateTS)
	return buf
}

// DecodeBookTop parses a book-top wire record. Used by subscribers of the
// egress transport and by round-trip tests.
func DecodeBookTop(buf []byte) (book.Snapshot, error) {
	r := reader{buf: buf}
	var s book.Snapshot
	for !r.done() {
		field, wireType, err := r.readTag()
		if err != nil {
			return book.Snapshot{}, err
		}
		switch field {
		case fieldTopInstrument:
			v, err := r.readBytes()
			if err != nil {
				return book.Snapshot{}, err
			}
			s.Instrument = string(v)
		case fieldTopBid:
			v, err := r.readBytes()
			if err != nil {
				return book.Snapshot{}, err
			}
			l, err := decodeLevel(v)
			if err != nil {
				return book.Snapshot{}, err
			}
			s.Bids = append(s.Bids, l)
		case fieldTopAsk:
			v, err := r.readBytes()
			if err != nil {
				return book.Snapshot{}, err
			}
			l, err := decodeLevel(v)
			if err != nil {
				return book.Snapshot{}, err
			}
			s.Asks = append(s.Asks, l)
		case fieldTopTimestamp:
			v, err := r.readVarint()
			if err != nil {
				return book.Snapshot{}, err
			}
			s.LastUpdateTS = v
		default:
			if err := r.skip(wireType); err != nil {
				return book.Snapshot{}, err
			}
		}
	}
	return s, nil
}
