// Package book implements the per-instrument limit order book (C2, spec
// §4.2) and the matching engine that resolves crossings on it (C3, spec
// §4.3). Price levels are kept in a tidwall/btree ordered set per side —
// the same structure the teacher's internal/engine/orderbook.go uses —
// generalized here with a per-order FIFO queue (container/list) so Cancel
// can remove a specific resting order in O(1) via the index, something the
// teacher's slice-based levels never supported.
package book

import (
	"container/list"

	"github.com/tidwall/btree"

	"ironbook/internal/common"
)

// indexEntry is a weak (lookup-only) back-reference from an order id to its
// resting location. It never owns the order; the level's queue does.
type indexEntry struct {
	side  common.Side
	price common.Price
	lvl   *level
	elem  *list.Element
}

// Book is the per-instrument order book. It exclusively owns its price
// levels and their queues; Book.index holds only lookup references.
type Book struct {
	Instrument string

	bids *btree.BTreeG[*level] // best = highest price, first in iteration order
	asks *btree.BTreeG[*level] // best = lowest price, first in iteration order

	index map[uint64]*indexEntry

	lastUpdateTS uint64
}

// New creates an empty book for instrument. Books are created on first
// observed event for a new instrument and never destroyed during a session
// (spec §3 "Lifecycle").
func New(instrument string) *Book {
	return &Book{
		Instrument: instrument,
		bids: btree.NewBTreeG(func(a, b *level) bool {
			return a.price > b.price // descending: highest bid first
		}),
		asks: btree.NewBTreeG(func(a, b *level) bool {
			return a.price < b.price // ascending: lowest ask first
		}),
		index: make(map[uint64]*indexEntry),
	}
}

func (b *Book) sideLevels(s common.Side) *btree.BTreeG[*level] {
	if s == common.Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) oppositeLevels(s common.Side) *btree.BTreeG[*level] {
	if s == common.Buy {
		return b.asks
	}
	return b.bids
}

// Result is the outcome of Apply: the trades produced (diagnostic) and the
// residual quantity of the aggressive order, if any.
type Result struct {
	Trades   []common.Trade
	Residual int32
}

// Apply is the single mutating entry point for the book (spec §4.2).
// Validation precedes mutation: the decoder (C1) has already rejected
// malformed events before Apply ever sees one.
func (b *Book) Apply(o common.OrderEvent) (Result, error) {
	switch o.Kind {
	case common.Cancel:
		b.applyCancel(o)
		b.lastUpdateTS = o.OriginTS
		return Result{}, nil
	case common.Limit:
		res := b.applyLimit(o)
		b.lastUpdateTS = o.OriginTS
		return res, nil
	case common.Market:
		res := b.applyMarket(o)
		b.lastUpdateTS = o.OriginTS
		return res, nil
	default:
		return Result{}, common.ErrInvalidOrder
	}
}

// applyCancel locates the resting order via the index and removes it from
// its owning level's queue. Cancels for unknown ids, and cancels whose side
// does not match the resting order's recorded side, are silently ignored
// (ErrUnknownCancel is never returned; the book just no-ops). Price is not
// compared: the id
// is the sole key into the index, and a resting order has exactly one
// price for its lifetime.
func (b *Book) applyCancel(o common.OrderEvent) {
	entry, ok := b.index[o.ID]
	if !ok || entry.side != o.Side {
		return // idempotent: unknown/already-cancelled/mismatched-side id is a no-op
	}
	entry.lvl.removeAt(entry.elem)
	if entry.lvl.empty() {
		b.sideLevels(entry.side).Delete(entry.lvl)
	}
	delete(b.index, o.ID)
}

// applyLimit invokes the matcher against the opposite side, then rests any
// residual quantity at the tail of its price level's queue.
func (b *Book) applyLimit(o common.OrderEvent) Result {
	trades, residual := b.match(o.Side, o.Price, o.ID, o.Quantity)
	if residual > 0 {
		b.rest(o.Side, o.Price, o.ID, residual)
	}
	return Result{Trades: trades, Residual: residual}
}

// applyMarket invokes the matcher with an unbounded limit price; any
// residual is discarded — market orders never rest (spec §4.2, §4.3).
func (b *Book) applyMarket(o common.OrderEvent) Result {
	limit := marketLimitPrice(o.Side)
	trades, residual := b.match(o.Side, limit, o.ID, o.Quantity)
	return Result{Trades: trades, Residual: residual}
}

// rest inserts a new resting order at the tail of its price level's queue,
// creating the level if absent, and records it in the index.
func (b *Book) rest(side common.Side, price common.Price, id uint64, qty int32) {
	levels := b.sideLevels(side)
	lvl, ok := levels.Get(&level{price: price})
	if !ok {
		lvl = newLevel(price)
		levels.Set(lvl)
	}
	elem := lvl.pushBack(&restingOrder{id: id, qty: qty})
	b.index[id] = &indexEntry{side: side, price: price, lvl: lvl, elem: elem}
}

// Snapshot produces a lightweight BookSnapshot with up to depth best levels
// per side (spec §4.2). No mutation; the result shares no mutable state
// with the book.
func (b *Book) Snapshot(depth int) Snapshot {
	if depth < 1 {
		depth = 1
	}
	return Snapshot{
		Instrument:   b.Instrument,
		Bids:         topLevels(b.bids, depth),
		Asks:         topLevels(b.asks, depth),
		LastUpdateTS: b.lastUpdateTS,
	}
}

func topLevels(t *btree.BTreeG[*level], depth int) []LevelView {
	out := make([]LevelView, 0, depth)
	t.Scan(func(l *level) bool {
		out = append(out, l.view())
		return len(out) < depth
	})
	return out
}
