package book

import (
	"container/list"

	"ironbook/internal/common"
)

// restingOrder is one FIFO queue member at a price level. Owned by the
// level's queue; the index holds a lookup-only reference to its *list.Element.
type restingOrder struct {
	id  uint64
	qty int32
}

// level is the per-(instrument, side, price) record (spec §3 "Price level").
// The book exclusively owns levels and their queues.
type level struct {
	price    common.Price
	totalQty int64
	queue    *list.List // of *restingOrder, earliest arrival first
}

func newLevel(price common.Price) *level {
	return &level{price: price, queue: list.New()}
}

func (l *level) empty() bool { return l.queue.Len() == 0 }

// pushBack inserts a new resting order at the tail of the FIFO queue.
func (l *level) pushBack(o *restingOrder) *list.Element {
	l.totalQty += int64(o.qty)
	return l.queue.PushBack(o)
}

// removeAt deletes a specific resting order from the queue (used by Cancel,
// an O(1) operation given the index's element reference).
func (l *level) removeAt(e *list.Element) {
	o := e.Value.(*restingOrder)
	l.totalQty -= int64(o.qty)
	l.queue.Remove(e)
}

// view extracts the lightweight (price, total_qty) pair shared with callers.
func (l *level) view() LevelView {
	return LevelView{Price: l.price, Qty: int32(l.totalQty)}
}
