package book

import (
	"math"

	"ironbook/internal/common"
)

// marketLimitPrice returns the matcher's effective limit for a market order:
// unbounded in the aggressor's favor, so it crosses every resting level on
// the opposite side (spec §4.2).
func marketLimitPrice(side common.Side) common.Price {
	if side == common.Buy {
		return common.Price(math.MaxInt64)
	}
	return common.Price(math.MinInt64)
}

// crosses reports whether the opposing best level still crosses the
// aggressor's limit (spec §4.3 step 2).
func crosses(aggressorSide common.Side, aggressorPrice, oppositeBest common.Price) bool {
	if aggressorSide == common.Buy {
		return oppositeBest <= aggressorPrice
	}
	return oppositeBest >= aggressorPrice
}

// match crosses an aggressive order against the opposing side in strict
// price-time order (spec §4.3). Trade price is always the resting (maker)
// order's level price. Returns the trades produced and the aggressor's
// residual quantity.
func (b *Book) match(side common.Side, price common.Price, aggressorID uint64, qty int32) ([]common.Trade, int32) {
	opposite := b.oppositeLevels(side)
	remaining := qty
	var trades []common.Trade

	for remaining > 0 {
		best, ok := opposite.Min()
		if !ok {
			break
		}
		if !crosses(side, price, best.price) {
			break
		}

		for e := best.queue.Front(); e != nil && remaining > 0; {
			resting := e.Value.(*restingOrder)
			fill := remaining
			if resting.qty < fill {
				fill = resting.qty
			}

			trades = append(trades, common.Trade{
				Price:       best.price,
				Quantity:    fill,
				AggressorID: aggressorID,
				RestingID:   resting.id,
			})

			resting.qty -= fill
			remaining -= fill
			best.totalQty -= int64(fill)

			next := e.Next()
			if resting.qty == 0 {
				best.queue.Remove(e)
				delete(b.index, resting.id)
			}
			e = next
		}

		if best.empty() {
			opposite.Delete(best)
		}
	}

	return trades, remaining
}
