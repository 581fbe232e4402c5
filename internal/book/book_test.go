package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ironbook/internal/common"
)

func limitOrder(id uint64, instrument string, side common.Side, price float64, qty int32) common.OrderEvent {
	return common.OrderEvent{
		ID:         id,
		Instrument: instrument,
		Price:      common.PriceFromFloat(price),
		Quantity:   qty,
		Side:       side,
		Kind:       common.Limit,
		OriginTS:   uint64(id),
	}
}

func marketOrder(id uint64, instrument string, side common.Side, qty int32) common.OrderEvent {
	return common.OrderEvent{
		ID:         id,
		Instrument: instrument,
		Quantity:   qty,
		Side:       side,
		Kind:       common.Market,
		OriginTS:   uint64(id),
	}
}

func cancelOrder(id uint64, instrument string, side common.Side) common.OrderEvent {
	return common.OrderEvent{
		ID:         id,
		Instrument: instrument,
		Side:       side,
		Kind:       common.Cancel,
		OriginTS:   uint64(id),
	}
}

func TestRestingOrderWithNoCrossing(t *testing.T) {
	b := New("TSLA")

	res, err := b.Apply(limitOrder(1, "TSLA", common.Buy, 100.0, 10))
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Equal(t, int32(10), res.Residual)

	snap := b.Snapshot(1)
	bid, ok := snap.BestBid()
	require.True(t, ok)
	assert.InDelta(t, 100.0, bid.Price.Float(), 1e-9)
	assert.Equal(t, int32(10), bid.Qty)
	_, hasAsk := snap.BestAsk()
	assert.False(t, hasAsk)
}

func TestLimitOrderCrossesAndFillsAtMakerPrice(t *testing.T) {
	b := New("TSLA")
	_, err := b.Apply(limitOrder(1, "TSLA", common.Sell, 100.0, 10))
	require.NoError(t, err)

	res, err := b.Apply(limitOrder(2, "TSLA", common.Buy, 101.0, 4))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.InDelta(t, 100.0, res.Trades[0].Price.Float(), 1e-9) // maker price, not aggressor's 101
	assert.Equal(t, int32(4), res.Trades[0].Quantity)
	assert.Equal(t, uint64(2), res.Trades[0].AggressorID)
	assert.Equal(t, uint64(1), res.Trades[0].RestingID)
	assert.Equal(t, int32(0), res.Residual)

	snap := b.Snapshot(1)
	ask, ok := snap.BestAsk()
	require.True(t, ok)
	assert.Equal(t, int32(6), ask.Qty)
}

func TestLimitOrderPartialFillRestsResidual(t *testing.T) {
	b := New("TSLA")
	_, err := b.Apply(limitOrder(1, "TSLA", common.Sell, 100.0, 3))
	require.NoError(t, err)

	res, err := b.Apply(limitOrder(2, "TSLA", common.Buy, 101.0, 10))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, int32(3), res.Trades[0].Quantity)
	assert.Equal(t, int32(7), res.Residual)

	snap := b.Snapshot(1)
	_, hasAsk := snap.BestAsk()
	assert.False(t, hasAsk)
	bid, ok := snap.BestBid()
	require.True(t, ok)
	assert.InDelta(t, 101.0, bid.Price.Float(), 1e-9)
	assert.Equal(t, int32(7), bid.Qty)
}

func TestMarketOrderNeverRestsResidual(t *testing.T) {
	b := New("TSLA")
	_, err := b.Apply(limitOrder(1, "TSLA", common.Sell, 100.0, 2))
	require.NoError(t, err)

	res, err := b.Apply(marketOrder(2, "TSLA", common.Buy, 10))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, int32(2), res.Trades[0].Quantity)
	assert.Equal(t, int32(8), res.Residual)

	snap := b.Snapshot(1)
	_, hasBid := snap.BestBid()
	assert.False(t, hasBid, "market order residual must never rest")
}

func TestMarketOrderAgainstEmptyBookProducesNoTrades(t *testing.T) {
	b := New("TSLA")
	res, err := b.Apply(marketOrder(1, "TSLA", common.Buy, 10))
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Equal(t, int32(10), res.Residual)
}

func TestPriceTimePriorityFIFOWithinLevel(t *testing.T) {
	b := New("TSLA")
	_, err := b.Apply(limitOrder(1, "TSLA", common.Sell, 100.0, 5))
	require.NoError(t, err)
	_, err = b.Apply(limitOrder(2, "TSLA", common.Sell, 100.0, 5))
	require.NoError(t, err)

	res, err := b.Apply(limitOrder(3, "TSLA", common.Buy, 100.0, 5))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, uint64(1), res.Trades[0].RestingID, "earliest resting order at a level fills first")
}

func TestPriceTimePriorityBetterPriceFirst(t *testing.T) {
	b := New("TSLA")
	_, err := b.Apply(limitOrder(1, "TSLA", common.Sell, 101.0, 5))
	require.NoError(t, err)
	_, err = b.Apply(limitOrder(2, "TSLA", common.Sell, 100.0, 5))
	require.NoError(t, err)

	res, err := b.Apply(limitOrder(3, "TSLA", common.Buy, 101.0, 5))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, uint64(2), res.Trades[0].RestingID, "better (lower ask) price fills before an earlier worse price")
}

func TestCancelRemovesRestingOrder(t *testing.T) {
	b := New("TSLA")
	_, err := b.Apply(limitOrder(1, "TSLA", common.Buy, 100.0, 10))
	require.NoError(t, err)

	_, err = b.Apply(cancelOrder(1, "TSLA", common.Buy))
	require.NoError(t, err)

	snap := b.Snapshot(1)
	_, hasBid := snap.BestBid()
	assert.False(t, hasBid)
}

func TestCancelUnknownIDIsIdempotentNoOp(t *testing.T) {
	b := New("TSLA")
	_, err := b.Apply(cancelOrder(999, "TSLA", common.Buy))
	assert.NoError(t, err)
}

func TestCancelEmptiesLevelButNotNeighboringLevels(t *testing.T) {
	b := New("TSLA")
	_, err := b.Apply(limitOrder(1, "TSLA", common.Buy, 100.0, 10))
	require.NoError(t, err)
	_, err = b.Apply(limitOrder(2, "TSLA", common.Buy, 99.0, 5))
	require.NoError(t, err)

	_, err = b.Apply(cancelOrder(1, "TSLA", common.Buy))
	require.NoError(t, err)

	snap := b.Snapshot(2)
	require.Len(t, snap.Bids, 1)
	assert.InDelta(t, 99.0, snap.Bids[0].Price.Float(), 1e-9)
}

func TestSnapshotDepthCapsLevelsPerSide(t *testing.T) {
	b := New("TSLA")
	for i, price := range []float64{100.0, 99.0, 98.0, 97.0} {
		_, err := b.Apply(limitOrder(uint64(i+1), "TSLA", common.Buy, price, 1))
		require.NoError(t, err)
	}
	snap := b.Snapshot(2)
	assert.Len(t, snap.Bids, 2)
	assert.InDelta(t, 100.0, snap.Bids[0].Price.Float(), 1e-9)
	assert.InDelta(t, 99.0, snap.Bids[1].Price.Float(), 1e-9)
}

func TestSweepAcrossMultipleLevels(t *testing.T) {
	b := New("TSLA")
	_, err := b.Apply(limitOrder(1, "TSLA", common.Sell, 100.0, 5))
	require.NoError(t, err)
	_, err = b.Apply(limitOrder(2, "TSLA", common.Sell, 101.0, 5))
	require.NoError(t, err)

	res, err := b.Apply(limitOrder(3, "TSLA", common.Buy, 101.0, 8))
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.InDelta(t, 100.0, res.Trades[0].Price.Float(), 1e-9)
	assert.Equal(t, int32(5), res.Trades[0].Quantity)
	assert.InDelta(t, 101.0, res.Trades[1].Price.Float(), 1e-9)
	assert.Equal(t, int32(3), res.Trades[1].Quantity)
	assert.Equal(t, int32(0), res.Residual)
}
