package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ironbook/internal/book"
	"ironbook/internal/common"
)

func TestBookTopRoundTrip(t *testing.T) {
	snap := book.Snapshot{
		Instrument: "TSLA",
		Bids: []book.LevelView{
			{Price: common.PriceFromFloat(300.5), Qty: 12},
			{Price: common.PriceFromFloat(300.0), Qty: 4},
		},
		Asks: []book.LevelView{
			{Price: common.PriceFromFloat(301.0), Qty: 7},
		},
		LastUpdateTS: 99,
	}

	buf := EncodeBookTop(snap)
	decoded, err := DecodeBookTop(buf)
	require.NoError(t, err)

	assert.Equal(t, snap.Instrument, decoded.Instrument)
	assert.Equal(t, snap.LastUpdateTS, decoded.LastUpdateTS)
	require.Len(t, decoded.Bids, 2)
	require.Len(t, decoded.Asks, 1)
	assert.InDelta(t, 300.5, decoded.Bids[0].Price.Float(), 1e-6)
	assert.Equal(t, int32(12), decoded.Bids[0].Qty)
	assert.InDelta(t, 301.0, decoded.Asks[0].Price.Float(), 1e-6)
}

func TestBookTopRoundTripWithEmptySide(t *testing.T) {
	snap := book.Snapshot{
		Instrument:   "AAPL",
		Bids:         []book.LevelView{{Price: common.PriceFromFloat(180.0), Qty: 1}},
		LastUpdateTS: 5,
	}
	buf := EncodeBookTop(snap)
	decoded, err := DecodeBookTop(buf)
	require.NoError(t, err)
	assert.Len(t, decoded.Asks, 0)
	_, ok := decoded.BestAsk()
	assert.False(t, ok)
}
