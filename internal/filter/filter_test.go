package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ironbook/internal/book"
	"ironbook/internal/common"
)

func snap(instrument string, bid, ask float64) book.Snapshot {
	s := book.Snapshot{Instrument: instrument}
	if bid > 0 {
		s.Bids = []book.LevelView{{Price: common.PriceFromFloat(bid), Qty: 1}}
	}
	if ask > 0 {
		s.Asks = []book.LevelView{{Price: common.PriceFromFloat(ask), Qty: 1}}
	}
	return s
}

func TestFirstSnapshotForInstrumentAlwaysPublishes(t *testing.T) {
	f := New()
	assert.True(t, f.ShouldPublish(snap("TSLA", 100.0, 101.0)))
}

func TestSubEpsilonMoveIsSuppressed(t *testing.T) {
	f := New()
	f.Commit(snap("TSLA", 100.0, 101.0))
	assert.False(t, f.ShouldPublish(snap("TSLA", 100.005, 101.0)))
}

func TestAboveEpsilonMoveIsPublished(t *testing.T) {
	f := New()
	f.Commit(snap("TSLA", 100.0, 101.0))
	assert.True(t, f.ShouldPublish(snap("TSLA", 100.02, 101.0)))
}

func TestTransitionToOneSidedBookIsAlwaysMaterial(t *testing.T) {
	f := New()
	f.Commit(snap("TSLA", 100.0, 101.0))
	assert.True(t, f.ShouldPublish(snap("TSLA", 100.0, 0)))
}

func TestCommitOnlyAdvancesBaselineOnCall(t *testing.T) {
	f := New()
	f.Commit(snap("TSLA", 100.0, 101.0))
	// Without a Commit, repeated small moves keep comparing against the
	// same baseline rather than the last *candidate* seen: 100.012 is within
	// ε of the uncommitted 100.006 but more than ε from the committed 100.0.
	assert.False(t, f.ShouldPublish(snap("TSLA", 100.006, 101.0)))
	assert.True(t, f.ShouldPublish(snap("TSLA", 100.012, 101.0)))
}

func TestDistinctInstrumentsHaveIndependentBaselines(t *testing.T) {
	f := New()
	f.Commit(snap("TSLA", 300.0, 301.0))
	assert.True(t, f.ShouldPublish(snap("AAPL", 180.0, 181.0)))
}
