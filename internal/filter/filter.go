// Package filter implements the change-detection policy (C4, spec §4.4):
// suppress book-top publications that do not move the visible top of book
// by more than ε_price, to keep publication rate bounded under burst load.
// Grounded on the original implementation's is_important_update
// (_examples/original_source/src/main.rs) — this spec redefines its
// relative 0.1% threshold as an absolute ε_price = 0.01 (scaled), which this
// package follows per spec §4.4, not the original's relative comparison.
package filter

import (
	"sync"

	"ironbook/internal/book"
	"ironbook/internal/common"
)

// Filter holds, per instrument, only the most recently published snapshot —
// no other durable state (spec §4.4).
type Filter struct {
	mu        sync.Mutex
	published map[string]book.Snapshot
}

// New creates an empty change filter.
func New() *Filter {
	return &Filter{published: make(map[string]book.Snapshot)}
}

// ShouldPublish reports whether candidate differs materially from the last
// *successfully published* snapshot for its instrument. It does not mutate
// the filter's baseline — spec §4.5 requires the last-published record to
// advance only after a successful write, so the caller must call Commit
// itself once the publish succeeds.
func (f *Filter) ShouldPublish(candidate book.Snapshot) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, seen := f.published[candidate.Instrument]
	return !seen || materiallyDifferent(prev, candidate)
}

// Commit records candidate as the new published baseline for its
// instrument. Call only after a successful publish (spec §4.5).
func (f *Filter) Commit(candidate book.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[candidate.Instrument] = candidate
}

func materiallyDifferent(prev, next book.Snapshot) bool {
	prevBid, prevHasBid := prev.BestBid()
	nextBid, nextHasBid := next.BestBid()
	prevAsk, prevHasAsk := prev.BestAsk()
	nextAsk, nextHasAsk := next.BestAsk()

	// A transition to/from a one-sided book is always material.
	if prevHasBid != nextHasBid || prevHasAsk != nextHasAsk {
		return true
	}

	if nextHasBid && absDiff(nextBid.Price, prevBid.Price) > common.EpsilonPrice {
		return true
	}
	if nextHasAsk && absDiff(nextAsk.Price, prevAsk.Price) > common.EpsilonPrice {
		return true
	}
	return false
}

func absDiff(a, b common.Price) common.Price {
	if a > b {
		return a - b
	}
	return b - a
}
