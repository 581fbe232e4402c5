// Package publish implements the publisher (C5, spec §4.5): encode a book
// snapshot to the wire and write it to the egress transport. A failed write
// is logged and never alters book state; the filter's last-published
// baseline only advances on success.
package publish

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"ironbook/internal/book"
	"ironbook/internal/common"
	"ironbook/internal/filter"
	"ironbook/internal/transport"
	"ironbook/internal/wire"
)

// Publisher owns the egress transport and the change filter together,
// since publication success is what gates the filter's baseline update.
type Publisher struct {
	sink   transport.Sink
	filter *filter.Filter
}

// New creates a publisher writing to sink, consulting f for the
// change-detection decision.
func New(sink transport.Sink, f *filter.Filter) *Publisher {
	return &Publisher{sink: sink, filter: f}
}

// PublishIfChanged encodes and sends snap only if the change filter decides
// it differs materially from the last published snapshot for its
// instrument (C4 then C5, spec §4.4-§4.5). Returns whether the snapshot was
// sent successfully; a failed send returns false with the wrapped error.
func (p *Publisher) PublishIfChanged(snap book.Snapshot) (published bool, err error) {
	if !p.filter.ShouldPublish(snap) {
		return false, nil
	}
	payload := wire.EncodeBookTop(snap)
	if err := p.sink.Send(payload); err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrPublishError, err)
	}
	p.filter.Commit(snap)
	logTop(snap)
	return true, nil
}

// PublishError best-effort echoes a dropped/rejected event onto the egress
// transport, supplementing spec.md's log-and-drop error policy (spec §7).
// It never returns an error: a failure to send the echo itself just falls
// back to the same logging the log-and-drop policy already does, since the
// echo is optional diagnostic traffic, not the authoritative record.
func (p *Publisher) PublishError(instrument string, cause error) {
	payload := wire.EncodeErrorReport(instrument, cause.Error())
	if err := p.sink.Send(payload); err != nil {
		log.Warn().Err(err).Str("instrument", instrument).Msg("error echo failed to send")
		return
	}
	log.Debug().Str("instrument", instrument).Err(cause).Msg("error echoed to egress transport")
}

// logTop emits the diagnostic book-top line (spec §6.5).
func logTop(s book.Snapshot) {
	bid, hasBid := s.BestBid()
	ask, hasAsk := s.BestAsk()
	bidStr, askStr := "-", "-"
	if hasBid {
		bidStr = fmt.Sprintf("%.6f x %d", bid.Price.Float(), bid.Qty)
	}
	if hasAsk {
		askStr = fmt.Sprintf("%.6f x %d", ask.Price.Float(), ask.Qty)
	}
	log.Info().
		Str("instrument", s.Instrument).
		Str("bid", bidStr).
		Str("ask", askStr).
		Msg("BOOK TOP")
}
