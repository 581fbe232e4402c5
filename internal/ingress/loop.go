// Package ingress implements C6, the driving loop: poll a transport.Source,
// decode each record, apply it to the right instrument's book, and publish
// the resulting book-top if the change filter accepts it. Lifecycle is
// supervised with gopkg.in/tomb.v2, the same pattern the teacher's
// internal/net/server.go uses for its listener and worker pool goroutines.
package ingress

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"ironbook/internal/book"
	"ironbook/internal/common"
	"ironbook/internal/filter"
	"ironbook/internal/metrics"
	"ironbook/internal/publish"
	"ironbook/internal/transport"
	"ironbook/internal/wire"
)

// PollMode selects what the loop does after an empty poll (spec §4.6,
// REDESIGN FLAGS: BUSY_MODE env var toggles this at the edge, not per-call).
type PollMode int

const (
	// Cooperative sleeps a fixed interval after an empty poll, yielding the
	// scheduler. This is the default: predictable CPU usage on shared hosts.
	Cooperative PollMode = iota
	// Busy spins with a runtime.Gosched-equivalent pause hint and never
	// sleeps, trading CPU for minimum latency.
	Busy
)

// cooperativeInterval is the fixed sleep used in Cooperative mode between
// empty polls.
const cooperativeInterval = 500 * time.Microsecond

// Loop drives one transport.Source through decode/apply/publish for
// however many instruments it observes. Each instrument gets its own Book
// and Filter baseline, created lazily on first sight (spec §3 "Lifecycle"),
// matching the original implementation's single HashMap<String, OrderBook>
// fan-out rather than a loop per instrument (spec §9, supplemented).
type Loop struct {
	source  transport.Source
	sink    transport.Sink
	mode    PollMode
	metrics *metrics.Registry

	books   map[string]*book.Book
	filter  *filter.Filter
	pub     *publish.Publisher
	nowFunc func() uint64
}

// New constructs a Loop. nowFunc returns the current time as a uint64
// (same units as OrderEvent.OriginTS, spec §3); it is a parameter so tests
// can control the clock deterministically.
func New(source transport.Source, sink transport.Sink, mode PollMode, reg *metrics.Registry, nowFunc func() uint64) *Loop {
	f := filter.New()
	return &Loop{
		source:  source,
		sink:    sink,
		mode:    mode,
		metrics: reg,
		books:   make(map[string]*book.Book),
		filter:  f,
		pub:     publish.New(sink, f),
		nowFunc: nowFunc,
	}
}

// Run drives the loop under tomb supervision until ctx is cancelled or an
// unrecoverable transport error occurs (spec §7: ErrTransportFatal stops
// the loop; every other error is logged and the loop continues).
func (l *Loop) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)
	t.Go(func() error {
		return l.poll(ctx)
	})
	return t.Wait()
}

func (l *Loop) poll(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		payload, ok, err := l.source.TryReceive()
		if err != nil {
			if errors.Is(err, common.ErrSlotOverrun) {
				l.metrics.DroppedTotal.WithLabelValues("slot_overrun").Inc()
				log.Error().Err(err).Msg("slot overrun, event dropped")
				continue
			}
			if errors.Is(err, common.ErrTransportFatal) {
				log.Error().Err(err).Msg("fatal transport error, stopping ingress loop")
				return err
			}
			log.Error().Err(err).Msg("transport error")
			continue
		}
		if !ok {
			l.idle()
			continue
		}

		l.handle(payload)
	}
}

func (l *Loop) idle() {
	switch l.mode {
	case Busy:
		pauseHint()
	default:
		time.Sleep(cooperativeInterval)
	}
}

// handle runs a single decoded record through decode -> apply -> publish,
// emitting the two diagnostic log lines required by spec §4.6/§6.5 and
// recording the inter-service and processing latencies.
func (l *Loop) handle(payload []byte) {
	decodeStart := l.nowFunc()

	order, err := wire.DecodeOrder(payload)
	if err != nil {
		l.metrics.DroppedTotal.WithLabelValues("decode_error").Inc()
		log.Warn().Err(err).Msg("dropping malformed order record")
		return
	}

	interServiceUS := microsBetween(order.OriginTS, decodeStart)
	l.metrics.InterServiceLat.Observe(float64(interServiceUS))
	l.metrics.DecodedTotal.WithLabelValues(order.Instrument).Inc()

	log.Info().
		Str("instrument", order.Instrument).
		Uint64("orderID", order.ID).
		Str("kind", order.Kind.String()).
		Str("side", order.Side.String()).
		Int32("quantity", order.Quantity).
		Float64("price", order.Price.Float()).
		Uint64("interServiceLatencyUS", interServiceUS).
		Msg("order decoded")

	b := l.bookFor(order.Instrument)
	result, err := b.Apply(order)
	if err != nil {
		l.metrics.DroppedTotal.WithLabelValues("apply_error").Inc()
		log.Warn().Err(err).Str("instrument", order.Instrument).Msg("order not applied")
		l.pub.PublishError(order.Instrument, err)
		return
	}
	l.metrics.AppliedTotal.WithLabelValues(order.Instrument, order.Kind.String()).Inc()
	for _, tr := range result.Trades {
		log.Info().
			Str("instrument", order.Instrument).
			Str("trade", tr.String()).
			Msg("trade")
	}

	snap := b.Snapshot(1)
	published, err := l.pub.PublishIfChanged(snap)
	if err != nil {
		log.Error().Err(err).Str("instrument", order.Instrument).Msg("publish failed")
	}
	if published {
		l.metrics.PublishedTotal.WithLabelValues(order.Instrument).Inc()
	}

	processingUS := microsBetween(decodeStart, l.nowFunc())
	l.metrics.ProcessingLat.Observe(float64(processingUS))
}

// bookFor returns the book for instrument, creating it on first sight.
// Books are never destroyed for the life of the process (spec §3).
func (l *Loop) bookFor(instrument string) *book.Book {
	b, ok := l.books[instrument]
	if !ok {
		b = book.New(instrument)
		l.books[instrument] = b
	}
	return b
}

func microsBetween(startNanos, endNanos uint64) uint64 {
	if endNanos <= startNanos {
		return 0
	}
	return (endNanos - startNanos) / 1000
}
