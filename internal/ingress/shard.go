package ingress

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"ironbook/internal/common"
	"ironbook/internal/metrics"
	"ironbook/internal/transport"
	"ironbook/internal/wire"
)

// shardChannelBuffer bounds how many undelivered records an instrument's
// shard can hold before the dispatcher starts dropping for it; a slow
// shard should never block every other instrument's delivery.
const shardChannelBuffer = 1024

// chanSource adapts a buffered byte-slice channel to transport.Source, so a
// per-instrument Loop can poll it exactly like it would poll a real
// transport.
type chanSource struct {
	ch <-chan []byte
}

func (c *chanSource) TryReceive() ([]byte, bool, error) {
	select {
	case payload, ok := <-c.ch:
		if !ok {
			return nil, false, nil
		}
		return payload, true, nil
	default:
		return nil, false, nil
	}
}

func (c *chanSource) Close() error { return nil }

// Sharder implements the `--shard-by-instrument` mode (SPEC_FULL.md §9,
// Supplemented Feature #1): a single dispatcher goroutine drains the real
// transport.Source just far enough to learn each record's instrument, then
// hands the raw payload to a per-instrument Loop running on its own
// goroutine, all supervised by one tomb — the same supervision the
// single-loop Loop.Run uses, generalized to a dynamic goroutine-per-
// instrument set instead of one goroutine for every instrument's book.
type Sharder struct {
	source  transport.Source
	sink    transport.Sink
	mode    PollMode
	metrics *metrics.Registry
	nowFunc func() uint64

	mu       sync.Mutex
	channels map[string]chan []byte
}

// NewSharder constructs a Sharder reading from source and publishing to sink.
func NewSharder(source transport.Source, sink transport.Sink, mode PollMode, reg *metrics.Registry, nowFunc func() uint64) *Sharder {
	return &Sharder{
		source:   source,
		sink:     sink,
		mode:     mode,
		metrics:  reg,
		nowFunc:  nowFunc,
		channels: make(map[string]chan []byte),
	}
}

// Run dispatches records to per-instrument Loops until ctx is cancelled or
// a fatal transport error occurs, mirroring Loop.Run's shutdown contract.
func (s *Sharder) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)
	t.Go(func() error {
		return s.dispatch(t, ctx)
	})
	return t.Wait()
}

func (s *Sharder) dispatch(t *tomb.Tomb, ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		payload, ok, err := s.source.TryReceive()
		if err != nil {
			if errors.Is(err, common.ErrSlotOverrun) {
				s.metrics.DroppedTotal.WithLabelValues("slot_overrun").Inc()
				log.Error().Err(err).Msg("slot overrun, event dropped")
				continue
			}
			if errors.Is(err, common.ErrTransportFatal) {
				log.Error().Err(err).Msg("fatal transport error, stopping sharded ingress")
				return err
			}
			log.Error().Err(err).Msg("transport error")
			continue
		}
		if !ok {
			s.idle()
			continue
		}

		instrument, decErr := peekInstrument(payload)
		if decErr != nil {
			s.metrics.DroppedTotal.WithLabelValues("decode_error").Inc()
			log.Warn().Err(decErr).Msg("dropping malformed order record")
			continue
		}

		ch := s.shardFor(t, ctx, instrument)
		select {
		case ch <- payload:
		default:
			s.metrics.DroppedTotal.WithLabelValues("shard_full").Inc()
			log.Warn().Str("instrument", instrument).Msg("shard channel full, dropping record")
		}
	}
}

func (s *Sharder) idle() {
	switch s.mode {
	case Busy:
		pauseHint()
	default:
		time.Sleep(cooperativeInterval)
	}
}

// shardFor returns the dispatch channel for instrument, spawning its Loop
// goroutine under t on first sight. Instruments never lose their shard for
// the life of the process (spec §3 "Lifecycle").
func (s *Sharder) shardFor(t *tomb.Tomb, ctx context.Context, instrument string) chan []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[instrument]
	if ok {
		return ch
	}

	ch = make(chan []byte, shardChannelBuffer)
	s.channels[instrument] = ch
	loop := New(&chanSource{ch: ch}, s.sink, s.mode, s.metrics, s.nowFunc)
	t.Go(func() error {
		return loop.poll(ctx)
	})
	log.Info().Str("instrument", instrument).Msg("spawned per-instrument shard")
	return ch
}

// peekInstrument decodes a record only to learn its instrument for routing;
// the payload is forwarded in its original wire form, so the owning shard's
// Loop decodes (and validates) it again independently when it processes it.
func peekInstrument(payload []byte) (string, error) {
	o, err := wire.DecodeOrder(payload)
	if err != nil {
		return "", err
	}
	return o.Instrument, nil
}
