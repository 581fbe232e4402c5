package ingress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ironbook/internal/common"
	"ironbook/internal/metrics"
	"ironbook/internal/wire"
)

// fakeSource feeds a fixed queue of payloads, then reports empty forever.
type fakeSource struct {
	mu      sync.Mutex
	payload [][]byte
}

func (f *fakeSource) TryReceive() ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payload) == 0 {
		return nil, false, nil
	}
	p := f.payload[0]
	f.payload = f.payload[1:]
	return p, true, nil
}

func (f *fakeSource) Close() error { return nil }

// fakeSink records every payload sent to it.
type fakeSink struct {
	mu   sync.Mutex
	sent [][]byte
}

func (f *fakeSink) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestLoopDecodesAppliesAndPublishes(t *testing.T) {
	order := common.OrderEvent{
		ID:         1,
		Instrument: "TSLA",
		Price:      common.PriceFromFloat(300.0),
		Quantity:   10,
		Side:       common.Buy,
		Kind:       common.Limit,
		OriginTS:   1,
	}
	src := &fakeSource{payload: [][]byte{wire.EncodeOrder(order)}}
	sink := &fakeSink{}
	reg := metrics.NewRegistry(prometheus.NewRegistry())

	loop := New(src, sink, Cooperative, reg, func() uint64 { return 2 })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = loop.Run(ctx)

	assert.Equal(t, 1, sink.count(), "the lone resting order should trigger exactly one book-top publish")
}

func TestLoopDropsMalformedPayloadWithoutCrashing(t *testing.T) {
	src := &fakeSource{payload: [][]byte{{0xff, 0xff, 0xff}}}
	sink := &fakeSink{}
	reg := metrics.NewRegistry(prometheus.NewRegistry())

	loop := New(src, sink, Busy, reg, func() uint64 { return 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := loop.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sink.count())
}
