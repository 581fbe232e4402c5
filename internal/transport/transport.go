// Package transport implements the two ingress/egress transports at the
// core's boundary (spec §1 "two ingress transports"): a NATS pub/sub
// message bus (pubsub.go) and a file-backed shared-memory ring slot
// (shm.go). Both satisfy the same non-blocking Source/Sink shape so
// internal/ingress's poll loop is identical regardless of which transport
// feeds it (spec §9 "the busy/cooperative choice must be cleanly
// abstracted").
package transport

// Source is a non-blocking ingress transport. TryReceive never blocks: it
// either returns the next available payload, or reports none available.
// A non-nil error wrapping ErrTransportFatal stops the ingress loop (spec
// §7); ErrSlotOverrun and any other error are logged and polling continues.
// Per-message content problems are surfaced as a decode/validation error
// further down the pipeline, not here.
type Source interface {
	TryReceive() (payload []byte, ok bool, err error)
	Close() error
}

// Sink is the egress transport the publisher (C5) writes book-top records
// to.
type Sink interface {
	Send(payload []byte) error
	Close() error
}
