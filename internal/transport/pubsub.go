package transport

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"ironbook/internal/common"
)

const flushTimeout = 2 * time.Second

// PubSub is the message-bus transport (spec §1), backed by a NATS
// subscription drained through a channel so TryReceive can be non-blocking
// without spinning inside the NATS client itself. Client construction
// (dialing the broker) is the external collaborator's job per spec §1;
// this type only wraps an already-established connection.
type PubSub struct {
	id      string
	conn    *nats.Conn
	sub     *nats.Subscription
	msgs    chan *nats.Msg
	subject string
}

// NewPubSub subscribes to subject on an established connection, draining
// messages into a buffered channel so polling never blocks on the network.
func NewPubSub(conn *nats.Conn, subject string, bufferSize int) (*PubSub, error) {
	id := uuid.New().String()
	msgs := make(chan *nats.Msg, bufferSize)
	sub, err := conn.ChanSubscribe(subject, msgs)
	if err != nil {
		return nil, fmt.Errorf("subscribe %q: %w", subject, err)
	}
	log.Info().Str("clientID", id).Str("subject", subject).Msg("pubsub ingress subscribed")
	return &PubSub{id: id, conn: conn, sub: sub, msgs: msgs, subject: subject}, nil
}

// TryReceive drains one message from the subscription channel if available.
// Ordering is FIFO per publisher on a single subject (spec §5); across
// publishers the channel's delivery order is treated as authoritative.
func (p *PubSub) TryReceive() ([]byte, bool, error) {
	select {
	case msg, ok := <-p.msgs:
		if !ok {
			return nil, false, fmt.Errorf("%w: pubsub subscription %q closed", common.ErrTransportFatal, p.subject)
		}
		return msg.Data, true, nil
	default:
		return nil, false, nil
	}
}

// Send publishes payload on subject. Publish failures are PublishError-class
// (spec §7): logged by the caller, never book-mutating.
func (p *PubSub) Send(payload []byte) error {
	return p.conn.Publish(p.subject, payload)
}

// Close unsubscribes. The underlying *nats.Conn is owned by the caller that
// constructed it and is not closed here.
func (p *PubSub) Close() error {
	return p.sub.Unsubscribe()
}

// PubSubSink is the egress half of the message-bus transport: a plain
// publish-only handle, so the publisher (C5) never pays for a subscription
// it does not need.
type PubSubSink struct {
	conn    *nats.Conn
	subject string
}

// NewPubSubSink wraps an established connection for publishing on subject.
func NewPubSubSink(conn *nats.Conn, subject string) *PubSubSink {
	return &PubSubSink{conn: conn, subject: subject}
}

func (p *PubSubSink) Send(payload []byte) error {
	return p.conn.Publish(p.subject, payload)
}

// Close flushes any buffered publishes. The underlying *nats.Conn is owned
// by the caller and is not closed here.
func (p *PubSubSink) Close() error {
	return p.conn.FlushTimeout(flushTimeout)
}
