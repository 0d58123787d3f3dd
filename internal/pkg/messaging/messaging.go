package messaging

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"
)

// ErrClosed is returned when the client was closed before the call.
var ErrClosed = errors.New("messaging: client closed")

// Messaging is a broker-agnostic client that can publish and consume messages.
type Messaging interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher publishes messages to a topic (subject for NATS).
type Publisher interface {
	Publish(ctx context.Context, topic string, msg OutgoingMessage) error
}

// Consumer consumes messages from a topic until ctx is canceled.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes a received message. With auto-ack enabled a nil error
// acks the message and a non-nil error nacks it.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a message to be published.
type OutgoingMessage struct {
	Body []byte
	// Key is used by Kafka for partitioning.
	Key []byte
	// Headers are dropped by brokers without header support (NSQ).
	Headers []Header
}

// Header is a key/value pair attached to a message.
type Header struct {
	Key   string
	Value []byte
}

// Message is a received message.
type Message interface {
	Body() []byte
	Headers() []Header
	// Header returns the first value stored under key, or "".
	Header(key string) string
	// ID is a broker-specific identifier, empty when the broker has none.
	ID() string
	Timestamp() time.Time

	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}

// settle guards a message against being acked or nacked twice.
type settle struct {
	done atomic.Bool
}

func (s *settle) settled() bool { return s.done.Load() }

func (s *settle) once(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.done.Swap(true) {
		return nil
	}
	return fn()
}

func firstHeader(headers []Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// handle runs the handler with panic recovery and settles the message when
// autoAck is set and the handler left it unsettled.
func handle(ctx context.Context, kind string, msg Message, s *settle, handler Handler, autoAck bool) error {
	herr := callHandlerWithRecover(ctx, kind, func() error {
		return handler(ctx, msg)
	})
	if s.settled() || !autoAck {
		return herr
	}
	if herr == nil {
		return msg.Ack(ctx)
	}
	return msg.Nack(ctx)
}
