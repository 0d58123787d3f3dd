package messaging

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubMessage struct {
	settle

	acked  int
	nacked int
}

func (m *stubMessage) Body() []byte { return nil }
func (m *stubMessage) Headers() []Header { return nil }
func (m *stubMessage) Header(string) string { return "" }
func (m *stubMessage) ID() string { return "stub" }
func (m *stubMessage) Timestamp() time.Time { return time.Time{} }
func (m *stubMessage) Ack(ctx context.Context) error {
	return m.once(ctx, func() error { m.acked++; return nil })
}

func (m *stubMessage) Nack(ctx context.Context) error {
	return m.once(ctx, func() error { m.nacked++; return nil })
}

func TestHandle_AutoAck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		autoAck    bool
		handler    Handler
		wantAcked  int
		wantNacked int
		wantErr    bool
	}{
		{
			name:      "ack on success",
			autoAck:   true,
			handler:   func(context.Context, Message) error { return nil },
			wantAcked: 1,
		},
		{
			name:       "nack on error",
			autoAck:    true,
			handler:    func(context.Context, Message) error { return errors.New("boom") },
			wantNacked: 1,
		},
		{
			name:       "nack on panic",
			autoAck:    true,
			handler:    func(context.Context, Message) error { panic("boom") },
			wantNacked: 1,
		},
		{
			name:    "manual mode leaves message alone",
			handler: func(context.Context, Message) error { return errors.New("boom") },
			wantErr: true,
		},
		{
			name:    "handler settled it already",
			autoAck: true,
			handler: func(ctx context.Context, m Message) error {
				//nolint:errcheck // stub never fails
				_ = m.Nack(ctx)
				return nil
			},
			wantNacked: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			msg := &stubMessage{}

			// Act
			err := handle(context.Background(), "stub", msg, &msg.settle, tt.handler, tt.autoAck)

			// Assert
			if (err != nil) != tt.wantErr {
				t.Fatalf("handle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if msg.acked != tt.wantAcked || msg.nacked != tt.wantNacked {
				t.Fatalf("acked=%d nacked=%d, want %d/%d", msg.acked, msg.nacked, tt.wantAcked, tt.wantNacked)
			}
		})
	}
}

func TestNewConsumeOptions(t *testing.T) {
	t.Parallel()

	co := newConsumeOptions(
		WithConcurrency(0),
		WithGroup("g"),
		WithChannel("c"),
		WithQueueGroup("q"),
		WithAutoAck(true),
		WithMaxInFlight(8),
		nil,
	)

	if co.concurrency != 1 {
		t.Fatalf("concurrency = %d, want 1", co.concurrency)
	}
	if co.group != "g" || co.channel != "c" || co.queueGroup != "q" || !co.autoAck || co.maxInFlight != 8 {
		t.Fatalf("unexpected options: %+v", co)
	}
}

func TestNewFromDriver_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewFromDriver(context.Background(), "rabbit", FactoryOptions{}); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("unknown driver error = %v", err)
	}
	if _, err := NewFromDriver(context.Background(), "nats", FactoryOptions{}); !errors.Is(err, ErrNATSURLRequired) {
		t.Fatalf("nats error = %v", err)
	}
	if _, err := NewFromDriver(context.Background(), " Kafka ", FactoryOptions{}); !errors.Is(err, ErrKafkaBrokersRequired) {
		t.Fatalf("kafka error = %v", err)
	}

	n, err := NewFromDriver(context.Background(), "nsq", FactoryOptions{})
	if err != nil {
		t.Fatalf("nsq error = %v", err)
	}
	t.Cleanup(func() { _ = n.Close() })

	if err := n.Publish(context.Background(), "t", OutgoingMessage{}); !errors.Is(err, ErrNSQProducerAddrRequired) {
		t.Fatalf("nsq publish error = %v", err)
	}
	if err := n.Consume(context.Background(), "t", nil); !errors.Is(err, ErrNSQConsumerAddrsRequired) {
		t.Fatalf("nsq consume error = %v", err)
	}
}

func TestKafka_ConsumeRequiresGroup(t *testing.T) {
	t.Parallel()

	k, err := NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("NewKafka() error = %v", err)
	}
	t.Cleanup(func() { _ = k.Close() })

	if err := k.Consume(context.Background(), "t", nil); !errors.Is(err, ErrKafkaGroupRequired) {
		t.Fatalf("Consume() error = %v", err)
	}

	//nolint:errcheck // closing twice is a no-op
	_ = k.Close()
	if err := k.Publish(context.Background(), "t", OutgoingMessage{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Publish() after close error = %v", err)
	}
}
