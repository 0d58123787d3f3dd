package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/gopasscode/internal/pkg/clock"
	"github.com/shandysiswandi/gopasscode/internal/pkg/instrument"
	"github.com/shandysiswandi/gopasscode/internal/pkg/mail"
	"github.com/shandysiswandi/gopasscode/internal/pkg/messaging"
	"github.com/shandysiswandi/gopasscode/internal/shared/event"
)

type fixedTTL time.Duration

func (f fixedTTL) TTL() time.Duration { return time.Duration(f) }

type fakeMail struct {
	errs []error
	sent []mail.Message
}

func (f *fakeMail) Send(_ context.Context, msg mail.Message) error {
	f.sent = append(f.sent, msg)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeMail) Close() error { return nil }

type fakePublisher struct {
	err   error
	topic string
	msg   messaging.OutgoingMessage
}

func (f *fakePublisher) Publish(_ context.Context, topic string, msg messaging.OutgoingMessage) error {
	f.topic = topic
	f.msg = msg
	return f.err
}

type fixedID int64

func (f fixedID) Generate() int64 { return int64(f) }

func newTestMail(client mail.Mail, retries uint64) *Mail {
	now := clock.Func(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) })
	return NewMail(client, fixedTTL(5*time.Minute), now, instrument.NewNoop(), MailConfig{
		AppName:    "Acme",
		MaxRetries: retries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
	})
}

func TestMail_Deliver(t *testing.T) {
	t.Parallel()

	transient := errors.New("421 try again")

	tests := []struct {
		name      string
		errs      []error
		retries   uint64
		want      bool
		wantSends int
	}{
		{name: "first try", want: true, wantSends: 1},
		{name: "recovers after transient failures", errs: []error{transient, transient}, retries: 2, want: true, wantSends: 3},
		{name: "gives up after retry budget", errs: []error{transient, transient, transient}, retries: 1, want: false, wantSends: 2},
		{name: "permanent error is not retried", errs: []error{mail.ErrNoSender}, retries: 3, want: false, wantSends: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			client := &fakeMail{errs: tt.errs}
			n := newTestMail(client, tt.retries)

			// Act
			got := n.Deliver(context.Background(), "user@example.com", "654321")

			// Assert
			if got != tt.want {
				t.Fatalf("Deliver() = %v, want %v", got, tt.want)
			}
			if len(client.sent) != tt.wantSends {
				t.Fatalf("sends = %d, want %d", len(client.sent), tt.wantSends)
			}
			msg := client.sent[0]
			if msg.To[0] != "user@example.com" || msg.Subject != "Your Login Code" {
				t.Fatalf("unexpected message: %+v", msg)
			}
			if !strings.Contains(msg.HTMLBody, "654321") || !strings.Contains(msg.TextBody, "5 minutes") {
				t.Fatalf("bodies do not carry code and ttl")
			}
		})
	}
}

func TestMessaging_Deliver(t *testing.T) {
	t.Parallel()

	t.Run("published", func(t *testing.T) {
		t.Parallel()

		// Arrange
		pub := &fakePublisher{}
		now := clock.Func(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) })
		n := NewMessaging(pub, fixedTTL(5*time.Minute), now, fixedID(77), instrument.NewNoop())
		ctx := instrument.SetCorrelationID(context.Background(), "cid-1")

		// Act
		ok := n.Deliver(ctx, "user@example.com", "123456")

		// Assert
		if !ok {
			t.Fatalf("Deliver() = false")
		}
		if pub.topic != event.PasscodeIssuedDestination {
			t.Fatalf("topic = %q", pub.topic)
		}
		var got event.PasscodeIssuedMessage
		if err := json.Unmarshal(pub.msg.Body, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		want := event.PasscodeIssuedMessage{ID: 77, Identifier: "user@example.com", Code: "123456", TTLSeconds: 300, ExpiresAt: 1735689900, CorrelationID: "cid-1"}
		if got != want {
			t.Fatalf("event = %+v, want %+v", got, want)
		}
		if string(pub.msg.Key) != "user@example.com" || string(pub.msg.Headers[0].Value) != "cid-1" {
			t.Fatalf("key/header = %q/%+v", pub.msg.Key, pub.msg.Headers)
		}
	})

	t.Run("broker failure", func(t *testing.T) {
		t.Parallel()

		pub := &fakePublisher{err: errors.New("no responders")}
		n := NewMessaging(pub, fixedTTL(time.Minute), clock.New(), fixedID(1), instrument.NewNoop())

		if n.Deliver(context.Background(), "user@example.com", "123456") {
			t.Fatalf("Deliver() = true on publish error")
		}
	})
}

func TestNone_Deliver(t *testing.T) {
	t.Parallel()

	if NewNone().Deliver(context.Background(), "user@example.com", "123456") {
		t.Fatalf("None.Deliver() = true")
	}
}
