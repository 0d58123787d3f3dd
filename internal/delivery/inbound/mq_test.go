package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/gopasscode/internal/delivery/usecase"
	"github.com/shandysiswandi/gopasscode/internal/pkg/config"
	"github.com/shandysiswandi/gopasscode/internal/pkg/goerror"
	"github.com/shandysiswandi/gopasscode/internal/pkg/goroutine"
	"github.com/shandysiswandi/gopasscode/internal/pkg/instrument"
	"github.com/shandysiswandi/gopasscode/internal/pkg/messaging"
	"github.com/shandysiswandi/gopasscode/internal/shared/event"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type fakeMessage struct {
	body    []byte
	headers []messaging.Header
}

func (m *fakeMessage) Body() []byte { return m.body }
func (m *fakeMessage) Headers() []messaging.Header { return m.headers }
func (m *fakeMessage) ID() string { return "m-1" }
func (m *fakeMessage) Timestamp() time.Time { return time.Time{} }
func (m *fakeMessage) Ack(context.Context) error { return nil }
func (m *fakeMessage) Nack(context.Context) error { return nil }
func (m *fakeMessage) Header(key string) string {
	for _, h := range m.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

type fakeUsecase struct {
	err   error
	got   usecase.SendPasscodeInput
	gotID string
	calls int
}

func (f *fakeUsecase) SendPasscode(ctx context.Context, in usecase.SendPasscodeInput) error {
	f.calls++
	f.got = in
	f.gotID = instrument.GetCorrelationID(ctx)
	return f.err
}

func issuedBody(t *testing.T, cID string) []byte {
	t.Helper()
	body, err := json.Marshal(event.PasscodeIssuedMessage{
		ID:            7,
		Identifier:    "user@example.com",
		Code:          "654321",
		TTLSeconds:    300,
		ExpiresAt:     1772359500,
		CorrelationID: cID,
	})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return body
}

func TestPasscodeIssued_MapsPayload(t *testing.T) {
	// Arrange
	uc := &fakeUsecase{}
	h := &MQHandler{uc: uc, uuid: fixedID("generated"), ins: instrument.NewNoop()}
	msg := &fakeMessage{
		body:    issuedBody(t, "from-body"),
		headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte("from-header")}},
	}

	// Act
	err := h.PasscodeIssued(context.Background(), msg)

	// Assert
	if err != nil {
		t.Fatalf("PasscodeIssued() error = %v", err)
	}
	want := usecase.SendPasscodeInput{EventID: 7, Identifier: "user@example.com", Code: "654321", TTLSeconds: 300, ExpiresAt: 1772359500}
	if uc.got != want {
		t.Fatalf("input = %+v, want %+v", uc.got, want)
	}
	if uc.gotID != "from-header" {
		t.Fatalf("correlation id = %q, want from-header", uc.gotID)
	}
}

func TestPasscodeIssued_CorrelationIDFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		bodyID string
		want   string
	}{
		{name: "payload copy", bodyID: "from-body", want: "from-body"},
		{name: "generated", bodyID: "", want: "generated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			uc := &fakeUsecase{}
			h := &MQHandler{uc: uc, uuid: fixedID("generated"), ins: instrument.NewNoop()}

			// Act
			err := h.PasscodeIssued(context.Background(), &fakeMessage{body: issuedBody(t, tt.bodyID)})

			// Assert
			if err != nil {
				t.Fatalf("PasscodeIssued() error = %v", err)
			}
			if uc.gotID != tt.want {
				t.Fatalf("correlation id = %q, want %q", uc.gotID, tt.want)
			}
		})
	}
}

func TestPasscodeIssued_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      []byte
		ucErr     error
		wantErr   bool
		wantCalls int
	}{
		{name: "malformed body is dropped", body: []byte("{"), wantCalls: 0},
		{name: "invalid event is dropped", ucErr: goerror.NewInvalidInput(errors.New("bad")), wantCalls: 1},
		{name: "send failure is redelivered", ucErr: goerror.NewServer(errors.New("smtp")), wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			uc := &fakeUsecase{err: tt.ucErr}
			h := &MQHandler{uc: uc, uuid: fixedID("generated"), ins: instrument.NewNoop()}
			body := tt.body
			if body == nil {
				body = issuedBody(t, "")
			}

			// Act
			err := h.PasscodeIssued(context.Background(), &fakeMessage{body: body})

			// Assert
			if (err != nil) != tt.wantErr {
				t.Fatalf("PasscodeIssued() error = %v, wantErr %v", err, tt.wantErr)
			}
			if uc.calls != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", uc.calls, tt.wantCalls)
			}
		})
	}
}

type fakeConsumer struct {
	mu     sync.Mutex
	topics []string
}

func (c *fakeConsumer) Consume(ctx context.Context, topic string, _ messaging.Handler, _ ...messaging.ConsumeOption) error {
	c.mu.Lock()
	c.topics = append(c.topics, topic)
	c.mu.Unlock()
	<-ctx.Done()
	return nil
}

func TestRegisterMQConsumer(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want int
	}{
		{name: "enabled", yaml: "modules:\n  delivery:\n    consumer_names: passcode_issued_delivery\n", want: 1},
		{name: "disabled", yaml: "modules:\n  delivery:\n    consumer_names: other\n", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cfg, err := config.NewViperFromBytes("yaml", []byte(tt.yaml))
			if err != nil {
				t.Fatalf("NewViperFromBytes() error = %v", err)
			}
			ctx, cancel := context.WithCancel(context.Background())
			routine := goroutine.NewManager(4)
			consumer := &fakeConsumer{}

			// Act
			got := RegisterMQConsumer(ctx, cfg, routine, consumer, fixedID("x"), &fakeUsecase{}, instrument.NewNoop())
			cancel()
			if err := routine.Wait(); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}

			// Assert
			if got != tt.want {
				t.Fatalf("started = %d, want %d", got, tt.want)
			}
			if len(consumer.topics) > tt.want {
				t.Fatalf("topics = %v", consumer.topics)
			}
			for _, topic := range consumer.topics {
				if topic != event.PasscodeIssuedDestination {
					t.Fatalf("topic = %q", topic)
				}
			}
		})
	}
}
