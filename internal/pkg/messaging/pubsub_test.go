package messaging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"cloud.google.com/go/pubsub/v2/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const pubSubTestProject = "gopasscode-test"

func newPubSubTest(t *testing.T, topic, subscription string) *PubSub {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, pubSubTestProject, option.WithGRPCConn(conn))
	if err != nil {
		t.Fatalf("pubsub.NewClient() error = %v", err)
	}

	topicName := "projects/" + pubSubTestProject + "/topics/" + topic
	if _, err := client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: topicName}); err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}
	if _, err := client.SubscriptionAdminClient.CreateSubscription(ctx, &pubsubpb.Subscription{
		Name:  "projects/" + pubSubTestProject + "/subscriptions/" + subscription,
		Topic: topicName,
	}); err != nil {
		t.Fatalf("CreateSubscription() error = %v", err)
	}

	p, err := NewPubSub(ctx, PubSubConfig{Client: client})
	if err != nil {
		t.Fatalf("NewPubSub() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	return p
}

func TestNewPubSub_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewPubSub(context.Background(), PubSubConfig{}); !errors.Is(err, ErrPubSubProjectIDRequired) {
		t.Fatalf("NewPubSub() error = %v, want %v", err, ErrPubSubProjectIDRequired)
	}
	if _, err := NewFromDriver(context.Background(), " PubSub ", FactoryOptions{}); !errors.Is(err, ErrPubSubProjectIDRequired) {
		t.Fatalf("NewFromDriver() error = %v, want %v", err, ErrPubSubProjectIDRequired)
	}
}

func TestPubSub_PublishConsume(t *testing.T) {
	t.Parallel()

	// Arrange
	p := newPubSubTest(t, "passcode_issued", "passcode_issued_delivery")
	body := []byte(`{"id":1,"identifier":"user@example.com","code":"123456","ttl_seconds":300,"expires_at":1772359500}`)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	type received struct {
		body []byte
		cID  string
	}
	got := make(chan received, 1)
	done := make(chan error, 1)

	// Act
	if err := p.Publish(ctx, "passcode_issued", OutgoingMessage{
		Body:    body,
		Key:     []byte("user@example.com"),
		Headers: []Header{{Key: "cID", Value: []byte("corr-1")}},
	}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	go func() {
		done <- p.Consume(ctx, "passcode_issued", func(_ context.Context, msg Message) error {
			select {
			case got <- received{body: msg.Body(), cID: msg.Header("cID")}:
			default:
			}
			return nil
		}, WithSubscription("passcode_issued_delivery"), WithAutoAck(true))
	}()

	// Assert
	select {
	case r := <-got:
		if string(r.body) != string(body) {
			t.Fatalf("body = %s, want %s", r.body, body)
		}
		if r.cID != "corr-1" {
			t.Fatalf("cID header = %q, want %q", r.cID, "corr-1")
		}
	case <-ctx.Done():
		t.Fatalf("message not received: %v", ctx.Err())
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Consume() error = %v, want %v", err, context.Canceled)
	}
}

func TestPubSub_HandlerErrorRedelivers(t *testing.T) {
	t.Parallel()

	// Arrange
	p := newPubSubTest(t, "passcode_issued", "passcode_issued_delivery")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var deliveries atomic.Int32
	var once sync.Once
	acked := make(chan struct{})

	if err := p.Publish(ctx, "passcode_issued", OutgoingMessage{Body: []byte("x")}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	// Act
	go func() {
		//nolint:errcheck // canceled below
		_ = p.Consume(ctx, "passcode_issued", func(context.Context, Message) error {
			if deliveries.Add(1) == 1 {
				return errors.New("smtp down")
			}
			once.Do(func() { close(acked) })
			return nil
		}, WithSubscription("passcode_issued_delivery"), WithAutoAck(true))
	}()

	// Assert
	select {
	case <-acked:
	case <-ctx.Done():
		t.Fatalf("message not redelivered after nack, deliveries = %d", deliveries.Load())
	}
	if got := deliveries.Load(); got < 2 {
		t.Fatalf("deliveries = %d, want at least 2", got)
	}
}

func TestPubSub_Closed(t *testing.T) {
	t.Parallel()

	p := newPubSubTest(t, "t", "s")
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := p.Publish(context.Background(), "t", OutgoingMessage{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Publish() error = %v, want %v", err, ErrClosed)
	}
	if err := p.Consume(context.Background(), "t", nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("Consume() error = %v, want %v", err, ErrClosed)
	}
}
