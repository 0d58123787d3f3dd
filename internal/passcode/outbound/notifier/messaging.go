package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shandysiswandi/gopasscode/internal/pkg/clock"
	"github.com/shandysiswandi/gopasscode/internal/pkg/instrument"
	"github.com/shandysiswandi/gopasscode/internal/pkg/messaging"
	"github.com/shandysiswandi/gopasscode/internal/pkg/uid"
	"github.com/shandysiswandi/gopasscode/internal/shared/event"
)

// Messaging hands the code to the delivery worker through the broker.
// Delivered means the broker accepted the event.
//
// The event carries the plaintext code, so the broker holds it until the
// worker acks it or the topic retention drops it. Workers discard events
// past expires_at; keep topic retention close to the code TTL (Kafka
// retention.ms, Pub/Sub message_retention_duration).
type Messaging struct {
	publisher messaging.Publisher
	ttl       ttlSource
	clock     clock.Clocker
	uid       uid.NumberID
	ins       instrument.Instrumentation
}

func NewMessaging(publisher messaging.Publisher, ttl ttlSource, clk clock.Clocker, id uid.NumberID, ins instrument.Instrumentation) *Messaging {
	return &Messaging{publisher: publisher, ttl: ttl, clock: clk, uid: id, ins: ins}
}

func (m *Messaging) Deliver(ctx context.Context, identifier, code string) bool {
	ctx, span := m.ins.Tracer(tracerName).Start(ctx, "Messaging.Deliver")
	defer span.End()

	cID := instrument.GetCorrelationID(ctx)
	ttl := m.ttl.TTL()
	msg := event.PasscodeIssuedMessage{
		ID:            m.uid.Generate(),
		Identifier:    identifier,
		Code:          code,
		TTLSeconds:    int(ttl.Seconds()),
		ExpiresAt:     m.clock.Now().Add(ttl).Unix(),
		CorrelationID: cID,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fail(ctx, span, "failed to marshal passcode event", err, "identifier", identifier)
	}

	if err := m.publisher.Publish(ctx, event.PasscodeIssuedDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(identifier),
		Headers: []messaging.Header{{Key: "cID", Value: []byte(cID)}},
	}); err != nil {
		err = fmt.Errorf("publish %s: %w", event.PasscodeIssuedDestination, err)
		return fail(ctx, span, "failed to publish passcode event", err, "identifier", identifier, "event_id", msg.ID)
	}

	return true
}
