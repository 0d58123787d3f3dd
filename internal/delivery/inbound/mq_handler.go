package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/gopasscode/internal/delivery/usecase"
	"github.com/shandysiswandi/gopasscode/internal/pkg/goerror"
	"github.com/shandysiswandi/gopasscode/internal/pkg/instrument"
	"github.com/shandysiswandi/gopasscode/internal/pkg/messaging"
	"github.com/shandysiswandi/gopasscode/internal/pkg/uid"
	"github.com/shandysiswandi/gopasscode/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

// ensureCorrelationID prefers the header, then the payload copy, then a new id.
func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message, fromBody string) context.Context {
	if cID := msg.Header(keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	if fromBody != "" {
		return instrument.SetCorrelationID(ctx, fromBody)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// PasscodeIssued returns nil for events that can never succeed so the broker
// drops them; other failures are returned for redelivery.
func (h *MQHandler) PasscodeIssued(ctx context.Context, msg messaging.Message) error {
	body := msg.Body()

	var payload event.PasscodeIssuedMessage
	parseErr := json.Unmarshal(body, &payload)

	ctx = h.ensureCorrelationID(ctx, msg, payload.CorrelationID)

	ctx, span := h.ins.Tracer("delivery.inbound.mq").Start(ctx, "PasscodeIssued")
	defer span.End()

	slog.InfoContext(ctx, "consume: passcode issued", "msg_id", msg.ID(), "event_id", payload.ID)

	if parseErr != nil {
		slog.ErrorContext(ctx, "failed to parse message body of passcode issued", "msg_id", msg.ID(), "error", parseErr)
		return nil
	}

	err := h.uc.SendPasscode(ctx, usecase.SendPasscodeInput{
		EventID:    payload.ID,
		Identifier: payload.Identifier,
		Code:       payload.Code,
		TTLSeconds: payload.TTLSeconds,
		ExpiresAt:  payload.ExpiresAt,
	})

	var gerr *goerror.Error
	if errors.As(err, &gerr) && gerr.Type() == goerror.TypeValidation {
		return nil
	}

	return err
}
