package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/gopasscode/internal/delivery/usecase"
	"github.com/shandysiswandi/gopasscode/internal/pkg/config"
	"github.com/shandysiswandi/gopasscode/internal/pkg/goroutine"
	"github.com/shandysiswandi/gopasscode/internal/pkg/instrument"
	"github.com/shandysiswandi/gopasscode/internal/pkg/messaging"
	"github.com/shandysiswandi/gopasscode/internal/pkg/uid"
	"github.com/shandysiswandi/gopasscode/internal/shared/event"
)

type uc interface {
	SendPasscode(ctx context.Context, in usecase.SendPasscodeInput) error
}

type consumer struct {
	name         string
	topic        string // destination where publisher sent message
	channel      string // nsq
	queueGroup   string // nats
	subscription string // pubsub
	group        string // kafka
	handler      messaging.Handler
}

func consumers(h *MQHandler) []consumer {
	return []consumer{
		{
			name:         event.PasscodeIssuedConsumerDelivery,
			topic:        event.PasscodeIssuedDestination,
			channel:      event.PasscodeIssuedConsumerDelivery,
			queueGroup:   event.PasscodeIssuedConsumerDelivery,
			subscription: event.PasscodeIssuedConsumerDelivery,
			group:        event.PasscodeIssuedConsumerDelivery,
			handler:      h.PasscodeIssued,
		},
	}
}

// RegisterMQConsumer starts one background consumer per entry of
// modules.delivery.consumer_names and reports how many were started.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Consumer,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) int {
	h := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enabled := cfg.GetArray("modules.delivery.consumer_names")
	concurrency := max(cfg.GetInt("modules.delivery.concurrency"), 1)

	started := 0
	for _, c := range consumers(h) {
		if !slices.Contains(enabled, c.name) {
			continue
		}

		ok := routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(pCtx, "Running job for handling consumer", "consumer", c.name, "topic", c.topic)
			return messenger.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.WithChannel(c.channel),
				messaging.WithQueueGroup(c.queueGroup),
				messaging.WithSubscription(c.subscription),
				messaging.WithGroup(c.group),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxInFlight(concurrency),
			)
		})
		if !ok {
			slog.ErrorContext(ctx, "failed to start consumer", "consumer", c.name)
			continue
		}
		started++
	}

	return started
}
