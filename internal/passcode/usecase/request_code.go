package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/gopasscode/internal/passcode/entity"
	"github.com/shandysiswandi/gopasscode/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RequestCodeInput.Identifier is an opaque key, compared byte for byte.
type RequestCodeInput struct {
	Identifier string
}

type RequestCodeOutput struct {
	Success bool
	Outcome entity.Outcome
	Message string

	DeliveryOK      bool
	DeliveryPending bool
	TTLSeconds      int
	// RetryAfterSeconds is set only when throttled and holds the whole seconds
	// left before the outstanding code expires.
	RetryAfterSeconds int
	// FallbackCode carries the plaintext code when synchronous delivery failed.
	// This is a degraded mode for environments without a working notifier.
	FallbackCode string
}

func (s *Usecase) RequestCode(ctx context.Context, in RequestCodeInput) (*RequestCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestCode")
	defer span.End()

	set := s.Settings()
	now := s.clock.Now()
	threshold := int64(set.ThrottleRemaining.Seconds())

	var (
		code       string
		throttled  bool
		retryAfter int64
	)
	err := s.store.Mutate(ctx, in.Identifier, func(cur *entity.Record) (*entity.Record, error) {
		if cur != nil && !cur.Expired(now) {
			if remaining := cur.RemainingSeconds(now); remaining > threshold {
				throttled, retryAfter = true, remaining
				return cur, nil
			}
		}

		plain, err := s.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		digest, err := s.hash.Hash(plain)
		if err != nil {
			return nil, fmt.Errorf("hash code: %w", err)
		}

		code = plain
		return &entity.Record{
			CodeHash:  string(digest),
			CreatedAt: now,
			ExpiresAt: now.Add(set.TTL),
		}, nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to store passcode", "identifier", in.Identifier, "error", err)
		return nil, goerror.NewServer(err)
	}

	if throttled {
		slog.InfoContext(ctx, "passcode request throttled", "identifier", in.Identifier, "retry_after", retryAfter)
		s.count(ctx, s.requestCounter, entity.OutcomeThrottled)
		return &RequestCodeOutput{
			Outcome:           entity.OutcomeThrottled,
			Message:           fmt.Sprintf("Code already sent. Please wait %d seconds before requesting again.", retryAfter),
			RetryAfterSeconds: int(retryAfter),
		}, nil
	}

	s.count(ctx, s.requestCounter, entity.OutcomeIssued)
	out := &RequestCodeOutput{
		Success:    true,
		Outcome:    entity.OutcomeIssued,
		TTLSeconds: int(set.TTL.Seconds()),
	}

	if set.DeliveryMode == entity.DeliveryModeAsync && s.dispatch(ctx, in.Identifier, code) {
		out.DeliveryPending = true
		out.Message = "Code is on its way."
		return out, nil
	}

	out.DeliveryOK = s.deliver(ctx, in.Identifier, code)
	if out.DeliveryOK {
		out.Message = "Code sent successfully."
		return out, nil
	}

	slog.WarnContext(ctx, "passcode not delivered, returning fallback code", "identifier", in.Identifier)
	out.Message = "Code generated (email not configured)."
	out.FallbackCode = code

	return out, nil
}

// dispatch hands delivery to the goroutine manager. The request context is
// detached so the reply does not cancel the send.
func (s *Usecase) dispatch(ctx context.Context, identifier, code string) bool {
	return s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if !s.deliver(ctx, identifier, code) {
			slog.WarnContext(ctx, "async passcode delivery failed", "identifier", identifier)
		}
		return nil
	})
}

func (s *Usecase) deliver(ctx context.Context, identifier, code string) bool {
	ok := s.notifier.Deliver(ctx, identifier, code)
	if s.deliveryCounter != nil {
		result := "failed"
		if ok {
			result = "delivered"
		}
		s.deliveryCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
	return ok
}
