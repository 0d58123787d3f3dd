package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/gopasscode/internal/pkg/clock"
	"github.com/shandysiswandi/gopasscode/internal/pkg/idempotency"
	"github.com/shandysiswandi/gopasscode/internal/pkg/instrument"
	"github.com/shandysiswandi/gopasscode/internal/pkg/mail"
	"github.com/shandysiswandi/gopasscode/internal/pkg/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type repoMail interface {
	Send(ctx context.Context, msg mail.Message) error
}

type Usecase struct {
	repoMail    repoMail
	idempotency idempotency.Idempotency
	validator   validator.Validator
	clock       clock.Clocker
	ins         instrument.Instrumentation
	appName     string

	deliveryCounter metric.Int64Counter
}

type Dependency struct {
	RepoMail    repoMail
	Idempotency idempotency.Idempotency
	Validator   validator.Validator
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
	AppName     string
}

func New(dep Dependency) *Usecase {
	deliveryCounter, err := dep.Instrument.Meter("delivery.usecase").Int64Counter("passcode.deliveries",
		metric.WithDescription("Passcode deliveries by result"))
	if err != nil {
		slog.Error("failed to create passcode delivery counter", "error", err)
	}

	return &Usecase{
		repoMail:    dep.RepoMail,
		idempotency: dep.Idempotency,
		validator:   dep.Validator,
		clock:       dep.Clock,
		ins:         dep.Instrument,
		appName:     dep.AppName,

		deliveryCounter: deliveryCounter,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("delivery.usecase").Start(ctx, name)
}

func (s *Usecase) count(ctx context.Context, result string) {
	if s.deliveryCounter == nil {
		return
	}
	s.deliveryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
		attribute.String("source", "broker"),
	))
}
