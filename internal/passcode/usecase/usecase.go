package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/gopasscode/internal/passcode/entity"
	"github.com/shandysiswandi/gopasscode/internal/pkg/clock"
	"github.com/shandysiswandi/gopasscode/internal/pkg/goroutine"
	"github.com/shandysiswandi/gopasscode/internal/pkg/hash"
	"github.com/shandysiswandi/gopasscode/internal/pkg/instrument"
	"github.com/shandysiswandi/gopasscode/internal/pkg/otp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MutateFunc receives the current record (nil when absent) and returns the
// record to keep. Returning nil deletes; returning an error leaves the store
// untouched.
type MutateFunc func(cur *entity.Record) (*entity.Record, error)

type store interface {
	// Mutate runs fn while holding the identifier's lock.
	Mutate(ctx context.Context, identifier string, fn MutateFunc) error
}

type notifier interface {
	// Deliver reports whether the code reached the transport. It never panics.
	Deliver(ctx context.Context, identifier, code string) bool
}

type Usecase struct {
	store     store
	notifier  notifier
	hash      hash.Hash
	generator otp.Generator
	clock     clock.Clocker
	ins       instrument.Instrumentation
	goroutine *goroutine.Manager
	settings  *SettingsHolder

	requestCounter  metric.Int64Counter
	verifyCounter   metric.Int64Counter
	deliveryCounter metric.Int64Counter
}

type Dependency struct {
	Store      store
	Notifier   notifier
	Hash       hash.Hash
	Generator  otp.Generator
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
	Goroutine  *goroutine.Manager
	Settings   *SettingsHolder
}

func New(dep Dependency) *Usecase {
	meter := dep.Instrument.Meter("passcode.usecase")

	requestCounter, err := meter.Int64Counter("passcode.requests", metric.WithDescription("Passcode requests by outcome"))
	if err != nil {
		slog.Error("failed to create passcode request counter", "error", err)
	}
	verifyCounter, err := meter.Int64Counter("passcode.verifications", metric.WithDescription("Passcode verifications by outcome"))
	if err != nil {
		slog.Error("failed to create passcode verification counter", "error", err)
	}
	deliveryCounter, err := meter.Int64Counter("passcode.deliveries", metric.WithDescription("Passcode deliveries by result"))
	if err != nil {
		slog.Error("failed to create passcode delivery counter", "error", err)
	}

	return &Usecase{
		store:     dep.Store,
		notifier:  dep.Notifier,
		hash:      dep.Hash,
		generator: dep.Generator,
		clock:     dep.Clock,
		ins:       dep.Instrument,
		goroutine: dep.Goroutine,
		settings:  dep.Settings,

		requestCounter:  requestCounter,
		verifyCounter:   verifyCounter,
		deliveryCounter: deliveryCounter,
	}
}

// Reload swaps the settings used by calls that start afterwards.
func (s *Usecase) Reload(set Settings) {
	set = s.settings.Store(set)
	slog.Info("passcode settings reloaded",
		"ttl", set.TTL.String(),
		"max_attempts", set.MaxAttempts,
		"throttle_remaining", set.ThrottleRemaining.String(),
		"delivery_mode", string(set.DeliveryMode),
	)
}

// Settings returns the snapshot currently in effect.
func (s *Usecase) Settings() Settings {
	return s.settings.Load()
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("passcode.usecase").Start(ctx, name)
}

func (s *Usecase) count(ctx context.Context, c metric.Int64Counter, outcome entity.Outcome) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))
}
