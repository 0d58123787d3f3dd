// Package notifier delivers issued passcodes. Every implementation turns
// transport failures into a false result; none of them returns an error.
package notifier

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "passcode.outbound.notifier"

type ttlSource interface {
	TTL() time.Duration
}

func fail(ctx context.Context, span trace.Span, msg string, err error, args ...any) bool {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	slog.ErrorContext(ctx, msg, append(args, "error", err)...)
	return false
}

// None never delivers, so callers fall back to returning the code. It
// stands in when no transport is configured.
type None struct{}

func NewNone() *None {
	return &None{}
}

func (*None) Deliver(ctx context.Context, identifier, _ string) bool {
	slog.WarnContext(ctx, "passcode notifier not configured", "identifier", identifier)
	return false
}
