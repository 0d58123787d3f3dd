package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/gopasscode/internal/pkg/clock"
	"github.com/shandysiswandi/gopasscode/internal/pkg/instrument"
	"github.com/shandysiswandi/gopasscode/internal/pkg/mail"
	"github.com/shandysiswandi/gopasscode/internal/shared/template"
	"go.opentelemetry.io/otel/attribute"
)

// MailConfig tunes the direct mail notifier.
type MailConfig struct {
	AppName string
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64
	// BaseDelay is the first backoff step; it doubles per retry up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Mail renders the passcode email and sends it with retries.
type Mail struct {
	client mail.Mail
	ttl    ttlSource
	clock  clock.Clocker
	ins    instrument.Instrumentation
	cfg    MailConfig
}

func NewMail(client mail.Mail, ttl ttlSource, clk clock.Clocker, ins instrument.Instrumentation, cfg MailConfig) *Mail {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 2 * time.Second
	}
	return &Mail{client: client, ttl: ttl, clock: clk, ins: ins, cfg: cfg}
}

func (m *Mail) Deliver(ctx context.Context, identifier, code string) bool {
	ctx, span := m.ins.Tracer(tracerName).Start(ctx, "Mail.Deliver")
	defer span.End()

	email, err := template.RenderPasscode(template.PasscodeData{
		AppName: m.cfg.AppName,
		Code:    code,
		TTL:     m.ttl.TTL(),
		Now:     m.clock.Now(),
	})
	if err != nil {
		return fail(ctx, span, "failed to render passcode email", err, "identifier", identifier)
	}

	msg := mail.Message{
		To:       []string{identifier},
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}

	attempts := 0
	b := retry.WithCappedDuration(m.cfg.MaxDelay, retry.NewExponential(m.cfg.BaseDelay))
	b = retry.WithMaxRetries(m.cfg.MaxRetries, b)

	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++
		if err := m.client.Send(ctx, msg); err != nil {
			if permanent(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	span.SetAttributes(attribute.Int("mail.attempts", attempts))
	if err != nil {
		return fail(ctx, span, "failed to send passcode email", err, "identifier", identifier, "attempts", attempts)
	}

	return true
}

func permanent(err error) bool {
	return errors.Is(err, mail.ErrNoRecipients) ||
		errors.Is(err, mail.ErrNoSender) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
