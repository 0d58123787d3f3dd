package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shandysiswandi/gopasscode/internal/pkg/goerror"
	"github.com/shandysiswandi/gopasscode/internal/pkg/idempotency"
	"github.com/shandysiswandi/gopasscode/internal/pkg/mail"
	"github.com/shandysiswandi/gopasscode/internal/shared/template"
)

const (
	resultDelivered = "delivered"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
	resultExpired   = "expired"
)

type SendPasscodeInput struct {
	EventID    int64  `validate:"required"`
	Identifier string `validate:"required,email"`
	Code       string `validate:"required,passcode"`
	TTLSeconds int    `validate:"gt=0"`
	ExpiresAt  int64  `validate:"gt=0"` // unix seconds
}

func idempotencyKey(eventID int64) string {
	return "passcode_delivery:" + strconv.FormatInt(eventID, 10)
}

// SendPasscode emails the code carried by one passcode_issued event. An event
// already delivered, or one whose code has expired, is acknowledged without
// sending.
func (s *Usecase) SendPasscode(ctx context.Context, in SendPasscodeInput) error {
	ctx, span := s.startSpan(ctx, "SendPasscode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "invalid passcode event", "event_id", in.EventID, "error", err)
		return goerror.NewInvalidInput(err)
	}

	if !s.clock.Now().Before(time.Unix(in.ExpiresAt, 0)) {
		s.count(ctx, resultExpired)
		slog.InfoContext(ctx, "passcode event expired, dropping", "event_id", in.EventID, "expires_at", in.ExpiresAt)
		return nil
	}

	err := s.idempotency.Exec(ctx, idempotencyKey(in.EventID), func(ctx context.Context) error {
		email, err := template.RenderPasscode(template.PasscodeData{
			AppName: s.appName,
			Code:    in.Code,
			TTL:     time.Duration(in.TTLSeconds) * time.Second,
			Now:     s.clock.Now(),
		})
		if err != nil {
			return err
		}

		return s.repoMail.Send(ctx, mail.Message{
			To:       []string{in.Identifier},
			Subject:  email.Subject,
			HTMLBody: email.HTMLBody,
			TextBody: email.TextBody,
		})
	})

	switch {
	case err == nil:
		s.count(ctx, resultDelivered)
		slog.InfoContext(ctx, "passcode email delivered", "event_id", in.EventID, "identifier", in.Identifier)
		return nil

	case errors.Is(err, idempotency.ErrAlreadyCompleted):
		s.count(ctx, resultDuplicate)
		slog.InfoContext(ctx, "passcode event already delivered", "event_id", in.EventID)
		return nil

	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		slog.InfoContext(ctx, "passcode event is being delivered by another worker", "event_id", in.EventID)
		return err

	default:
		s.count(ctx, resultFailed)
		slog.ErrorContext(ctx, "failed to deliver passcode email", "event_id", in.EventID, "identifier", in.Identifier, "error", err)
		return goerror.NewServer(err)
	}
}
