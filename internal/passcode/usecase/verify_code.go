package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/gopasscode/internal/passcode/entity"
	"github.com/shandysiswandi/gopasscode/internal/pkg/goerror"
)

// maxCandidateBytes bounds the candidate passed to the hasher. Longer
// candidates still cost an attempt.
const maxCandidateBytes = 64

type VerifyCodeInput struct {
	Identifier string
	// Code is compared as given; a malformed candidate is just a mismatch.
	Code string
}

type VerifyCodeOutput struct {
	Success bool
	Outcome entity.Outcome
	Message string
	// RemainingAttempts is set only on a mismatch.
	RemainingAttempts int
}

func (s *Usecase) VerifyCode(ctx context.Context, in VerifyCodeInput) (*VerifyCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyCode")
	defer span.End()

	set := s.Settings()
	now := s.clock.Now()

	out := &VerifyCodeOutput{}
	err := s.store.Mutate(ctx, in.Identifier, func(cur *entity.Record) (*entity.Record, error) {
		switch {
		case cur == nil:
			out.Outcome = entity.OutcomeNotFound
			return nil, nil

		case cur.Expired(now):
			out.Outcome = entity.OutcomeExpired
			return nil, nil

		case cur.Attempts >= set.MaxAttempts:
			out.Outcome = entity.OutcomeAttemptsExhausted
			return nil, nil
		}

		next := *cur
		next.Attempts++

		if len(in.Code) <= maxCandidateBytes && s.hash.Verify(next.CodeHash, in.Code) {
			out.Outcome = entity.OutcomeVerified
			return nil, nil
		}

		out.Outcome = entity.OutcomeMismatch
		out.RemainingAttempts = max(set.MaxAttempts-next.Attempts, 0)
		return &next, nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to verify passcode", "identifier", in.Identifier, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.count(ctx, s.verifyCounter, out.Outcome)

	switch out.Outcome {
	case entity.OutcomeVerified:
		out.Success = true
		out.Message = "Code verified successfully."
	case entity.OutcomeNotFound:
		out.Message = "No active code. Please request a new one."
	case entity.OutcomeExpired:
		out.Message = "Code expired. Please request a new one."
	case entity.OutcomeAttemptsExhausted:
		out.Message = "Too many attempts. Please request a new code."
	default:
		out.Message = fmt.Sprintf("Invalid code. %d attempts remaining.", out.RemainingAttempts)
	}

	if !out.Success {
		slog.InfoContext(ctx, "passcode verification failed", "identifier", in.Identifier, "outcome", out.Outcome.String())
	}

	return out, nil
}
