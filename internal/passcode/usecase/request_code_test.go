package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/gopasscode/internal/passcode/entity"
	"github.com/shandysiswandi/gopasscode/internal/passcode/usecase"
	"github.com/shandysiswandi/gopasscode/internal/pkg/goerror"
	"github.com/shandysiswandi/gopasscode/internal/pkg/hash"
)

func TestUsecase_RequestCode_Issued(t *testing.T) {
	t.Parallel()

	// Arrange
	f := newFixture(t, usecase.Settings{})
	start := f.clock.Now()

	// Act
	out := f.request(t, identifier)

	// Assert
	want := usecase.RequestCodeOutput{
		Success:    true,
		Outcome:    entity.OutcomeIssued,
		Message:    "Code sent successfully.",
		DeliveryOK: true,
		TTLSeconds: 300,
	}
	if *out != want {
		t.Fatalf("RequestCode() = %+v, want %+v", *out, want)
	}

	calls := f.notifier.Calls()
	if len(calls) != 1 || calls[0].identifier != identifier || calls[0].code != "100000" {
		t.Fatalf("notifier calls = %+v", calls)
	}

	rec := f.record(t, identifier)
	if rec == nil {
		t.Fatalf("no record stored")
	}
	digest, _ := hash.NewSHA256().Hash("100000")
	if rec.CodeHash != string(digest) || rec.CodeHash == "100000" {
		t.Fatalf("CodeHash = %q, want digest of the code", rec.CodeHash)
	}
	if rec.Attempts != 0 || !rec.CreatedAt.Equal(start) || !rec.ExpiresAt.Equal(start.Add(5*time.Minute)) {
		t.Fatalf("record = %+v", rec)
	}
}

func TestUsecase_RequestCode_DeliveryFailureReturnsFallback(t *testing.T) {
	t.Parallel()

	// Arrange
	f := newFixture(t, usecase.Settings{})
	f.notifier.ok = false

	// Act
	out := f.request(t, identifier)

	// Assert
	if !out.Success || out.DeliveryOK || out.Outcome != entity.OutcomeIssued {
		t.Fatalf("RequestCode() = %+v", out)
	}
	if out.FallbackCode != "100000" {
		t.Fatalf("FallbackCode = %q, want 100000", out.FallbackCode)
	}
	if out.Message != "Code generated (email not configured)." {
		t.Fatalf("Message = %q", out.Message)
	}
	if f.record(t, identifier) == nil {
		t.Fatalf("record must exist even when delivery fails")
	}
}

func TestUsecase_RequestCode_Throttle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		elapsed       time.Duration
		wantOutcome   entity.Outcome
		wantRetry     int
		wantStoreCode string
	}{
		{name: "immediately", elapsed: 0, wantOutcome: entity.OutcomeThrottled, wantRetry: 300, wantStoreCode: "100000"},
		{name: "half a second truncates", elapsed: 500 * time.Millisecond, wantOutcome: entity.OutcomeThrottled, wantRetry: 299, wantStoreCode: "100000"},
		{name: "thirty seconds", elapsed: 30 * time.Second, wantOutcome: entity.OutcomeThrottled, wantRetry: 270, wantStoreCode: "100000"},
		{name: "one second before window", elapsed: 59 * time.Second, wantOutcome: entity.OutcomeThrottled, wantRetry: 241, wantStoreCode: "100000"},
		{name: "exactly 240 seconds left", elapsed: 60 * time.Second, wantOutcome: entity.OutcomeIssued, wantStoreCode: "100001"},
		{name: "inside last four minutes", elapsed: 2 * time.Minute, wantOutcome: entity.OutcomeIssued, wantStoreCode: "100001"},
		{name: "after expiry", elapsed: 5 * time.Minute, wantOutcome: entity.OutcomeIssued, wantStoreCode: "100001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			f := newFixture(t, usecase.Settings{})
			f.request(t, identifier)
			before := f.record(t, identifier)
			f.clock.Advance(tt.elapsed)

			// Act
			out := f.request(t, identifier)

			// Assert
			if out.Outcome != tt.wantOutcome || out.RetryAfterSeconds != tt.wantRetry {
				t.Fatalf("RequestCode() = %+v, want outcome %v retry %d", out, tt.wantOutcome, tt.wantRetry)
			}

			after := f.record(t, identifier)
			digest, _ := hash.NewSHA256().Hash(tt.wantStoreCode)
			if after.CodeHash != string(digest) {
				t.Fatalf("stored hash does not match code %s", tt.wantStoreCode)
			}

			if tt.wantOutcome == entity.OutcomeThrottled {
				if out.Success || *after != *before {
					t.Fatalf("throttled request changed the store: before %+v after %+v", before, after)
				}
				if len(f.notifier.Calls()) != 1 {
					t.Fatalf("notifier called on a throttled request")
				}
				return
			}

			if after.Attempts != 0 || f.store.Len() != 1 {
				t.Fatalf("expected one fresh record, got %+v (len %d)", after, f.store.Len())
			}
		})
	}
}

func TestUsecase_RequestCode_ThrottleMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, usecase.Settings{})
	f.request(t, identifier)
	f.clock.Advance(10 * time.Second)

	out := f.request(t, identifier)

	if out.Message != "Code already sent. Please wait 290 seconds before requesting again." {
		t.Fatalf("Message = %q", out.Message)
	}
}

func TestUsecase_RequestCode_SupersedesPreviousCode(t *testing.T) {
	t.Parallel()

	// Arrange
	f := newFixture(t, usecase.Settings{})
	f.request(t, identifier)
	f.clock.Advance(61 * time.Second)
	f.request(t, identifier)

	// Act
	old := f.verify(t, identifier, "100000")
	fresh := f.verify(t, identifier, "100001")

	// Assert
	if old.Outcome != entity.OutcomeMismatch {
		t.Fatalf("old code outcome = %v, want mismatch", old.Outcome)
	}
	if fresh.Outcome != entity.OutcomeVerified {
		t.Fatalf("new code outcome = %v, want verified", fresh.Outcome)
	}
}

func TestUsecase_RequestCode_GeneratorFailure(t *testing.T) {
	t.Parallel()

	// Arrange
	f := newFixture(t, usecase.Settings{})
	f.generator.err = errors.New("entropy exhausted")

	// Act
	out, err := f.uc.RequestCode(context.Background(), usecase.RequestCodeInput{Identifier: identifier})

	// Assert
	var gerr *goerror.Error
	if out != nil || !errors.As(err, &gerr) || gerr.Type() != goerror.TypeServer {
		t.Fatalf("RequestCode() = %+v, %v; want server error", out, err)
	}
	if f.record(t, identifier) != nil || len(f.notifier.Calls()) != 0 {
		t.Fatalf("failed generation must not touch store or notifier")
	}
}

func TestUsecase_RequestCode_Async(t *testing.T) {
	t.Parallel()

	// Arrange
	f := newFixture(t, usecase.Settings{DeliveryMode: entity.DeliveryModeAsync})
	f.notifier.ok = false

	// Act
	out := f.request(t, identifier)
	if err := f.goroutine.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	// Assert
	if !out.Success || !out.DeliveryPending || out.DeliveryOK || out.FallbackCode != "" {
		t.Fatalf("RequestCode() = %+v", out)
	}
	if len(f.notifier.Calls()) != 1 {
		t.Fatalf("async delivery did not run")
	}
}

func TestUsecase_RequestCode_AsyncFallsBackToSync(t *testing.T) {
	t.Parallel()

	// Arrange
	f := newFixture(t, usecase.Settings{DeliveryMode: entity.DeliveryModeAsync})
	if err := f.goroutine.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	// Act
	out := f.request(t, identifier)

	// Assert
	if out.DeliveryPending || !out.DeliveryOK {
		t.Fatalf("RequestCode() = %+v, want synchronous delivery", out)
	}
}
