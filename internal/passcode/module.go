package passcode

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gopasscode/internal/passcode/inbound"
	"github.com/shandysiswandi/gopasscode/internal/passcode/outbound/memstore"
	"github.com/shandysiswandi/gopasscode/internal/passcode/outbound/notifier"
	"github.com/shandysiswandi/gopasscode/internal/passcode/usecase"
	"github.com/shandysiswandi/gopasscode/internal/pkg/clock"
	"github.com/shandysiswandi/gopasscode/internal/pkg/config"
	"github.com/shandysiswandi/gopasscode/internal/pkg/goroutine"
	"github.com/shandysiswandi/gopasscode/internal/pkg/hash"
	"github.com/shandysiswandi/gopasscode/internal/pkg/instrument"
	"github.com/shandysiswandi/gopasscode/internal/pkg/mail"
	"github.com/shandysiswandi/gopasscode/internal/pkg/messaging"
	"github.com/shandysiswandi/gopasscode/internal/pkg/otp"
	"github.com/shandysiswandi/gopasscode/internal/pkg/router"
	"github.com/shandysiswandi/gopasscode/internal/pkg/uid"
	"github.com/shandysiswandi/gopasscode/internal/pkg/validator"
)

const codeDigits = 6

type Dependency struct {
	Ctx        context.Context
	Router     *router.Router
	Config     config.Config
	Instrument instrument.Instrumentation
	Validator  validator.Validator
	Clock      clock.Clocker
	Goroutine  *goroutine.Manager
	UID        uid.NumberID

	// Mail and Messaging are optional; the notifier falls back to None
	// when the selected transport is missing.
	Mail      mail.Mail
	Messaging messaging.Messaging
}

type deliverer interface {
	Deliver(ctx context.Context, identifier, code string) bool
}

func New(dep Dependency) error {
	generator, err := otp.NewNumeric(codeDigits)
	if err != nil {
		return err
	}

	var hasher hash.Hash = hash.NewSHA256()
	if secret := dep.Config.GetString("modules.passcode.hash_secret"); secret != "" {
		hasher = hash.NewHMACSHA256(secret)
	}

	settings := usecase.NewSettingsHolder(usecase.SettingsFromConfig(dep.Config))
	store := memstore.New(dep.Config.GetInt("modules.passcode.store_shards"), dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		Store:      store,
		Notifier:   newNotifier(dep, settings),
		Hash:       hasher,
		Generator:  generator,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
		Goroutine:  dep.Goroutine,
		Settings:   settings,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, dep.Validator, uc)

	if dep.Ctx != nil {
		interval := dep.Config.GetSecond("modules.passcode.sweep_interval_seconds")
		if interval <= 0 {
			interval = time.Minute
		}
		dep.Goroutine.Every(dep.Ctx, interval, func(ctx context.Context) {
			if n := store.Sweep(dep.Clock.Now()); n > 0 {
				slog.DebugContext(ctx, "expired passcodes swept", "count", n)
			}
		})
	}

	if dep.Config.GetBool("app.config.hot_reload") {
		dep.Config.OnChange(func() {
			uc.Reload(usecase.SettingsFromConfig(dep.Config))
		})
	}

	return nil
}

func newNotifier(dep Dependency, settings *usecase.SettingsHolder) deliverer {
	name := dep.Config.GetString("modules.passcode.notifier")

	switch name {
	case "none":
		return notifier.NewNone()

	case "messaging":
		if dep.Messaging != nil {
			return notifier.NewMessaging(dep.Messaging, settings, dep.Clock, dep.UID, dep.Instrument)
		}

	default:
		if dep.Mail != nil {
			return notifier.NewMail(dep.Mail, settings, dep.Clock, dep.Instrument, notifier.MailConfig{
				AppName:    dep.Config.GetString("app.name"),
				MaxRetries: uint64(max(dep.Config.GetInt("modules.passcode.mail.max_retries"), 0)),
				BaseDelay:  time.Duration(dep.Config.GetInt("modules.passcode.mail.retry_base_ms")) * time.Millisecond,
				MaxDelay:   time.Duration(dep.Config.GetInt("modules.passcode.mail.retry_max_ms")) * time.Millisecond,
			})
		}
	}

	slog.Warn("passcode transport not configured, codes will be returned to the caller", "notifier", name)
	return notifier.NewNone()
}
