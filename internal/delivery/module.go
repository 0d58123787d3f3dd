package delivery

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gopasscode/internal/delivery/inbound"
	"github.com/shandysiswandi/gopasscode/internal/delivery/outbound/email"
	"github.com/shandysiswandi/gopasscode/internal/delivery/usecase"
	"github.com/shandysiswandi/gopasscode/internal/pkg/clock"
	"github.com/shandysiswandi/gopasscode/internal/pkg/config"
	"github.com/shandysiswandi/gopasscode/internal/pkg/goroutine"
	"github.com/shandysiswandi/gopasscode/internal/pkg/idempotency"
	"github.com/shandysiswandi/gopasscode/internal/pkg/instrument"
	"github.com/shandysiswandi/gopasscode/internal/pkg/mail"
	"github.com/shandysiswandi/gopasscode/internal/pkg/messaging"
	"github.com/shandysiswandi/gopasscode/internal/pkg/uid"
	"github.com/shandysiswandi/gopasscode/internal/pkg/validator"
)

var errMissingDependency = errors.New("delivery: messaging, mail and redis are required")

type Dependency struct {
	Ctx        context.Context
	Redis      redis.Cmdable
	Messaging  messaging.Messaging
	Mail       mail.Mail
	Config     config.Config
	Instrument instrument.Instrumentation
	UUID       uid.StringID
	Clock      clock.Clocker
	Goroutine  *goroutine.Manager
	Validator  validator.Validator
}

func New(dep Dependency) error {
	if dep.Redis == nil || dep.Messaging == nil || dep.Mail == nil {
		return errMissingDependency
	}

	uc := usecase.New(usecase.Dependency{
		RepoMail:    email.New(dep.Mail, dep.Instrument),
		Idempotency: idempotency.New(dep.Redis),
		Validator:   dep.Validator,
		Clock:       dep.Clock,
		Instrument:  dep.Instrument,
		AppName:     dep.Config.GetString("app.name"),
	})

	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
	}

	return nil
}
