package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/gopasscode/internal/delivery"
	"github.com/shandysiswandi/gopasscode/internal/passcode"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.passcode.enabled") {
		if err := passcode.New(passcode.Dependency{
			Ctx:        a.ctx,
			Router:     a.router,
			Config:     a.config,
			Instrument: a.ins,
			Validator:  a.validator,
			Clock:      a.clock,
			Goroutine:  a.goroutine,
			UID:        a.uid,
			Mail:       a.mail,
			Messaging:  a.messaging,
		}); err != nil {
			slog.Error("failed to init module passcode", "error", err)
			os.Exit(1)
		}
	}

	if a.deliveryEnabled() {
		if err := delivery.New(delivery.Dependency{
			Ctx:        a.ctx,
			Redis:      a.cacheConn,
			Messaging:  a.messaging,
			Mail:       a.mail,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Clock:      a.clock,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module delivery", "error", err)
			os.Exit(1)
		}
	}
}
