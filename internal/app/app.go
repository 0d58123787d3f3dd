package app

import (
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gopasscode/internal/pkg/clock"
	"github.com/shandysiswandi/gopasscode/internal/pkg/config"
	"github.com/shandysiswandi/gopasscode/internal/pkg/goroutine"
	"github.com/shandysiswandi/gopasscode/internal/pkg/instrument"
	"github.com/shandysiswandi/gopasscode/internal/pkg/mail"
	"github.com/shandysiswandi/gopasscode/internal/pkg/messaging"
	"github.com/shandysiswandi/gopasscode/internal/pkg/router"
	"github.com/shandysiswandi/gopasscode/internal/pkg/uid"
	"github.com/shandysiswandi/gopasscode/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uid       uid.NumberID
	uuid      uid.StringID

	// resources, each nil when nothing needs it
	cacheConn *redis.Client
	mail      mail.Mail
	messaging messaging.Messaging

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initCache()
	app.initMail()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}

func (a *App) deliveryEnabled() bool {
	return a.config.GetBool("modules.delivery.enabled")
}

func (a *App) messagingNeeded() bool {
	return a.deliveryEnabled() || a.config.GetString("modules.passcode.notifier") == "messaging"
}
