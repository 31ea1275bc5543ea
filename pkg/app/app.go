package app

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"sunxicir/pkg/app/config"
	"sunxicir/pkg/cir"
	"sunxicir/pkg/mqtt"
	"sunxicir/pkg/rawir"
	"sunxicir/pkg/softcir"
	"sunxicir/pkg/sunxi"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// openPlatform opens the receiver backend selected in config
	openPlatform func(*config.Config) (cir.Platform, error)
	// platform provides pins, clocks, registers and the interrupt of the receiver
	platform cir.Platform

	// rawir collects the receiver events into packets
	rawir *rawir.Handler

	// device is the CIR receiver
	device *cir.Device

	// serviceDone is closed once all packets are forwarded, serving reports if the service was started
	serviceDone chan struct{}
	serving     bool

	// restart signals application restart
	restart chan struct{}
	// shutdown signals application shutdown
	shutdown chan struct{}
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	return &App{
		config:    config,
		urlParsed: u,

		web:          fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt:         mqtt.New(),
		rawir:        rawir.New(),
		openPlatform: openPlatform,

		serviceDone: make(chan struct{}),
		restart:     make(chan struct{}),
		shutdown:    make(chan struct{}),
	}, err
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	app.serving = true
	go app.mqtt.Service()
	go app.runWebServer()
	go app.service()

	return nil
}

// openPlatform opens the receiver backend.
func openPlatform(c *config.Config) (cir.Platform, error) {
	switch c.Backend {
	case config.BackendSunxi:
		p, err := sunxi.Open(sunxi.Config{
			Receiver: c.Sunxi.Receiver,
			UIO:      c.Sunxi.UIO,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.BackendGPIO:
		return softcir.New(softcir.Config{
			Chip:    c.GPIO.Chip,
			Line:    c.GPIO.Line,
			Bias:    c.GPIO.Bias,
			GPIOMem: c.GPIO.GPIOMem,
		}), nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, c.Backend)
}

// init initializes the application.
func (app *App) init() (err error) {
	if app.platform, err = app.openPlatform(app.config); err != nil {
		debug.ErrorLog.Printf("can't open %s backend: %v", app.config.Backend, err)
		return err
	}

	app.device = cir.New(app.config.CIR(), app.platform, app.rawir)
	if err = app.device.Attach(); err != nil {
		debug.ErrorLog.Printf("can't attach receiver: %v", err)
		return err
	}

	protocols, err := rawir.ParseProtocols(app.config.Protocols)
	if err != nil {
		return err
	}
	if err = app.rawir.SetProtocols(protocols); err != nil {
		debug.ErrorLog.Printf("can't enable protocols %v: %v", app.config.Protocols, err)
		return err
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection, MODULE); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	// initDefaultRoutes should be always called last because it accesses the receiver
	// which must be attached before
	app.initDefaultRoutes()

	return nil
}

// Restart returns the read only restart channel.
// Restart is used to be able to react on application restart. (see cmd/main.go)
func (app *App) Restart() <-chan struct{} {
	return app.restart
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/main.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// Close detaches the receiver and releases the backend.
// Packets completed before are still forwarded.
func (app *App) Close() error {
	var errs []error

	if app.device != nil {
		errs = append(errs, app.device.Detach())
	}

	if app.rawir != nil {
		errs = append(errs, app.rawir.Close())
	}

	if app.serving {
		<-app.serviceDone
	}

	if c, ok := app.platform.(io.Closer); ok {
		errs = append(errs, c.Close())
	}

	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}

	if app.serving {
		errs = append(errs, app.web.Shutdown())
	}

	return errors.Join(errs...)
}
