package app

import (
	"errors"
	"net/http"

	"sunxicir/pkg/cir"
	"sunxicir/pkg/rawir"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

type dataResp struct {
	Driver       string       `json:"driver"`
	Version      string       `json:"version"`
	Running      bool         `json:"running"`
	SampleRate   uint32       `json:"sampleRate"`
	SamplePeriod uint32       `json:"samplePeriod"`
	Receiver     cir.Stats    `json:"receiver"`
	Packets      rawir.Stats  `json:"packets"`
	LastPacket   rawir.Packet `json:"lastPacket"`
}

type protocolsResp struct {
	Enabled []string `json:"enabled"`
	Allowed []string `json:"allowed"`
}

type protocolsReq struct {
	Protocols []string `json:"protocols"`
}

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// HandleData returns the receiver state, the counters and the last packet.
func (app *App) HandleData() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request data")

		t := app.device.Timing()
		return ctx.JSON(dataResp{
			Driver:       cir.DriverName,
			Version:      cir.DriverVersion,
			Running:      app.device.Running(),
			SampleRate:   t.SampleRate,
			SamplePeriod: t.Period,
			Receiver:     app.device.Stats(),
			Packets:      app.rawir.Stats(),
			LastPacket:   app.rawir.LastPacket(),
		})
	}
}

// HandleProtocols returns the enabled and the allowed protocols.
func (app *App) HandleProtocols() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request protocols")

		enabled, allowed := app.rawir.Protocols()
		return ctx.JSON(protocolsResp{Enabled: enabled.Names(), Allowed: allowed.Names()})
	}
}

// HandleSetProtocols changes the protocol selection.
//  body example: {"protocols":["nec","rc5"]}
func (app *App) HandleSetProtocols() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request set protocols")

		var req protocolsReq
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		m, err := rawir.ParseProtocols(req.Protocols)
		if err == nil {
			err = app.rawir.SetProtocols(m)
		}

		switch {
		case errors.Is(err, rawir.ErrUnknownProtocol), errors.Is(err, rawir.ErrNotAllowed):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, rawir.ErrNotRegistered):
			return fiber.NewError(http.StatusConflict, err.Error())
		case err != nil:
			return err
		}

		debug.InfoLog.Printf("enabled protocols %v", m.Names())
		enabled, allowed := app.rawir.Protocols()
		return ctx.JSON(protocolsResp{Enabled: enabled.Names(), Allowed: allowed.Names()})
	}
}
