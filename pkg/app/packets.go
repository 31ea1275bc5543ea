package app

import (
	"time"

	"sunxicir/pkg/cir"
	"sunxicir/pkg/rawir"

	"github.com/womat/debug"
)

// packetMessage is the mqtt payload of a received packet.
type packetMessage struct {
	Driver    string        `json:"driver"`
	Time      time.Time     `json:"time"`
	Protocols []string      `json:"protocols"`
	Events    []rawir.Event `json:"events"`
}

// service waits for completed packets of the receiver and sends them to the mqtt broker.
// It returns when the raw event handler is closed.
func (app *App) service() {
	defer close(app.serviceDone)
	defer close(app.mqtt.C)

	for p := range app.rawir.C {
		debug.DebugLog.Printf("packet of %d events", len(p.Events))
		debug.TraceLog.Printf("packet:\n%v", p)

		enabled, _ := app.rawir.Protocols()
		err := app.mqtt.Publish(app.config.MQTT.Topic, packetMessage{
			Driver:    cir.DriverName,
			Time:      p.Time,
			Protocols: enabled.Names(),
			Events:    p.Events,
		}, app.config.MQTT.Retained)
		if err != nil {
			debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
		}
	}
}
