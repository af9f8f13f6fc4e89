// Package datalogger subscribes to sensor data and logs every reading it
// receives through the router's Logger interface.
package datalogger

import (
	"github.com/linkmonitor/eventrouter"
	"github.com/linkmonitor/eventrouter/modules/sensorpublisher"
)

// Subscriber is the subset of a Router's subscription API this module
// needs at Init.
type Subscriber interface {
	Subscribe(mod eventrouter.ModuleHandle, callerTask eventrouter.TaskHandle, typ eventrouter.EventType) (eventrouter.Subscription, error)
}

// Module logs every SensorData event it is delivered.
type Module struct {
	logger eventrouter.Logger
}

// New builds a data logger module. Init must still be called to subscribe
// it to sensor data.
func New(logger eventrouter.Logger) *Module {
	return &Module{logger: logger}
}

// Init subscribes mod (owned by callerTask) to sensor data events.
func (m *Module) Init(sub Subscriber, mod eventrouter.ModuleHandle, callerTask eventrouter.TaskHandle) error {
	_, err := sub.Subscribe(mod, callerTask, sensorpublisher.EventTypeSensorData)
	return err
}

// Handler logs the sensor reading it was delivered.
func (m *Module) Handler(e *eventrouter.Event) eventrouter.EventHandlerRet {
	switch e.Type() {
	case sensorpublisher.EventTypeSensorData:
		reading := sensorpublisher.FromEvent(e)
		if m.logger != nil {
			m.logger.Info("logging sensor data", "temperature_c", reading.TemperatureC, "lux", reading.Lux)
		}
		return eventrouter.Handled
	default:
		return eventrouter.Unexpected
	}
}
