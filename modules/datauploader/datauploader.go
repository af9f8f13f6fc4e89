// Package datauploader subscribes to sensor data and "uploads" every
// reading it receives. It also carries a worked example of TryClaim: a
// goroutine outside an event's owning task must claim the event before
// mutating its payload and sending it, serializing concurrent producers
// without a lock on the hot path.
package datauploader

import (
	"github.com/linkmonitor/eventrouter"
	"github.com/linkmonitor/eventrouter/modules/sensorpublisher"
)

// Subscriber is the subset of a Router's subscription API this module
// needs at Init.
type Subscriber interface {
	Subscribe(mod eventrouter.ModuleHandle, callerTask eventrouter.TaskHandle, typ eventrouter.EventType) (eventrouter.Subscription, error)
}

// Module "uploads" every sensor reading it is delivered.
type Module struct {
	logger eventrouter.Logger
}

// New builds a data uploader module. Init must still be called to
// subscribe it to sensor data.
func New(logger eventrouter.Logger) *Module {
	return &Module{logger: logger}
}

// Init subscribes mod (owned by callerTask) to sensor data events.
func (m *Module) Init(sub Subscriber, mod eventrouter.ModuleHandle, callerTask eventrouter.TaskHandle) error {
	_, err := sub.Subscribe(mod, callerTask, sensorpublisher.EventTypeSensorData)
	return err
}

// Handler "uploads" the sensor reading by logging it.
func (m *Module) Handler(e *eventrouter.Event) eventrouter.EventHandlerRet {
	switch e.Type() {
	case sensorpublisher.EventTypeSensorData:
		reading := sensorpublisher.FromEvent(e)
		if m.logger != nil {
			m.logger.Info("uploading sensor data", "temperature_c", reading.TemperatureC, "lux", reading.Lux)
		}
		return eventrouter.Handled
	default:
		return eventrouter.Unexpected
	}
}

// Claimer is the TryClaim surface of the queue-backed routers.
// PreemptiveRouter and BlockingQueuesRouter both satisfy it; the
// CooperativeRouter does not, since a single execution context never needs
// to serialize concurrent producers.
type Claimer interface {
	TryClaim(e *eventrouter.Event) bool
}

// StatusEvent is an independent event type this module owns, used only by
// ReportStatus below to demonstrate the claim pattern; it is not part of
// the sensor-data pipeline.
type StatusEvent struct {
	eventrouter.Event
	BytesUploaded int
}

// ReportStatus is called by any goroutine (the uploader's own task or a
// background retry worker) that wants to publish an upload-status event.
// Multiple callers may race to report a status for the same StatusEvent
// instance; TryClaim serializes their payload mutation ahead of Send. A
// caller that loses the race simply skips this report; the event already
// in flight carries an up-to-date payload.
func ReportStatus(router Claimer, send func(*eventrouter.Event) error, status *StatusEvent, bytesUploaded int) error {
	if !router.TryClaim(&status.Event) {
		return nil
	}
	status.BytesUploaded = bytesUploaded
	return send(&status.Event)
}
