// Package sensorpublisher periodically produces a synthetic sensor
// reading on a cron schedule and publishes it through an event router. It
// is a demo producer, not part of the routing engine itself.
package sensorpublisher

import (
	"math/rand"
	"unsafe"

	"github.com/robfig/cron/v3"

	"github.com/linkmonitor/eventrouter"
)

// Event is the routable payload this module produces. Embedding
// eventrouter.Event makes it routable by pointer without the router ever
// copying TemperatureC/Lux.
type Event struct {
	eventrouter.Event
	TemperatureC int
	Lux          int
}

// Sender is the subset of a Router's producer API this module needs. The
// demo wires it to a *eventrouter.CooperativeRouter; any backend whose Send
// takes only the event (the cooperative signature) satisfies it.
type Sender interface {
	Send(e *eventrouter.Event) error
	EventIsInFlight(e *eventrouter.Event) bool
}

// Module periodically publishes synthetic sensor readings on a cron
// schedule, skipping a tick if the previous reading is still in flight.
type Module struct {
	event  Event
	sender Sender
	logger eventrouter.Logger
	rng    *rand.Rand
	cron   *cron.Cron
	ticks  chan struct{}
}

// New builds a sensor publisher owned by the given module handle. sender
// may be nil if the router it will call Send/EventIsInFlight against
// doesn't exist yet (a Router's own construction needs this module's
// Handler first); call SetSender before Start in that case. logger may be
// nil.
func New(mod eventrouter.ModuleHandle, sender Sender, logger eventrouter.Logger, seed int64) *Module {
	m := &Module{
		sender: sender,
		logger: logger,
		rng:    rand.New(rand.NewSource(seed)),
		ticks:  make(chan struct{}, 1),
	}
	m.event.Init(EventTypeSensorData, mod)
	return m
}

// SetSender installs the router this module sends through, for the
// two-phase construction a cooperative single-loop demo needs: the
// Router's own constructor requires every module's Handler up front, but
// this module's Handler doesn't need a router reference, only Start does.
func (m *Module) SetSender(sender Sender) {
	m.sender = sender
}

// FromEvent recovers the concrete *Event a router handed a subscriber as
// *eventrouter.Event. Event is embedded as this struct's first field, so
// the two pointers share the same address and the conversion is exact.
func FromEvent(e *eventrouter.Event) *Event {
	return (*Event)(unsafe.Pointer(e))
}

// EventTypeSensorData is the event type the
// sensorpublisher/datalogger/datauploader family exchanges.
const EventTypeSensorData eventrouter.EventType = 0

// Start schedules periodic ticks on the given cron spec (e.g. "@every 2s")
// and starts the underlying cron.Cron. The cron job runs on its own
// goroutine, so it never calls Send directly: it signals Ticks, and the
// goroutine driving the router's loop calls Publish. That keeps every
// router call on the single cooperative execution context. Callers should
// defer Stop.
func (m *Module) Start(spec string) error {
	m.cron = cron.New()
	if _, err := m.cron.AddFunc(spec, m.tick); err != nil {
		return err
	}
	m.cron.Start()
	return nil
}

// Stop halts the cron schedule; it does not wait for an in-flight event to
// return.
func (m *Module) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

// Ticks signals each cron firing. The channel is buffered with capacity 1;
// a tick that arrives while one is already pending is dropped, which is
// fine for a sensor that skips busy ticks anyway.
func (m *Module) Ticks() <-chan struct{} {
	return m.ticks
}

func (m *Module) tick() {
	select {
	case m.ticks <- struct{}{}:
	default:
	}
}

// Publish produces one synthetic reading and sends it, unless the previous
// reading is still in flight, in which case the tick is skipped. Call it
// from the goroutine that drives the router's loop.
func (m *Module) Publish() {
	if m.sender.EventIsInFlight(&m.event.Event) {
		return
	}
	m.event.TemperatureC = m.rng.Intn(100)
	m.event.Lux = m.rng.Intn(50)
	if m.logger != nil {
		m.logger.Debug("publishing sensor data", "temperature_c", m.event.TemperatureC, "lux", m.event.Lux)
	}
	if err := m.sender.Send(&m.event.Event); err != nil {
		if m.logger != nil {
			m.logger.Error("sensor publish failed", "error", err)
		}
	}
}

// Handler is this module's EventHandler, registered as its return-to-sender
// callback. It never receives a handler call for anything but its own
// EventTypeSensorData return, since it never subscribes to another type.
func (m *Module) Handler(e *eventrouter.Event) eventrouter.EventHandlerRet {
	switch e.Type() {
	case EventTypeSensorData:
		if m.logger != nil {
			m.logger.Debug("sensor data returned to sender after delivery to subscribers")
		}
		return eventrouter.Handled
	default:
		return eventrouter.Unexpected
	}
}
