package eventrouter

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Diagnostic CloudEvent types emitted on the Observer side channel. These
// describe the router's own lifecycle, never a routed Event's payload.
const (
	EventTypeRouterStarted     = "eventrouter.router.started"
	EventTypeRouterStopped     = "eventrouter.router.stopped"
	EventTypeModuleSubscribed  = "eventrouter.module.subscribed"
	EventTypeModuleUnsubscribe = "eventrouter.module.unsubscribed"
	EventTypeEventKeptLeaked   = "eventrouter.event.kept_leaked"
)

// cloudEventSource is the CloudEvents source attribute stamped on every
// diagnostic event this package emits.
const cloudEventSource = "eventrouter-router"

// Observer receives diagnostic CloudEvents describing the router's own
// lifecycle: started/stopped, subscribe/unsubscribe, and kept events still
// outstanding at Deinit. It never receives routed Event payloads, which
// are never copied. OnEvent should return quickly; a Router never blocks
// routing on an Observer call.
type Observer interface {
	OnEvent(ctx context.Context, event cloudevents.Event) error
}

// newDiagnosticEvent builds a CloudEvents envelope for a router lifecycle
// notification with the required attribute set (ID, Source, Type, Time,
// SpecVersion) filled in.
func newDiagnosticEvent(eventType string, data map[string]any) cloudevents.Event {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(cloudEventSource)
	e.SetType(eventType)
	e.SetTime(time.Now())
	e.SetSpecVersion(cloudevents.VersionV1)
	if data != nil {
		_ = e.SetData(cloudevents.ApplicationJSON, data)
	}
	return e
}

// notify emits a diagnostic event to o, if non-nil, on its own goroutine
// so a slow or failing Observer never blocks the dispatch path. Errors are
// logged, not returned: there is no sane recovery for a failed diagnostic
// notification.
func notify(o Observer, logger Logger, eventType string, data map[string]any) {
	if o == nil {
		return
	}
	event := newDiagnosticEvent(eventType, data)
	go func() {
		if err := o.OnEvent(context.Background(), event); err != nil {
			logger.Debug("observer notification failed", "error", err, "event_type", eventType)
		}
	}()
}
