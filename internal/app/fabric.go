package app

import (
	"service-dispatch-go/internal/events"
	"service-dispatch-go/internal/service/settings"
)

// eventFabric groups the in-process emitters. Settings updates are forwarded
// onto the delivery emitter so the dispatch wiring sees them alongside its
// own events.
type eventFabric struct {
	Delivery *events.Emitter
	Settings *events.Emitter
}

func newEventFabric() *eventFabric {
	f := &eventFabric{
		Delivery: events.NewEmitter("delivery"),
		Settings: events.NewEmitter("settings"),
	}
	f.Settings.Forward(settings.EventUpdated).To(f.Delivery)
	return f
}
