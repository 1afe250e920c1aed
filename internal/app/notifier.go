package app

import (
	"context"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"service-dispatch-go/internal/auth"
	"service-dispatch-go/internal/geo"
	"service-dispatch-go/internal/logx"
	"service-dispatch-go/internal/notifier/ws"
	"service-dispatch-go/internal/service/dispatch"
	"service-dispatch-go/internal/service/settings"
)

type hubDeps struct {
	dig.In

	Auth     *auth.Service
	Logger   logx.Logger
	WSActive prometheus.Gauge
	Dispatch *dispatch.Service
	Fabric   *eventFabric
}

// newHub builds the websocket hub and subscribes it to the event fabric.
// Every Notice the dispatch service emits is relayed to its addressee; the
// settings update feeds the live matching radius.
func newHub(d hubDeps) *ws.Hub {
	hub := ws.NewHub(d.Auth.Verify, d.Logger, d.WSActive)

	relay := func(payload any) {
		n, ok := payload.(dispatch.Notice)
		if !ok {
			return
		}
		switch {
		case n.To != "":
			hub.ToUser(n.To, n.Event, n.Data)
		case n.Role != "":
			hub.ToRole(n.Role, n.Event, n.Data)
		}
	}
	for _, event := range []string{
		dispatch.EventNewDelivery,
		dispatch.EventDeliveryAccepted,
		dispatch.EventDeliveryCancelled,
		dispatch.EventDriverArrived,
		dispatch.EventDeliveryReceived,
		dispatch.EventDeliveryStarted,
		dispatch.EventDeliveryEnd,
		dispatch.EventNewPosition,
		dispatch.EventNewConflict,
		dispatch.EventNewAssignment,
	} {
		d.Fabric.Delivery.On(event, relay)
	}

	d.Fabric.Delivery.On(settings.EventUpdated, func(payload any) {
		s, ok := payload.(settings.DeliverySettings)
		if !ok {
			return
		}
		d.Dispatch.SetRadius(s.SearchRadiusM)
		d.Logger.Info("dispatch radius updated", logx.Float64("radius_m", s.SearchRadiusM))
	})

	hub.SetMessageHandler(func(c *ws.Client, event string, data json.RawMessage) error {
		if event != dispatch.EventNewPosition {
			return nil
		}
		var p geo.Point
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		caller := dispatch.Caller{ID: c.UserID, Role: c.Role}
		if err := d.Dispatch.UpdatePosition(context.Background(), caller, p); err != nil {
			return err
		}
		c.Send("position-updated", nil)
		return nil
	})

	return hub
}
