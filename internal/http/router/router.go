package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"service-dispatch-go/internal/http/handlers"
)

// Deps holds everything the router mounts.
type Deps struct {
	Base     *handlers.Handlers
	Dispatch *handlers.DispatchHandler
	Drivers  *handlers.DriverHandler
	Settings *handlers.SettingsHandler

	// WS upgrades and authenticates on its own; it must stay outside the
	// auth and timeout middleware.
	WS http.Handler

	Auth          func(http.Handler) http.Handler
	Observability func(http.Handler) http.Handler
	RateLimit     func(http.Handler) http.Handler
}

// New constructs a chi-based http.Handler with base middleware and routes.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.Observability != nil {
		r.Use(d.Observability)
	}
	if d.RateLimit != nil {
		r.Use(d.RateLimit)
	}

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	r.Handle("/metrics", promhttp.Handler())
	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	if d.WS != nil {
		r.Handle("/ws", d.WS)
	}

	// driver registration is open, everything else requires a token
	r.Group(func(g chi.Router) {
		g.Use(middleware.Timeout(5 * time.Second))
		g.Post("/driver", d.Drivers.Create)
		g.Get("/driver/{id}", d.Drivers.GetByID)
	})

	r.Group(func(g chi.Router) {
		g.Use(middleware.Timeout(5 * time.Second))
		g.Use(d.Auth)

		g.Route("/delivery", func(dr chi.Router) {
			dr.Post("/request", d.Dispatch.Request)
			dr.Post("/accept", d.Dispatch.Accept)
			dr.Post("/cancel", d.Dispatch.Cancel)
			dr.Post("/signal-arrival", d.Dispatch.SignalArrival)
			dr.Post("/signal-reception", d.Dispatch.SignalReception)
			dr.Post("/confirm-deposit", d.Dispatch.ConfirmDeposit)
			dr.Post("/verify-code", d.Dispatch.VerifyCode)
			dr.Post("/report", d.Dispatch.Report)
			dr.Post("/assign-driver", d.Dispatch.AssignDriver)
			dr.Get("/started", d.Dispatch.ListStarted)
		})

		g.Patch("/driver", d.Drivers.Update)
		g.Get("/drivers", d.Drivers.List)
		g.Get("/drivers/nearby", d.Drivers.Nearby)

		g.Get("/settings/delivery", d.Settings.GetDelivery)
		g.Put("/settings/delivery", d.Settings.UpdateDelivery)
	})

	return r
}
