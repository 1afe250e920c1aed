package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"service-dispatch-go/internal/auth"
	"service-dispatch-go/internal/config"
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/http/handlers"
	"service-dispatch-go/internal/http/middleware"
	"service-dispatch-go/internal/http/middleware/ratelimit"
	"service-dispatch-go/internal/http/pprofserver"
	"service-dispatch-go/internal/http/router"
	"service-dispatch-go/internal/logx"
	"service-dispatch-go/internal/notifier/ws"
	"service-dispatch-go/internal/pagetoken"
	"service-dispatch-go/internal/pagination"
	"service-dispatch-go/internal/repository"
	"service-dispatch-go/internal/service/dispatch"
	"service-dispatch-go/internal/service/drivers"
	"service-dispatch-go/internal/service/intake"
	"service-dispatch-go/internal/service/settings"
	"service-dispatch-go/internal/transport/kafka"
)

const (
	authTokenTTL    = 24 * time.Hour
	defaultPageSize = 10
	serviceTimeout  = 3 * time.Second
)

// ContainerBuilder assembles the dig container. The db connector and the
// fatal sink are injectable for tests.
type ContainerBuilder struct {
	dbConnect func(ctx context.Context, dsn string) (*pgxpool.Pool, error)
	logFatalf func(format string, args ...any)
}

// NewContainerBuilder returns a builder with production defaults.
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect: connectDbWithRetry,
		logFatalf: log.Fatalf,
	}
}

// WithDBConnect replaces the database connector.
func (b *ContainerBuilder) WithDBConnect(fn func(ctx context.Context, dsn string) (*pgxpool.Pool, error)) *ContainerBuilder {
	b.dbConnect = fn
	return b
}

// WithLogFatalf replaces the fatal sink.
func (b *ContainerBuilder) WithLogFatalf(fn func(format string, args ...any)) *ContainerBuilder {
	b.logFatalf = fn
	return b
}

// MustBuild assembles the full HTTP service container.
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx, false)
	if err != nil {
		b.logFatalf("build container: %v", err)
	}
	return container
}

// MustBuildWorker assembles the Kafka intake worker container. It carries
// no HTTP surface and no websocket hub.
func (b *ContainerBuilder) MustBuildWorker(ctx context.Context) *dig.Container {
	container, err := b.build(ctx, true)
	if err != nil {
		b.logFatalf("build worker container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) build(ctx context.Context, worker bool) (*dig.Container, error) {
	container := dig.New()

	if err := b.registerCore(ctx, container); err != nil {
		return nil, err
	}
	if err := b.registerDb(container); err != nil {
		return nil, err
	}
	if err := registerDomainServices(container); err != nil {
		return nil, err
	}
	if err := registerKafka(container); err != nil {
		return nil, err
	}
	if worker {
		return container, nil
	}
	if err := registerNotifier(container); err != nil {
		return nil, err
	}
	if err := registerHTTP(container); err != nil {
		return nil, err
	}
	return container, nil
}

// MustBuildContainer assembles the production HTTP container.
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

// MustBuildWorkerContainer assembles the production worker container.
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuildWorker(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return fmt.Errorf("provide %T: %w", p, err)
		}
	}
	return nil
}

func (b *ContainerBuilder) registerCore(ctx context.Context, container *dig.Container) error {
	return provideAll(container,
		func() context.Context { return ctx },
		NewLogger,
		config.Load,
		provideMetrics,
	)
}

func (b *ContainerBuilder) registerDb(container *dig.Container) error {
	return provideAll(container,
		func(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
			return b.dbConnect(ctx, cfg.DB.DSN())
		},
	)
}

type dispatchDeps struct {
	dig.In

	Repo        *repository.DeliveryRepo
	Actors      *repository.ActorRepo
	Fabric      *eventFabric
	Pager       *pagination.Paginator[domain.Delivery]
	Cfg         *config.Config
	Transitions *prometheus.CounterVec
	Conflicts   prometheus.Counter `name:"conflicts_reported_total"`
	Logger      logx.Logger
}

func newDispatchService(d dispatchDeps) *dispatch.Service {
	return dispatch.NewService(
		d.Repo,
		d.Actors,
		d.Fabric.Delivery,
		d.Pager,
		dispatch.Options{
			RadiusMeters:     d.Cfg.Dispatch.RadiusMeters,
			CodeLength:       d.Cfg.Dispatch.CodeLength,
			OperationTimeout: serviceTimeout,
		},
		dispatch.Metrics{Transitions: d.Transitions, Conflicts: d.Conflicts},
		d.Logger,
	)
}

func registerDomainServices(container *dig.Container) error {
	return provideAll(container,
		repository.NewDeliveryRepo,
		repository.NewActorRepo,
		repository.NewSettingsRepo,
		newEventFabric,
		func(cfg *config.Config) *auth.Service {
			return auth.NewService(cfg.Dispatch.TokenSecret, authTokenTTL)
		},
		func(cfg *config.Config) *pagetoken.Manager {
			return pagetoken.NewManager(cfg.Dispatch.TokenSecret, cfg.Dispatch.PageTokenTTL)
		},
		func(m *pagetoken.Manager) *pagination.Paginator[domain.Delivery] {
			return pagination.New[domain.Delivery](m, defaultPageSize)
		},
		func(m *pagetoken.Manager) *pagination.Paginator[domain.Actor] {
			return pagination.New[domain.Actor](m, defaultPageSize)
		},
		newDispatchService,
		func(repo *repository.ActorRepo, pager *pagination.Paginator[domain.Actor]) *drivers.Service {
			return drivers.NewService(repo, pager, serviceTimeout)
		},
		func(repo *repository.SettingsRepo, fabric *eventFabric, cfg *config.Config, logger logx.Logger) *settings.Service {
			defaults := settings.DeliverySettings{
				SearchRadiusM: cfg.Dispatch.RadiusMeters,
				CodeLength:    cfg.Dispatch.CodeLength,
			}
			return settings.NewService(repo, fabric.Settings, defaults, logger)
		},
		func(svc *dispatch.Service, logger logx.Logger) *intake.Processor {
			return intake.NewProcessor(svc, logger)
		},
	)
}

func registerKafka(container *dig.Container) error {
	return provideAll(container,
		func(cfg *config.Config, logger logx.Logger, p *intake.Processor) (*kafka.Consumer, error) {
			return kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, makeIntakeHandler(p))
		},
	)
}

func registerNotifier(container *dig.Container) error {
	return provideAll(container, newHub)
}

type pprofOut struct {
	dig.Out

	Server *http.Server `name:"pprof_server"`
}

func newPprofServer(cfg *config.Config) pprofOut {
	if !cfg.Pprof.Enabled {
		return pprofOut{}
	}
	return pprofOut{Server: &http.Server{
		Addr:              cfg.Pprof.Addr,
		Handler:           pprofserver.Handler(pprofserver.Config{User: cfg.Pprof.User, Pass: cfg.Pprof.Pass}),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

func registerHTTP(container *dig.Container) error {
	return provideAll(container,
		handlers.New,
		func(logger logx.Logger, svc *dispatch.Service) *handlers.DispatchHandler {
			return handlers.NewDispatchHandler(logger, handlers.NewDispatchUsecase(svc))
		},
		func(logger logx.Logger, svc *drivers.Service) *handlers.DriverHandler {
			return handlers.NewDriverHandler(logger, handlers.NewDriversUsecase(svc))
		},
		func(logger logx.Logger, svc *settings.Service) *handlers.SettingsHandler {
			return handlers.NewSettingsHandler(logger, handlers.NewSettingsUsecase(svc))
		},
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		func(
			base *handlers.Handlers,
			dispatchH *handlers.DispatchHandler,
			driversH *handlers.DriverHandler,
			settingsH *handlers.SettingsHandler,
			hub *ws.Hub,
			authSvc *auth.Service,
			rl *ratelimit.Middleware,
			logger logx.Logger,
		) http.Handler {
			return router.New(router.Deps{
				Base:          base,
				Dispatch:      dispatchH,
				Drivers:       driversH,
				Settings:      settingsH,
				WS:            hub,
				Auth:          authSvc.Middleware,
				Observability: middleware.Observability(logger),
				RateLimit:     rl.Handler(),
			})
		},
		func(cfg *config.Config, h http.Handler) *http.Server {
			return &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Port),
				Handler:           h,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      15 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
		},
		newPprofServer,
	)
}
