package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"service-dispatch-go/internal/config"
	"service-dispatch-go/internal/logx"
	"service-dispatch-go/internal/service/dispatch"
)

const shutdownTimeout = 10 * time.Second

// Runner drives the HTTP service from a built container.
type Runner struct {
	runFn func(*dig.Container) error
}

// NewRunner returns a runner with the production run function.
func NewRunner() *Runner {
	return &Runner{runFn: run}
}

// MustRun blocks until the service stops. Context cancellation and startup
// deadline are clean exits; anything else panics after logging.
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}

	logErr := container.Invoke(func(logger logx.Logger) {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Info("shutdown requested, exiting")
		case errors.Is(err, context.DeadlineExceeded):
			logger.Info("startup aborted: startup timeout exceeded")
		default:
			logger.Error("service stopped", logx.Err(err))
		}
	})
	if logErr != nil {
		log.Printf("run failed: %v (logger unavailable: %v)", err, logErr)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	panic(err)
}

type runDeps struct {
	dig.In

	Ctx      context.Context
	Cfg      *config.Config
	Logger   logx.Logger
	Pool     *pgxpool.Pool
	Server   *http.Server
	Pprof    *http.Server `name:"pprof_server" optional:"true"`
	Dispatch *dispatch.Service
}

func run(container *dig.Container) error {
	return container.Invoke(appRun)
}

func appRun(d runDeps) error {
	errCh := make(chan error, 2)
	startServer(d.Logger, d.Server, "http", errCh)
	if d.Pprof != nil {
		startServer(d.Logger, d.Pprof, "pprof", errCh)
	}
	startRebroadcastLoop(d.Ctx, d.Logger, d.Dispatch, d.Cfg.Dispatch.RebroadcastInterval)

	var runErr error
	select {
	case <-d.Ctx.Done():
		runErr = d.Ctx.Err()
	case err := <-errCh:
		runErr = err
	}

	gracefulShutdown(d.Logger, d.Server, d.Pprof)
	closeResources(d.Logger, d.Pool)
	return runErr
}

func startServer(logger logx.Logger, srv *http.Server, name string, errCh chan<- error) {
	logger.Info("server listening", logx.String("server", name), logx.String("addr", srv.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", logx.String("server", name), logx.Err(err))
			errCh <- err
		}
	}()
}

// rebroadcaster re-notifies nearby drivers of deliveries still waiting for
// a driver.
type rebroadcaster interface {
	RebroadcastRequested(ctx context.Context) (int, error)
}

func startRebroadcastLoop(ctx context.Context, logger logx.Logger, svc rebroadcaster, interval time.Duration) {
	if interval <= 0 {
		return
	}
	logger.Info("rebroadcast loop started", logx.Duration("interval", interval))
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := svc.RebroadcastRequested(ctx)
				if err != nil {
					logger.Warn("rebroadcast failed", logx.Err(err))
					continue
				}
				if n > 0 {
					logger.Info("rebroadcast waiting deliveries", logx.Int("count", n))
				}
			}
		}
	}()
}

func gracefulShutdown(logger logx.Logger, servers ...*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown failed", logx.String("addr", srv.Addr), logx.Err(err))
		}
	}
}

func closeResources(logger logx.Logger, pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
	_ = logger.Sync()
}
