package app

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"service-dispatch-go/internal/logx"
	"service-dispatch-go/internal/transport/kafka"
)

// WorkerRunner drives the Kafka intake worker from a built container.
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a runner with the production worker loop.
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: workerRun}
}

// MustRun blocks until the worker stops. Context cancellation is a clean
// exit; anything else panics after logging.
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}

	logErr := container.Invoke(func(logger logx.Logger) {
		if errors.Is(err, context.Canceled) {
			logger.Info("shutdown requested, exiting")
			return
		}
		logger.Error("worker stopped", logx.Err(err))
	})
	if logErr != nil {
		log.Printf("worker failed: %v (logger unavailable: %v)", err, logErr)
	}

	if errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

type workerDeps struct {
	dig.In

	Ctx      context.Context
	Logger   logx.Logger
	Pool     *pgxpool.Pool
	Consumer *kafka.Consumer
}

func workerRun(container *dig.Container) error {
	return container.Invoke(workerLoop)
}

func workerLoop(d workerDeps) error {
	if d.Consumer == nil {
		return errors.New("kafka is not configured: set KAFKA_BROKERS, KAFKA_ORDERS_TOPIC and KAFKA_GROUP_ID")
	}
	defer func() {
		if err := d.Consumer.Close(); err != nil {
			d.Logger.Error("consumer close failed", logx.Err(err))
		}
		d.Pool.Close()
		_ = d.Logger.Sync()
	}()

	d.Logger.Info("intake worker started")
	return d.Consumer.Run(d.Ctx)
}
