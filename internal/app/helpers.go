package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch-go/internal/repository"
)

// stubbed in tests
var newPool = repository.NewPool

const (
	dbConnectRetries = 10
	dbConnectDelay   = time.Second
	dbConnectTimeout = 3 * time.Second
)

// connectDbWithRetry dials Postgres, retrying while the database container
// is still coming up.
func connectDbWithRetry(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	var lastErr error
	for attempt := 1; attempt <= dbConnectRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
		pool, err := newPool(attemptCtx, dsn)
		cancel()
		if err == nil {
			return pool, nil
		}
		lastErr = err
		log.Printf("db connect attempt %d/%d failed: %v", attempt, dbConnectRetries, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dbConnectDelay):
		}
	}
	return nil, fmt.Errorf("connect db after %d attempts: %w", dbConnectRetries, lastErr)
}
