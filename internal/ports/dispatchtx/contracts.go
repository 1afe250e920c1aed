package dispatchtx

import (
	"context"

	"service-dispatch-go/internal/domain"
)

// Repository is the slice of delivery storage visible inside a dispatch
// transaction.
type Repository interface {
	GetDeliveryForUpdate(ctx context.Context, id string) (*domain.Delivery, error)
	UpdateDeliveryStatus(ctx context.Context, id string, status domain.DeliveryStatus) error
	AssignDriver(ctx context.Context, deliveryID, driverID string) error
	InsertConflict(ctx context.Context, c *domain.Conflict) error
	GetOpenConflict(ctx context.Context, deliveryID string) (*domain.Conflict, error)
	CloseConflict(ctx context.Context, conflictID string) error
}

// Runner is a transaction runner
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
