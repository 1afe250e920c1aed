package dispatch

import (
	"context"

	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/geo"
	"service-dispatch-go/internal/pagination"
	"service-dispatch-go/internal/ports/dispatchtx"
)

// Caller identifies the authenticated actor invoking an operation. Role
// and ownership checks live here in the service, not in routing.
type Caller struct {
	ID   string
	Role domain.Role
}

// Repository is the delivery storage the service drives. Guarded
// transitions run inside WithTx; plain reads do not.
type Repository interface {
	CreateDelivery(ctx context.Context, d *domain.Delivery) error
	GetActiveDeliveryFor(ctx context.Context, actorID string) (*domain.Delivery, error)
	GetConflict(ctx context.Context, id string) (*domain.Conflict, error)
	PageDeliveriesByStatus(ctx context.Context, status domain.DeliveryStatus, offset, limit int) (pagination.Page[domain.Delivery], error)
	WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error
}

// ActorStore is the actor directory: profiles and last-known positions.
type ActorStore interface {
	GetActor(ctx context.Context, id string) (*domain.Actor, error)
	DriversWithPosition(ctx context.Context) ([]domain.Actor, error)
	UpdatePosition(ctx context.Context, actorID string, p geo.Point) error
}
