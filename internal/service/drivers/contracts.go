package drivers

import (
	"context"

	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/geo"
	"service-dispatch-go/internal/pagination"
)

// driverRepository defines storage operations required by the business layer.
type driverRepository interface {
	Get(ctx context.Context, id string) (*domain.Actor, error)
	Create(ctx context.Context, a *domain.Actor) error
	UpdatePartial(ctx context.Context, u domain.PartialActorUpdate) (bool, error)
	PageDrivers(ctx context.Context, offset, limit int) (pagination.Page[domain.Actor], error)
	DriversWithPosition(ctx context.Context) ([]domain.Actor, error)
	UpdatePosition(ctx context.Context, actorID string, p geo.Point) error
}
