package intake

import (
	"context"

	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/service/dispatch"
)

// DispatchPort abstracts the subset of dispatch operations needed when
// handling order events.
type DispatchPort interface {
	Request(ctx context.Context, caller dispatch.Caller, in dispatch.RequestInput) (*domain.Delivery, error)
	Cancel(ctx context.Context, caller dispatch.Caller, deliveryID string) error
}
