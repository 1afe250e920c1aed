package handlers

import (
	"context"

	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/geo"
	"service-dispatch-go/internal/pagination"
	"service-dispatch-go/internal/service/dispatch"
	"service-dispatch-go/internal/service/drivers"
	"service-dispatch-go/internal/service/settings"
)

type dispatchUsecase interface {
	Request(ctx context.Context, caller dispatch.Caller, in dispatch.RequestInput) (*domain.Delivery, error)
	Accept(ctx context.Context, caller dispatch.Caller, deliveryID string) error
	Cancel(ctx context.Context, caller dispatch.Caller, deliveryID string) error
	SignalArrival(ctx context.Context, caller dispatch.Caller, deliveryID string) error
	SignalReception(ctx context.Context, caller dispatch.Caller, deliveryID string) error
	ConfirmDeposit(ctx context.Context, caller dispatch.Caller, deliveryID string) error
	VerifyCode(ctx context.Context, caller dispatch.Caller, deliveryID, code string) error
	Report(ctx context.Context, caller dispatch.Caller, deliveryID, conflictType string, lastPosition geo.Point) error
	AssignDriver(ctx context.Context, caller dispatch.Caller, conflictID, driverID string) error
	ListStarted(ctx context.Context, caller dispatch.Caller, pageToken string, skip int) (pagination.Result[dispatch.DeliveryView], error)
}

// NewDispatchUsecase wires a dispatch.Service into a dispatchUsecase.
func NewDispatchUsecase(svc *dispatch.Service) dispatchUsecase {
	return svc
}

type driversUsecase interface {
	Get(ctx context.Context, id string) (*domain.Actor, error)
	Create(ctx context.Context, a *domain.Actor) (string, error)
	UpdatePartial(ctx context.Context, u domain.PartialActorUpdate) (bool, error)
	List(ctx context.Context, pageToken string, skip int) (pagination.Result[domain.Actor], error)
	Nearby(ctx context.Context, origin geo.Point, radiusMeters float64) ([]domain.Actor, error)
}

// NewDriversUsecase wires a drivers.Service into a driversUsecase.
func NewDriversUsecase(svc *drivers.Service) driversUsecase {
	return svc
}

type settingsUsecase interface {
	GetDelivery(ctx context.Context) (settings.DeliverySettings, error)
	UpdateDelivery(ctx context.Context, role domain.Role, in settings.DeliverySettings) error
}

// NewSettingsUsecase wires a settings.Service into a settingsUsecase.
func NewSettingsUsecase(svc *settings.Service) settingsUsecase {
	return svc
}
