// Package settings stores the runtime-tunable dispatch knobs and
// announces changes on its own emitter. The composition root forwards
// the update event into the delivery emitter so the dispatch service can
// pick up a new radius without restarting.
package settings

import (
	"context"
	"time"

	"service-dispatch-go/internal/apperr"
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/events"
	"service-dispatch-go/internal/logx"
)

// EventUpdated is emitted on every persisted settings change.
const EventUpdated = "settings-update"

// DeliverySettings are the tunables of the dispatch engine.
type DeliverySettings struct {
	SearchRadiusM float64 `json:"searchRadiusM"`
	CodeLength    int     `json:"codeLength"`
}

func (s DeliverySettings) validate() error {
	if s.SearchRadiusM <= 0 {
		return apperr.ErrInvalid
	}
	if s.CodeLength < 4 || s.CodeLength > 12 {
		return apperr.ErrInvalid
	}
	return nil
}

// Repository persists settings documents by type.
type Repository interface {
	GetDelivery(ctx context.Context) (*DeliverySettings, error)
	SaveDelivery(ctx context.Context, s DeliverySettings) error
}

// Service reads and updates dispatch settings.
type Service struct {
	repo             Repository
	emitter          *events.Emitter
	defaults         DeliverySettings
	logger           logx.Logger
	operationTimeout time.Duration
}

// NewService creates a settings Service. defaults fill in when nothing
// was ever persisted.
func NewService(repo Repository, emitter *events.Emitter, defaults DeliverySettings, logger logx.Logger) *Service {
	return &Service{
		repo:             repo,
		emitter:          emitter,
		defaults:         defaults,
		logger:           logger,
		operationTimeout: 3 * time.Second,
	}
}

// GetDelivery returns the stored dispatch settings, falling back to the
// configured defaults.
func (s *Service) GetDelivery(ctx context.Context) (DeliverySettings, error) {
	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	stored, err := s.repo.GetDelivery(ctx)
	if err != nil {
		return DeliverySettings{}, err
	}
	if stored == nil {
		return s.defaults, nil
	}
	return *stored, nil
}

// UpdateDelivery persists new dispatch settings and emits EventUpdated.
// Manager role only.
func (s *Service) UpdateDelivery(ctx context.Context, role domain.Role, in DeliverySettings) error {
	if role != domain.RoleManager {
		return apperr.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	if err := s.repo.SaveDelivery(ctx, in); err != nil {
		return err
	}

	s.emitter.Emit(EventUpdated, in)

	s.logger.Info("settings updated",
		logx.String("event", "settings_updated"),
		logx.Float64("search_radius_m", in.SearchRadiusM),
		logx.Int("code_length", in.CodeLength),
	)

	return nil
}
