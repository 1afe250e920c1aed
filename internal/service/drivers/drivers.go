// Package drivers coordinates the driver directory: profiles, last-known
// positions, and the operator-facing listings built on top of them.
package drivers

import (
	"context"
	"strings"
	"time"

	"service-dispatch-go/internal/apperr"
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/geo"
	"service-dispatch-go/internal/pagination"

	"github.com/google/uuid"
)

// Service coordinates driver directory logic and orchestrates repository calls.
type Service struct {
	repo             driverRepository
	pager            *pagination.Paginator[domain.Actor]
	operationTimeout time.Duration
}

// NewService creates and configures a drivers Service.
func NewService(r driverRepository, pager *pagination.Paginator[domain.Actor], timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{repo: r, pager: pager, operationTimeout: timeout}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// validateCreate validates an actor for registration.
func validateCreate(a *domain.Actor) error {
	if a == nil {
		return apperr.ErrInvalid
	}
	if strings.TrimSpace(a.FirstName) == "" {
		return apperr.ErrInvalid
	}
	if !domain.ValidatePhone(a.Phone) {
		return apperr.ErrInvalid
	}
	if !a.Role.Valid() {
		return apperr.ErrInvalid
	}
	return nil
}

func validateUpdate(u *domain.PartialActorUpdate) error {
	if strings.TrimSpace(u.ID) == "" {
		return apperr.ErrInvalid
	}
	if u.FirstName == nil && u.LastName == nil && u.Phone == nil && u.Avatar == nil {
		return apperr.ErrInvalid
	}
	if u.FirstName != nil && strings.TrimSpace(*u.FirstName) == "" {
		return apperr.ErrInvalid
	}
	if u.Phone != nil && !domain.ValidatePhone(*u.Phone) {
		return apperr.ErrInvalid
	}
	return nil
}

// Get retrieves an actor by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Actor, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.ErrNotFound
	}
	return a, nil
}

// Create registers a new actor and returns its generated id.
func (s *Service) Create(ctx context.Context, a *domain.Actor) (string, error) {
	if err := validateCreate(a); err != nil {
		return "", err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Create(ctx, a); err != nil {
		return "", err
	}
	return a.ID, nil
}

// UpdatePartial applies a partial profile update. It returns true if a row was updated.
func (s *Service) UpdatePartial(ctx context.Context, u domain.PartialActorUpdate) (bool, error) {
	if err := validateUpdate(&u); err != nil {
		return false, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ok, err := s.repo.UpdatePartial(ctx, u)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, apperr.ErrNotFound
	}
	return true, nil
}

// List pages through registered drivers with a continuation token.
func (s *Service) List(ctx context.Context, pageToken string, skip int) (pagination.Result[domain.Actor], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.pager.Paginate(ctx, pageToken, skip, s.repo.PageDrivers)
}

// Nearby returns the drivers whose last known position is within
// radiusMeters of origin.
func (s *Service) Nearby(ctx context.Context, origin geo.Point, radiusMeters float64) ([]domain.Actor, error) {
	if !origin.Valid() || radiusMeters <= 0 {
		return nil, apperr.ErrInvalid
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	all, err := s.repo.DriversWithPosition(ctx)
	if err != nil {
		return nil, err
	}
	return geo.MatchNearby(origin, all, radiusMeters, func(a domain.Actor) (geo.Point, bool) {
		return a.LastPosition()
	}), nil
}
