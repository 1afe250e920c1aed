// Package dispatch owns the delivery lifecycle: guarded transitions,
// driver matching, conflict escalation, and the domain events every
// committed transition puts on the fabric.
package dispatch

import (
	"context"
	"crypto/subtle"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"service-dispatch-go/internal/apperr"
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/events"
	"service-dispatch-go/internal/geo"
	"service-dispatch-go/internal/logx"
	"service-dispatch-go/internal/pagination"
	"service-dispatch-go/internal/ports/dispatchtx"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Options are the tunable knobs of the dispatch service.
type Options struct {
	RadiusMeters     float64
	CodeLength       int
	OperationTimeout time.Duration
}

// Metrics are the dispatch counters registered by the composition root.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Conflicts   prometheus.Counter
}

// Service - the delivery dispatch and lifecycle engine.
type Service struct {
	repo             Repository
	actors           ActorStore
	emitter          *events.Emitter
	pager            *pagination.Paginator[domain.Delivery]
	locks            *keyedMutex
	metrics          Metrics
	logger           logx.Logger
	radiusBits       atomic.Uint64
	codeLength       int
	operationTimeout time.Duration
	now              func() time.Time
	newID            func() string
}

// NewService - creates a new dispatch Service.
func NewService(
	repo Repository,
	actors ActorStore,
	emitter *events.Emitter,
	pager *pagination.Paginator[domain.Delivery],
	opts Options,
	m Metrics,
	logger logx.Logger,
) *Service {
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = 3 * time.Second
	}
	if opts.CodeLength <= 0 {
		opts.CodeLength = 5
	}
	s := &Service{
		repo:             repo,
		actors:           actors,
		emitter:          emitter,
		pager:            pager,
		locks:            newKeyedMutex(),
		metrics:          m,
		logger:           logger,
		codeLength:       opts.CodeLength,
		operationTimeout: opts.OperationTimeout,
		now:              func() time.Time { return time.Now().UTC() },
		newID:            uuid.NewString,
	}
	s.SetRadius(opts.RadiusMeters)
	return s
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Radius returns the current matching radius in meters.
func (s *Service) Radius() float64 {
	return math.Float64frombits(s.radiusBits.Load())
}

// SetRadius swaps the matching radius; only subsequent requests see the
// new value.
func (s *Service) SetRadius(meters float64) {
	s.radiusBits.Store(math.Float64bits(meters))
}

func (s *Service) emit(n Notice) {
	s.emitter.Emit(n.Event, n)
}

func (s *Service) countTransition(status domain.DeliveryStatus) {
	if s.metrics.Transitions != nil {
		s.metrics.Transitions.WithLabelValues(string(status)).Inc()
	}
}

// RequestInput carries the client's delivery request.
type RequestInput struct {
	Departure   domain.Location
	Destination domain.Location
	Recipient   domain.RecipientInfo
}

func (in RequestInput) validate() error {
	if !in.Departure.Point.Valid() || !in.Destination.Point.Valid() {
		return apperr.ErrInvalid
	}
	if strings.TrimSpace(in.Recipient.Name) == "" || !domain.ValidatePhone(in.Recipient.Phone) {
		return apperr.ErrInvalid
	}
	return nil
}

// Request creates a delivery and notifies every driver within the current
// radius of the departure point. The returned delivery carries the
// confirmation code; it goes to the requesting client only.
func (s *Service) Request(ctx context.Context, caller Caller, in RequestInput) (*domain.Delivery, error) {
	if caller.Role != domain.RoleClient {
		return nil, apperr.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	code, err := newCode(s.codeLength)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &domain.Delivery{
		ID:          s.newID(),
		Status:      domain.StatusRequested,
		Departure:   in.Departure,
		Destination: in.Destination,
		Recipient:   in.Recipient,
		ClientID:    caller.ID,
		Code:        code,
		RequestedAt: now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateDelivery(ctx, d); err != nil {
		return nil, err
	}
	s.countTransition(domain.StatusRequested)

	matched := s.matchDrivers(ctx, in.Departure.Point)
	view := NewDeliveryView(d)
	for _, driver := range matched {
		s.emit(Notice{To: driver.ID, Event: EventNewDelivery, Data: view})
	}

	s.logger.Info("delivery requested",
		logx.String("event", "delivery_requested"),
		logx.String("delivery_id", d.ID),
		logx.String("client_id", caller.ID),
		logx.Int("matched_drivers", len(matched)),
		logx.Float64("radius_m", s.Radius()),
	)

	return d, nil
}

// rebroadcastBatch caps how many waiting deliveries one rebroadcast pass
// re-announces.
const rebroadcastBatch = 50

// RebroadcastRequested re-notifies nearby drivers of deliveries still
// waiting for a driver. It returns how many deliveries were re-announced.
func (s *Service) RebroadcastRequested(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	page, err := s.repo.PageDeliveriesByStatus(ctx, domain.StatusRequested, 0, rebroadcastBatch)
	if err != nil {
		return 0, err
	}

	for i := range page.Values {
		d := &page.Values[i]
		view := NewDeliveryView(d)
		for _, driver := range s.matchDrivers(ctx, d.Departure.Point) {
			s.emit(Notice{To: driver.ID, Event: EventNewDelivery, Data: view})
		}
	}
	return len(page.Values), nil
}

// matchDrivers is best-effort: a directory failure degrades to an empty
// match, it never fails the request.
func (s *Service) matchDrivers(ctx context.Context, origin geo.Point) []domain.Actor {
	drivers, err := s.actors.DriversWithPosition(ctx)
	if err != nil {
		s.logger.Warn("driver matching skipped",
			logx.String("event", "match_failed"),
			logx.Err(err),
		)
		return nil
	}
	return geo.MatchNearby(origin, drivers, s.Radius(), func(a domain.Actor) (geo.Point, bool) {
		return a.LastPosition()
	})
}

// Accept assigns the calling driver to a requested delivery. Concurrent
// accepts race on the row lock; exactly one wins, the rest get
// ErrConflict.
func (s *Service) Accept(ctx context.Context, caller Caller, deliveryID string) error {
	if caller.Role != domain.RoleDriver {
		return apperr.ErrForbidden
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock := s.locks.Lock(deliveryID)
	defer unlock()

	var clientID string
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.GetDeliveryForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.ErrNotFound
		}
		if d.Status != domain.StatusRequested || d.DriverID != nil {
			return apperr.ErrConflict
		}
		if err := tx.AssignDriver(ctx, deliveryID, caller.ID); err != nil {
			return err
		}
		clientID = d.ClientID
		return tx.UpdateDeliveryStatus(ctx, deliveryID, domain.StatusAccepted)
	})
	if err != nil {
		return err
	}
	s.countTransition(domain.StatusAccepted)

	if profile, ok := s.driverProfile(ctx, caller.ID); ok {
		s.emit(Notice{To: clientID, Event: EventDeliveryAccepted, Data: AcceptedPayload{
			DeliveryID: deliveryID,
			Driver:     profile,
		}})
	}

	s.logger.Info("delivery accepted",
		logx.String("event", "delivery_accepted"),
		logx.String("delivery_id", deliveryID),
		logx.String("driver_id", caller.ID),
	)

	return nil
}

func (s *Service) driverProfile(ctx context.Context, driverID string) (domain.Profile, bool) {
	a, err := s.actors.GetActor(ctx, driverID)
	if err != nil || a == nil {
		s.logger.Warn("driver profile lookup failed",
			logx.String("event", "profile_lookup_failed"),
			logx.String("driver_id", driverID),
			logx.Err(err),
		)
		return domain.Profile{}, false
	}
	return a.PublicProfile(), true
}

// Cancel lets the owning client abort a delivery that has not been picked
// up yet.
func (s *Service) Cancel(ctx context.Context, caller Caller, deliveryID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock := s.locks.Lock(deliveryID)
	defer unlock()

	var driverID *string
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.GetDeliveryForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.ErrNotFound
		}
		if d.ClientID != caller.ID {
			return apperr.ErrForbidden
		}
		if !d.Status.Cancellable() {
			return apperr.ErrConflict
		}
		driverID = d.DriverID
		return tx.UpdateDeliveryStatus(ctx, deliveryID, domain.StatusCancelled)
	})
	if err != nil {
		return err
	}
	s.countTransition(domain.StatusCancelled)

	if driverID != nil {
		s.emit(Notice{To: *driverID, Event: EventDeliveryCancelled, Data: deliveryID})
	}

	s.logger.Info("delivery cancelled",
		logx.String("event", "delivery_cancelled"),
		logx.String("delivery_id", deliveryID),
	)

	return nil
}

// SignalArrival is the assigned driver reporting presence at the
// departure point.
func (s *Service) SignalArrival(ctx context.Context, caller Caller, deliveryID string) error {
	return s.driverStep(ctx, caller, deliveryID, domain.StatusAccepted, domain.StatusPendingReception, EventDriverArrived)
}

// SignalReception is the assigned driver reporting the package in hand,
// awaiting the client's confirmation.
func (s *Service) SignalReception(ctx context.Context, caller Caller, deliveryID string) error {
	return s.driverStep(ctx, caller, deliveryID, domain.StatusPendingReception, domain.StatusToBeConfirmed, EventDeliveryReceived)
}

// driverStep runs one assigned-driver transition and notifies the client.
func (s *Service) driverStep(ctx context.Context, caller Caller, deliveryID string, from, to domain.DeliveryStatus, event string) error {
	if caller.Role != domain.RoleDriver {
		return apperr.ErrForbidden
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock := s.locks.Lock(deliveryID)
	defer unlock()

	var clientID string
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.GetDeliveryForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.ErrNotFound
		}
		if !d.AssignedTo(caller.ID) {
			return apperr.ErrForbidden
		}
		if d.Status != from {
			return apperr.ErrConflict
		}
		clientID = d.ClientID
		return tx.UpdateDeliveryStatus(ctx, deliveryID, to)
	})
	if err != nil {
		return err
	}
	s.countTransition(to)

	s.emit(Notice{To: clientID, Event: event, Data: deliveryID})
	return nil
}

// ConfirmDeposit is the owning client confirming the package handover,
// which starts the transit. Both parties are notified.
func (s *Service) ConfirmDeposit(ctx context.Context, caller Caller, deliveryID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock := s.locks.Lock(deliveryID)
	defer unlock()

	var driverID string
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.GetDeliveryForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.ErrNotFound
		}
		if d.ClientID != caller.ID {
			return apperr.ErrForbidden
		}
		if d.Status != domain.StatusToBeConfirmed || d.DriverID == nil {
			return apperr.ErrConflict
		}
		driverID = *d.DriverID
		return tx.UpdateDeliveryStatus(ctx, deliveryID, domain.StatusStarted)
	})
	if err != nil {
		return err
	}
	s.countTransition(domain.StatusStarted)

	s.emit(Notice{To: caller.ID, Event: EventDeliveryStarted, Data: deliveryID})
	s.emit(Notice{To: driverID, Event: EventDeliveryStarted, Data: deliveryID})
	return nil
}

// VerifyCode ends a started delivery when the assigned driver presents
// the recipient's confirmation code. The unaddressed delivery-end signal
// lets the chat module tear its room down.
func (s *Service) VerifyCode(ctx context.Context, caller Caller, deliveryID, code string) error {
	if caller.Role != domain.RoleDriver {
		return apperr.ErrForbidden
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock := s.locks.Lock(deliveryID)
	defer unlock()

	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.GetDeliveryForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.ErrNotFound
		}
		if !d.AssignedTo(caller.ID) {
			return apperr.ErrForbidden
		}
		if d.Status != domain.StatusStarted {
			return apperr.ErrConflict
		}
		if subtle.ConstantTimeCompare([]byte(strings.ToUpper(strings.TrimSpace(code))), []byte(d.Code)) != 1 {
			return apperr.ErrInvalid
		}
		return tx.UpdateDeliveryStatus(ctx, deliveryID, domain.StatusEnded)
	})
	if err != nil {
		return err
	}
	s.countTransition(domain.StatusEnded)

	s.emit(Notice{Event: EventDeliveryEnd, Data: deliveryID})

	s.logger.Info("delivery ended",
		logx.String("event", "delivery_ended"),
		logx.String("delivery_id", deliveryID),
		logx.String("driver_id", caller.ID),
	)

	return nil
}

// UpdatePosition persists the caller's position and, when the caller is a
// party of an active delivery, relays it to the counterpart. The position
// is stored even without an active delivery so matching sees it.
func (s *Service) UpdatePosition(ctx context.Context, caller Caller, p geo.Point) error {
	if !p.Valid() {
		return apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.actors.UpdatePosition(ctx, caller.ID, p); err != nil {
		return err
	}

	d, err := s.repo.GetActiveDeliveryFor(ctx, caller.ID)
	if err != nil {
		return err
	}
	if d == nil {
		return nil
	}
	if other, ok := d.CounterpartOf(caller.ID); ok {
		s.emit(Notice{To: other, Event: EventNewPosition, Data: PositionPayload{
			UserID:   caller.ID,
			Position: p,
		}})
	}
	return nil
}

// Report escalates a mid-transit problem: the assigned driver freezes the
// delivery into conflict and every connected manager is alerted.
func (s *Service) Report(ctx context.Context, caller Caller, deliveryID, conflictType string, lastPosition geo.Point) error {
	if caller.Role != domain.RoleDriver {
		return apperr.ErrForbidden
	}
	if strings.TrimSpace(conflictType) == "" || !lastPosition.Valid() {
		return apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock := s.locks.Lock(deliveryID)
	defer unlock()

	var frozen *domain.Delivery
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.GetDeliveryForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.ErrNotFound
		}
		if !d.AssignedTo(caller.ID) {
			return apperr.ErrForbidden
		}
		if !d.Status.Reportable() {
			return apperr.ErrConflict
		}

		c := &domain.Conflict{
			ID:           s.newID(),
			DeliveryID:   deliveryID,
			Type:         strings.TrimSpace(conflictType),
			ReporterID:   caller.ID,
			LastLocation: lastPosition,
			PriorStatus:  d.Status,
			ReportedAt:   s.now(),
		}
		if err := tx.InsertConflict(ctx, c); err != nil {
			return err
		}
		if err := tx.UpdateDeliveryStatus(ctx, deliveryID, domain.StatusInConflict); err != nil {
			return err
		}

		frozen = d
		frozen.Status = domain.StatusInConflict
		return nil
	})
	if err != nil {
		return err
	}
	s.countTransition(domain.StatusInConflict)
	if s.metrics.Conflicts != nil {
		s.metrics.Conflicts.Inc()
	}

	if reporter, ok := s.driverProfile(ctx, caller.ID); ok {
		s.emit(Notice{Role: domain.RoleManager, Event: EventNewConflict, Data: ConflictPayload{
			Type:         strings.TrimSpace(conflictType),
			Reporter:     reporter,
			LastPosition: lastPosition,
			Delivery:     NewDeliveryView(frozen),
		}})
	}

	s.logger.Warn("conflict reported",
		logx.String("event", "conflict_reported"),
		logx.String("delivery_id", deliveryID),
		logx.String("driver_id", caller.ID),
		logx.String("conflict_type", strings.TrimSpace(conflictType)),
	)

	return nil
}

// AssignDriver is a manager resolving an open conflict by handing the
// delivery to a new driver. The delivery resumes the stage it was in when
// reported; only the new driver is notified.
func (s *Service) AssignDriver(ctx context.Context, caller Caller, conflictID, driverID string) error {
	if caller.Role != domain.RoleManager {
		return apperr.ErrForbidden
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := s.repo.GetConflict(ctx, conflictID)
	if err != nil {
		return err
	}
	if c == nil {
		return apperr.ErrNotFound
	}

	driver, err := s.actors.GetActor(ctx, driverID)
	if err != nil {
		return err
	}
	if driver == nil || driver.Role != domain.RoleDriver {
		return apperr.ErrInvalid
	}

	unlock := s.locks.Lock(c.DeliveryID)
	defer unlock()

	var reassigned *domain.Delivery
	err = s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		open, err := tx.GetOpenConflict(ctx, c.DeliveryID)
		if err != nil {
			return err
		}
		if open == nil || open.ID != conflictID {
			return apperr.ErrConflict
		}

		d, err := tx.GetDeliveryForUpdate(ctx, c.DeliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.ErrNotFound
		}
		if d.Status != domain.StatusInConflict {
			return apperr.ErrConflict
		}

		if err := tx.AssignDriver(ctx, c.DeliveryID, driverID); err != nil {
			return err
		}
		if err := tx.UpdateDeliveryStatus(ctx, c.DeliveryID, open.PriorStatus); err != nil {
			return err
		}
		if err := tx.CloseConflict(ctx, conflictID); err != nil {
			return err
		}

		reassigned = d
		reassigned.Status = open.PriorStatus
		reassigned.DriverID = &driverID
		return nil
	})
	if err != nil {
		return err
	}
	s.countTransition(reassigned.Status)

	s.emit(Notice{To: driverID, Event: EventNewAssignment, Data: NewDeliveryView(reassigned)})

	s.logger.Info("conflict resolved",
		logx.String("event", "driver_reassigned"),
		logx.String("conflict_id", conflictID),
		logx.String("delivery_id", c.DeliveryID),
		logx.String("driver_id", driverID),
	)

	return nil
}

// ListStarted pages through in-transit deliveries for operators.
func (s *Service) ListStarted(ctx context.Context, caller Caller, pageToken string, skip int) (pagination.Result[DeliveryView], error) {
	if caller.Role != domain.RoleManager {
		return pagination.Result[DeliveryView]{}, apperr.ErrForbidden
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	page, err := s.pager.Paginate(ctx, pageToken, skip, func(ctx context.Context, offset, limit int) (pagination.Page[domain.Delivery], error) {
		return s.repo.PageDeliveriesByStatus(ctx, domain.StatusStarted, offset, limit)
	})
	if err != nil {
		return pagination.Result[DeliveryView]{}, err
	}

	out := pagination.Result[DeliveryView]{
		NextPageToken: page.NextPageToken,
		Refreshed:     page.Refreshed,
		Results:       make([]DeliveryView, 0, len(page.Results)),
	}
	for i := range page.Results {
		out.Results = append(out.Results, NewDeliveryView(&page.Results[i]))
	}
	return out, nil
}
