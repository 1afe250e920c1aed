// Package intake turns marketplace order events into delivery requests,
// feeding the same dispatch path the HTTP surface uses.
package intake

import (
	"context"
	"errors"
	"sync"

	"service-dispatch-go/internal/apperr"
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/logx"
	"service-dispatch-go/internal/service/dispatch"
)

// Processor processes order events.
type Processor struct {
	dispatch DispatchPort
	factory  *actionFactory
	logger   logx.Logger

	mu sync.Mutex
	// byOrder maps order ids to the deliveries this process created for
	// them; a cancellation for an order another process handled is
	// skipped.
	byOrder map[string]string
}

// NewProcessor creates a new intake Processor.
func NewProcessor(d DispatchPort, logger logx.Logger) *Processor {
	p := &Processor{
		dispatch: d,
		logger:   logger,
		byOrder:  make(map[string]string),
	}
	p.factory = newActionFactory(p.onCreated, p.onCanceled)
	return p
}

// Handle processes a single order event. Unknown statuses are consumed
// without effect.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	fn, ok := p.factory.get(e.Status)
	if !ok {
		return nil
	}
	return fn(ctx, e)
}

func (p *Processor) onCreated(ctx context.Context, e Event) error {
	caller := dispatch.Caller{ID: e.ClientID, Role: domain.RoleClient}
	d, err := p.dispatch.Request(ctx, caller, dispatch.RequestInput{
		Departure:   e.Departure,
		Destination: e.Destination,
		Recipient:   e.Recipient,
	})
	if errors.Is(err, apperr.ErrInvalid) || errors.Is(err, apperr.ErrForbidden) {
		// malformed order payloads never become valid on redelivery
		p.logger.Warn("order event dropped",
			logx.String("event", "order_dropped"),
			logx.String("order_id", e.OrderID),
			logx.Err(err),
		)
		return nil
	}
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.byOrder[e.OrderID] = d.ID
	p.mu.Unlock()
	return nil
}

func (p *Processor) onCanceled(ctx context.Context, e Event) error {
	p.mu.Lock()
	deliveryID, ok := p.byOrder[e.OrderID]
	p.mu.Unlock()
	if !ok {
		return nil
	}

	caller := dispatch.Caller{ID: e.ClientID, Role: domain.RoleClient}
	err := p.dispatch.Cancel(ctx, caller, deliveryID)
	if errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrNotFound) {
		// already picked up or gone, nothing to undo
		err = nil
	}
	if err != nil {
		return err
	}

	p.mu.Lock()
	delete(p.byOrder, e.OrderID)
	p.mu.Unlock()
	return nil
}
