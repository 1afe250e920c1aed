package intake_test

import (
	"context"
	"errors"
	"testing"

	"service-dispatch-go/internal/apperr"
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/geo"
	"service-dispatch-go/internal/service/dispatch"
	"service-dispatch-go/internal/service/intake"
	testlog "service-dispatch-go/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDispatch struct {
	requested  []dispatch.RequestInput
	cancelled  []string
	requestErr error
	cancelErr  error
}

func (s *stubDispatch) Request(_ context.Context, caller dispatch.Caller, in dispatch.RequestInput) (*domain.Delivery, error) {
	if s.requestErr != nil {
		return nil, s.requestErr
	}
	s.requested = append(s.requested, in)
	return &domain.Delivery{ID: "delivery-1", ClientID: caller.ID, Status: domain.StatusRequested}, nil
}

func (s *stubDispatch) Cancel(_ context.Context, _ dispatch.Caller, deliveryID string) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	s.cancelled = append(s.cancelled, deliveryID)
	return nil
}

func orderEvent(status string) intake.Event {
	return intake.Event{
		OrderID:  "order-1",
		Status:   status,
		ClientID: "client-1",
		Departure: domain.Location{
			Address: "Missoke",
			Point:   geo.Point{Latitude: 4.047, Longitude: 9.697},
		},
		Destination: domain.Location{
			Address: "Bonaberi",
			Point:   geo.Point{Latitude: 3.990, Longitude: 9.800},
		},
		Recipient: domain.RecipientInfo{Name: "Sam", Phone: "+237611111111"},
	}
}

func TestHandle_Created(t *testing.T) {
	d := &stubDispatch{}
	p := intake.NewProcessor(d, testlog.New().Logger())

	require.NoError(t, p.Handle(context.Background(), orderEvent("created")))
	require.Len(t, d.requested, 1)
	assert.Equal(t, "Missoke", d.requested[0].Departure.Address)
}

func TestHandle_CanceledAfterCreated(t *testing.T) {
	d := &stubDispatch{}
	p := intake.NewProcessor(d, testlog.New().Logger())

	require.NoError(t, p.Handle(context.Background(), orderEvent("created")))
	require.NoError(t, p.Handle(context.Background(), orderEvent("canceled")))

	require.Len(t, d.cancelled, 1)
	assert.Equal(t, "delivery-1", d.cancelled[0])
}

func TestHandle_CanceledUnknownOrder(t *testing.T) {
	d := &stubDispatch{}
	p := intake.NewProcessor(d, testlog.New().Logger())

	require.NoError(t, p.Handle(context.Background(), orderEvent("canceled")))
	assert.Empty(t, d.cancelled)
}

func TestHandle_UnknownStatusConsumed(t *testing.T) {
	d := &stubDispatch{}
	p := intake.NewProcessor(d, testlog.New().Logger())

	require.NoError(t, p.Handle(context.Background(), orderEvent("cooking")))
	assert.Empty(t, d.requested)
}

func TestHandle_InvalidPayloadConsumed(t *testing.T) {
	d := &stubDispatch{requestErr: apperr.ErrInvalid}
	p := intake.NewProcessor(d, testlog.New().Logger())

	assert.NoError(t, p.Handle(context.Background(), orderEvent("created")))
}

func TestHandle_TransientErrorPropagates(t *testing.T) {
	d := &stubDispatch{requestErr: errors.New("db down")}
	p := intake.NewProcessor(d, testlog.New().Logger())

	assert.Error(t, p.Handle(context.Background(), orderEvent("created")))
}

func TestHandle_CancelAlreadyAccepted(t *testing.T) {
	d := &stubDispatch{}
	p := intake.NewProcessor(d, testlog.New().Logger())
	require.NoError(t, p.Handle(context.Background(), orderEvent("created")))

	d.cancelErr = apperr.ErrConflict
	assert.NoError(t, p.Handle(context.Background(), orderEvent("deleted")))
}
