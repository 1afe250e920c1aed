package settings_test

import (
	"context"
	"testing"

	"service-dispatch-go/internal/apperr"
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/events"
	"service-dispatch-go/internal/service/settings"
	testlog "service-dispatch-go/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	stored *settings.DeliverySettings
}

func (r *stubRepo) GetDelivery(context.Context) (*settings.DeliverySettings, error) {
	return r.stored, nil
}

func (r *stubRepo) SaveDelivery(_ context.Context, s settings.DeliverySettings) error {
	r.stored = &s
	return nil
}

func newService(repo *stubRepo) (*settings.Service, *events.Emitter) {
	em := events.NewEmitter("settings")
	defaults := settings.DeliverySettings{SearchRadiusM: 5500, CodeLength: 5}
	return settings.NewService(repo, em, defaults, testlog.New().Logger()), em
}

func TestGetDelivery_Defaults(t *testing.T) {
	svc, _ := newService(&stubRepo{})

	got, err := svc.GetDelivery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings.DeliverySettings{SearchRadiusM: 5500, CodeLength: 5}, got)
}

func TestUpdateDelivery(t *testing.T) {
	repo := &stubRepo{}
	svc, em := newService(repo)

	var emitted any
	em.On(settings.EventUpdated, func(p any) { emitted = p })

	in := settings.DeliverySettings{SearchRadiusM: 8000, CodeLength: 6}
	require.NoError(t, svc.UpdateDelivery(context.Background(), domain.RoleManager, in))

	require.NotNil(t, repo.stored)
	assert.Equal(t, in, *repo.stored)
	assert.Equal(t, in, emitted)

	got, err := svc.GetDelivery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestUpdateDelivery_ManagerOnly(t *testing.T) {
	svc, _ := newService(&stubRepo{})

	err := svc.UpdateDelivery(context.Background(), domain.RoleDriver, settings.DeliverySettings{SearchRadiusM: 8000, CodeLength: 6})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdateDelivery_Validation(t *testing.T) {
	svc, em := newService(&stubRepo{})

	fired := false
	em.On(settings.EventUpdated, func(any) { fired = true })

	err := svc.UpdateDelivery(context.Background(), domain.RoleManager, settings.DeliverySettings{SearchRadiusM: 0, CodeLength: 5})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	err = svc.UpdateDelivery(context.Background(), domain.RoleManager, settings.DeliverySettings{SearchRadiusM: 5500, CodeLength: 2})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	assert.False(t, fired)
}
