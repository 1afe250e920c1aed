package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-dispatch-go/internal/apperr"
	"service-dispatch-go/internal/auth"
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/service/settings"
	testlog "service-dispatch-go/internal/testutil"
)

type stubSettingsUsecase struct {
	getFn    func(ctx context.Context) (settings.DeliverySettings, error)
	updateFn func(ctx context.Context, role domain.Role, in settings.DeliverySettings) error
}

func (s *stubSettingsUsecase) GetDelivery(ctx context.Context) (settings.DeliverySettings, error) {
	if s.getFn == nil {
		panic("GetDelivery not expected in this test")
	}
	return s.getFn(ctx)
}

func (s *stubSettingsUsecase) UpdateDelivery(ctx context.Context, role domain.Role, in settings.DeliverySettings) error {
	if s.updateFn == nil {
		panic("UpdateDelivery not expected in this test")
	}
	return s.updateFn(ctx, role, in)
}

func TestSettingsHandler_GetDelivery_OK(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/settings/delivery", nil)
	rr := httptest.NewRecorder()

	uc := &stubSettingsUsecase{
		getFn: func(context.Context) (settings.DeliverySettings, error) {
			return settings.DeliverySettings{SearchRadiusM: 5500, CodeLength: 5}, nil
		},
	}

	h := NewSettingsHandler(testlog.New().Logger(), uc)
	h.GetDelivery(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"searchRadiusM": 5500, "codeLength": 5}`, rr.Body.String())
}

func TestSettingsHandler_UpdateDelivery_OK(t *testing.T) {
	t.Parallel()

	req := authedRequest(http.MethodPut, "/settings/delivery", `{"searchRadiusM":8000,"codeLength":6}`,
		auth.Identity{UserID: "mgr-1", Role: domain.RoleManager})
	rr := httptest.NewRecorder()

	uc := &stubSettingsUsecase{
		updateFn: func(_ context.Context, role domain.Role, in settings.DeliverySettings) error {
			require.Equal(t, domain.RoleManager, role)
			require.Equal(t, 8000.0, in.SearchRadiusM)
			require.Equal(t, 6, in.CodeLength)
			return nil
		},
	}

	h := NewSettingsHandler(testlog.New().Logger(), uc)
	h.UpdateDelivery(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rr.Body.String())
}

func TestSettingsHandler_UpdateDelivery_Forbidden(t *testing.T) {
	t.Parallel()

	req := authedRequest(http.MethodPut, "/settings/delivery", `{"searchRadiusM":8000,"codeLength":6}`,
		auth.Identity{UserID: "client-1", Role: domain.RoleClient})
	rr := httptest.NewRecorder()

	uc := &stubSettingsUsecase{
		updateFn: func(context.Context, domain.Role, settings.DeliverySettings) error {
			return apperr.ErrForbidden
		},
	}

	h := NewSettingsHandler(testlog.New().Logger(), uc)
	h.UpdateDelivery(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
}
