package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-dispatch-go/internal/apperr"
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/geo"
	"service-dispatch-go/internal/pagination"
	testlog "service-dispatch-go/internal/testutil"
)

type stubDriversUsecase struct {
	getFn    func(ctx context.Context, id string) (*domain.Actor, error)
	createFn func(ctx context.Context, a *domain.Actor) (string, error)
	updateFn func(ctx context.Context, u domain.PartialActorUpdate) (bool, error)
	listFn   func(ctx context.Context, pageToken string, skip int) (pagination.Result[domain.Actor], error)
	nearbyFn func(ctx context.Context, origin geo.Point, radiusMeters float64) ([]domain.Actor, error)
}

func (s *stubDriversUsecase) Get(ctx context.Context, id string) (*domain.Actor, error) {
	if s.getFn == nil {
		panic("Get not expected in this test")
	}
	return s.getFn(ctx, id)
}

func (s *stubDriversUsecase) Create(ctx context.Context, a *domain.Actor) (string, error) {
	if s.createFn == nil {
		panic("Create not expected in this test")
	}
	return s.createFn(ctx, a)
}

func (s *stubDriversUsecase) UpdatePartial(ctx context.Context, u domain.PartialActorUpdate) (bool, error) {
	if s.updateFn == nil {
		panic("UpdatePartial not expected in this test")
	}
	return s.updateFn(ctx, u)
}

func (s *stubDriversUsecase) List(ctx context.Context, pageToken string, skip int) (pagination.Result[domain.Actor], error) {
	if s.listFn == nil {
		panic("List not expected in this test")
	}
	return s.listFn(ctx, pageToken, skip)
}

func (s *stubDriversUsecase) Nearby(ctx context.Context, origin geo.Point, radiusMeters float64) ([]domain.Actor, error) {
	if s.nearbyFn == nil {
		panic("Nearby not expected in this test")
	}
	return s.nearbyFn(ctx, origin, radiusMeters)
}

func getWithURLParam(target, name, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestDriverHandler_GetByID_OK(t *testing.T) {
	t.Parallel()

	req := getWithURLParam("/driver/driver-1", "id", "driver-1")
	rr := httptest.NewRecorder()

	uc := &stubDriversUsecase{
		getFn: func(_ context.Context, id string) (*domain.Actor, error) {
			require.Equal(t, "driver-1", id)
			return &domain.Actor{
				ID:        "driver-1",
				Role:      domain.RoleDriver,
				FirstName: "Jo",
				LastName:  "Moto",
				Phone:     "+237600000001",
			}, nil
		},
	}

	h := NewDriverHandler(testlog.New().Logger(), uc)
	h.GetByID(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	expectedJSON := `{
		"id": "driver-1",
		"firstName": "Jo",
		"lastName": "Moto",
		"phone": "+237600000001"
	}`
	assert.JSONEq(t, expectedJSON, rr.Body.String())
}

func TestDriverHandler_GetByID_NotFound(t *testing.T) {
	t.Parallel()

	req := getWithURLParam("/driver/nope", "id", "nope")
	rr := httptest.NewRecorder()

	uc := &stubDriversUsecase{
		getFn: func(context.Context, string) (*domain.Actor, error) {
			return nil, apperr.ErrNotFound
		},
	}

	h := NewDriverHandler(testlog.New().Logger(), uc)
	h.GetByID(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error": "not found"}`, rr.Body.String())
}

func TestDriverHandler_Create_OK(t *testing.T) {
	t.Parallel()

	body := `{"firstName":"Jo","lastName":"Moto","phone":"+237600000001"}`
	req := httptest.NewRequest(http.MethodPost, "/driver", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	uc := &stubDriversUsecase{
		createFn: func(_ context.Context, a *domain.Actor) (string, error) {
			require.Equal(t, domain.RoleDriver, a.Role)
			require.Equal(t, "Jo", a.FirstName)
			return "driver-1", nil
		},
	}

	h := NewDriverHandler(testlog.New().Logger(), uc)
	h.Create(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/driver/driver-1", rr.Header().Get("Location"))
	assert.JSONEq(t, `{"id": "driver-1"}`, rr.Body.String())
}

func TestDriverHandler_Create_DuplicatePhone(t *testing.T) {
	t.Parallel()

	body := `{"firstName":"Jo","phone":"+237600000001"}`
	req := httptest.NewRequest(http.MethodPost, "/driver", strings.NewReader(body))
	rr := httptest.NewRecorder()

	uc := &stubDriversUsecase{
		createFn: func(context.Context, *domain.Actor) (string, error) {
			return "", apperr.ErrConflict
		},
	}

	h := NewDriverHandler(testlog.New().Logger(), uc)
	h.Create(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestDriverHandler_Update_OK(t *testing.T) {
	t.Parallel()

	body := `{"id":"driver-1","firstName":"Joe"}`
	req := httptest.NewRequest(http.MethodPatch, "/driver", strings.NewReader(body))
	rr := httptest.NewRecorder()

	uc := &stubDriversUsecase{
		updateFn: func(_ context.Context, u domain.PartialActorUpdate) (bool, error) {
			require.Equal(t, "driver-1", u.ID)
			require.NotNil(t, u.FirstName)
			require.Equal(t, "Joe", *u.FirstName)
			require.Nil(t, u.Phone)
			return true, nil
		},
	}

	h := NewDriverHandler(testlog.New().Logger(), uc)
	h.Update(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rr.Body.String())
}

func TestDriverHandler_List_OK(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/drivers?skip=2", nil)
	rr := httptest.NewRecorder()

	uc := &stubDriversUsecase{
		listFn: func(_ context.Context, pageToken string, skip int) (pagination.Result[domain.Actor], error) {
			require.Empty(t, pageToken)
			require.Equal(t, 2, skip)
			return pagination.Result[domain.Actor]{
				Results: []domain.Actor{{ID: "driver-1", FirstName: "Jo", Phone: "+237600000001"}},
			}, nil
		},
	}

	h := NewDriverHandler(testlog.New().Logger(), uc)
	h.List(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	expectedJSON := `{
		"results": [{"id":"driver-1","firstName":"Jo","lastName":"","phone":"+237600000001"}],
		"refreshed": false
	}`
	assert.JSONEq(t, expectedJSON, rr.Body.String())
}

func TestDriverHandler_Nearby_OK(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/drivers/nearby?lat=4.047&lon=9.697&radius=5500", nil)
	rr := httptest.NewRecorder()

	pos := geo.Point{Latitude: 4.05, Longitude: 9.70}
	uc := &stubDriversUsecase{
		nearbyFn: func(_ context.Context, origin geo.Point, radiusMeters float64) ([]domain.Actor, error) {
			require.InDelta(t, 4.047, origin.Latitude, 1e-9)
			require.InDelta(t, 5500.0, radiusMeters, 1e-9)
			return []domain.Actor{{ID: "driver-1", FirstName: "Jo", Phone: "+237600000001", Position: &pos}}, nil
		},
	}

	h := NewDriverHandler(testlog.New().Logger(), uc)
	h.Nearby(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	expectedJSON := `[{
		"id": "driver-1",
		"firstName": "Jo",
		"lastName": "",
		"phone": "+237600000001",
		"position": {"latitude": 4.05, "longitude": 9.70}
	}]`
	assert.JSONEq(t, expectedJSON, rr.Body.String())
}

func TestDriverHandler_Nearby_BadCoordinates(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/drivers/nearby?lat=abc&lon=9.697&radius=5500", nil)
	rr := httptest.NewRecorder()

	uc := &stubDriversUsecase{
		nearbyFn: func(context.Context, geo.Point, float64) ([]domain.Actor, error) {
			require.FailNow(t, "usecase.Nearby must not be called on bad coordinates")
			return nil, nil
		},
	}

	h := NewDriverHandler(testlog.New().Logger(), uc)
	h.Nearby(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error": "invalid coordinates"}`, rr.Body.String())
}
