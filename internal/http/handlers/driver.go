package handlers

import (
	"net/http"
	"strconv"

	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/geo"
	"service-dispatch-go/internal/logx"

	"github.com/go-chi/chi/v5"
)

// DriverHandler serves HTTP endpoints for driver resources.
type DriverHandler struct {
	uc     driversUsecase
	logger logx.Logger
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(logger logx.Logger, uc driversUsecase) *DriverHandler {
	return &DriverHandler{uc: uc, logger: logger}
}

// GetByID handles GET /driver/{id}.
func (h *DriverHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	a, err := h.uc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, driverToResponse(*a))
}

// Create handles POST /driver.
func (h *DriverHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDriverRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	id, err := h.uc.Create(r.Context(), &domain.Actor{
		Role:      domain.RoleDriver,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Avatar:    req.Avatar,
	})
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	w.Header().Set("Location", "/driver/"+id)
	writeJSON(h.logger, w, r, http.StatusCreated, map[string]string{"id": id})
}

// Update handles PATCH /driver with partial updates from the request body.
func (h *DriverHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateDriverRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	_, err := h.uc.UpdatePartial(r.Context(), domain.PartialActorUpdate{
		ID:        req.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Avatar:    req.Avatar,
	})
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, okResponse)
}

// List handles GET /drivers.
func (h *DriverHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip := 0
	if s := q.Get("skip"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeError(h.logger, w, r, http.StatusBadRequest, "invalid skip")
			return
		}
		skip = v
	}

	res, err := h.uc.List(r.Context(), q.Get("pageToken"), skip)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}

	out := listDriversResponse{
		Results:       make([]driverDTO, 0, len(res.Results)),
		NextPageToken: res.NextPageToken,
		Refreshed:     res.Refreshed,
	}
	for _, a := range res.Results {
		out.Results = append(out.Results, driverToResponse(a))
	}
	writeJSON(h.logger, w, r, http.StatusOK, out)
}

// Nearby handles GET /drivers/nearby.
func (h *DriverHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	radius, errRad := strconv.ParseFloat(q.Get("radius"), 64)
	if errLat != nil || errLon != nil || errRad != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid coordinates")
		return
	}

	list, err := h.uc.Nearby(r.Context(), geo.Point{Latitude: lat, Longitude: lon}, radius)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}

	out := make([]driverDTO, 0, len(list))
	for _, a := range list {
		out = append(out, driverToResponse(a))
	}
	writeJSON(h.logger, w, r, http.StatusOK, out)
}
