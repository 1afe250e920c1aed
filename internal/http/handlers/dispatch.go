package handlers

import (
	"context"
	"net/http"
	"strconv"

	"service-dispatch-go/internal/logx"
	"service-dispatch-go/internal/service/dispatch"
)

// DispatchHandler serves the delivery lifecycle endpoints.
type DispatchHandler struct {
	uc     dispatchUsecase
	logger logx.Logger
}

// NewDispatchHandler creates a new DispatchHandler.
func NewDispatchHandler(logger logx.Logger, uc dispatchUsecase) *DispatchHandler {
	return &DispatchHandler{uc: uc, logger: logger}
}

// Request handles POST /delivery/request.
func (h *DispatchHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req requestDeliveryRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	caller, ok := callerFrom(h.logger, w, r)
	if !ok {
		return
	}

	d, err := h.uc.Request(r.Context(), caller, dispatch.RequestInput{
		Departure:   req.Departure,
		Destination: req.Destination,
		Recipient:   req.Recipient,
	})
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, requestDeliveryResponse{
		DeliveryView: dispatch.NewDeliveryView(d),
		Code:         d.Code,
	})
}

// Accept handles POST /delivery/accept.
func (h *DispatchHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.uc.Accept)
}

// Cancel handles POST /delivery/cancel.
func (h *DispatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.uc.Cancel)
}

// SignalArrival handles POST /delivery/signal-arrival.
func (h *DispatchHandler) SignalArrival(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.uc.SignalArrival)
}

// SignalReception handles POST /delivery/signal-reception.
func (h *DispatchHandler) SignalReception(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.uc.SignalReception)
}

// ConfirmDeposit handles POST /delivery/confirm-deposit.
func (h *DispatchHandler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.uc.ConfirmDeposit)
}

// step is the shared body of the transition endpoints that take only a
// delivery id.
func (h *DispatchHandler) step(w http.ResponseWriter, r *http.Request, fn func(context.Context, dispatch.Caller, string) error) {
	var req deliveryActionRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	caller, ok := callerFrom(h.logger, w, r)
	if !ok {
		return
	}

	if err := fn(r.Context(), caller, req.DeliveryID); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, okResponse)
}

// VerifyCode handles POST /delivery/verify-code.
func (h *DispatchHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	caller, ok := callerFrom(h.logger, w, r)
	if !ok {
		return
	}

	if err := h.uc.VerifyCode(r.Context(), caller, req.DeliveryID, req.Code); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, okResponse)
}

// Report handles POST /delivery/report.
func (h *DispatchHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req reportConflictRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	caller, ok := callerFrom(h.logger, w, r)
	if !ok {
		return
	}

	if err := h.uc.Report(r.Context(), caller, req.DeliveryID, req.Type, req.LastPosition); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, okResponse)
}

// AssignDriver handles POST /delivery/assign-driver.
func (h *DispatchHandler) AssignDriver(w http.ResponseWriter, r *http.Request) {
	var req assignDriverRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	caller, ok := callerFrom(h.logger, w, r)
	if !ok {
		return
	}

	if err := h.uc.AssignDriver(r.Context(), caller, req.ConflictID, req.DriverID); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, okResponse)
}

// ListStarted handles GET /delivery/started.
func (h *DispatchHandler) ListStarted(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(h.logger, w, r)
	if !ok {
		return
	}

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

	res, err := h.uc.ListStarted(r.Context(), caller, q.Get("pageToken"), skip)
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, listStartedResponse{
		Results:       res.Results,
		NextPageToken: res.NextPageToken,
		Refreshed:     res.Refreshed,
	})
}
