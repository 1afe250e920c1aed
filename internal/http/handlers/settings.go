package handlers

import (
	"net/http"

	"service-dispatch-go/internal/logx"
	"service-dispatch-go/internal/service/settings"
)

// SettingsHandler serves the runtime-tunable dispatch settings.
type SettingsHandler struct {
	uc     settingsUsecase
	logger logx.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(logger logx.Logger, uc settingsUsecase) *SettingsHandler {
	return &SettingsHandler{uc: uc, logger: logger}
}

// GetDelivery handles GET /settings/delivery.
func (h *SettingsHandler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	s, err := h.uc.GetDelivery(r.Context())
	if err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, s)
}

// UpdateDelivery handles PUT /settings/delivery.
func (h *SettingsHandler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	var req settings.DeliverySettings
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	caller, ok := callerFrom(h.logger, w, r)
	if !ok {
		return
	}

	if err := h.uc.UpdateDelivery(r.Context(), caller.Role, req); err != nil {
		writeDomainError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, okResponse)
}
