package handlers

import (
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/geo"
	"service-dispatch-go/internal/service/dispatch"
)

type requestDeliveryRequest struct {
	Departure   domain.Location      `json:"departure"`
	Destination domain.Location      `json:"destination"`
	Recipient   domain.RecipientInfo `json:"recipientInfos"`
}

// requestDeliveryResponse is the only place the confirmation code crosses
// the wire. It goes back to the requesting client and nobody else.
type requestDeliveryResponse struct {
	dispatch.DeliveryView
	Code string `json:"code"`
}

type deliveryActionRequest struct {
	DeliveryID string `json:"deliveryId"`
}

type verifyCodeRequest struct {
	DeliveryID string `json:"deliveryId"`
	Code       string `json:"code"`
}

type reportConflictRequest struct {
	DeliveryID   string    `json:"deliveryId"`
	Type         string    `json:"type"`
	LastPosition geo.Point `json:"lastPosition"`
}

type assignDriverRequest struct {
	ConflictID string `json:"conflictId"`
	DriverID   string `json:"driverId"`
}

type listStartedResponse struct {
	Results       []dispatch.DeliveryView `json:"results"`
	NextPageToken string                  `json:"nextPageToken,omitempty"`
	Refreshed     bool                    `json:"refreshed"`
}

type statusResponse struct {
	Status string `json:"status"`
}

var okResponse = statusResponse{Status: "ok"}
