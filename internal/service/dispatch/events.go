package dispatch

import (
	"time"

	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/geo"
)

// Wire event names. Clients already speak these, misspelling included.
const (
	EventNewDelivery       = "new-delivery"
	EventDeliveryAccepted  = "delivery-accepted"
	EventDeliveryCancelled = "delivery-cancelled"
	EventDriverArrived     = "driver-arrived"
	EventDeliveryReceived  = "delivery-recieved"
	EventDeliveryStarted   = "delivery-started"
	EventDeliveryEnd       = "delivery-end"
	EventNewPosition       = "new-position"
	EventNewConflict       = "new-conflict"
	EventNewAssignment     = "new-assignment"
)

// Notice is the addressed payload the service puts on the fabric. Exactly
// one of To and Role is set for user or role delivery; both empty means a
// module-level signal with no socket recipient.
type Notice struct {
	To    string
	Role  domain.Role
	Event string
	Data  any
}

// DeliveryView is the client-facing projection of a delivery. The
// confirmation code is deliberately absent: only the requesting client
// receives it, in the request response.
type DeliveryView struct {
	ID          string                `json:"id"`
	Status      domain.DeliveryStatus `json:"status"`
	Departure   domain.Location       `json:"departure"`
	Destination domain.Location       `json:"destination"`
	Recipient   domain.RecipientInfo  `json:"recipientInfos"`
	ClientID    string                `json:"clientId"`
	DriverID    *string               `json:"driverId,omitempty"`
	RequestedAt time.Time             `json:"requestedAt"`
}

// NewDeliveryView builds the client-facing projection.
func NewDeliveryView(d *domain.Delivery) DeliveryView {
	return DeliveryView{
		ID:          d.ID,
		Status:      d.Status,
		Departure:   d.Departure,
		Destination: d.Destination,
		Recipient:   d.Recipient,
		ClientID:    d.ClientID,
		DriverID:    d.DriverID,
		RequestedAt: d.RequestedAt,
	}
}

// AcceptedPayload notifies the client who took their delivery.
type AcceptedPayload struct {
	DeliveryID string         `json:"deliveryId"`
	Driver     domain.Profile `json:"driver"`
}

// ConflictPayload is broadcast to every connected conflict manager.
type ConflictPayload struct {
	Type         string         `json:"type"`
	Reporter     domain.Profile `json:"reporter"`
	LastPosition geo.Point      `json:"lastPosition"`
	Delivery     DeliveryView   `json:"delivery"`
}

// PositionPayload relays a counterpart's fresh position.
type PositionPayload struct {
	UserID   string    `json:"userId"`
	Position geo.Point `json:"position"`
}
