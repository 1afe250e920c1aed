package domain

import (
	"time"

	"service-dispatch-go/internal/geo"
)

type (
	// DeliveryStatus represents the lifecycle stage of a delivery.
	DeliveryStatus string
	// Role represents the role of an actor.
	Role string
)

// Location is a geopoint with its free-text address.
type Location struct {
	Address string    `json:"address"`
	Point   geo.Point `json:"point"`
}

// RecipientInfo describes who receives the package at the destination.
type RecipientInfo struct {
	Name        string   `json:"name"`
	Phone       string   `json:"phone"`
	OtherPhones []string `json:"otherPhones,omitempty"`
}

// Delivery - one client-requested transport task tracked through its
// lifecycle. DriverID is nil before acceptance and non-nil for every
// status from accepted onward; it is mutated exclusively by the dispatch
// service.
type Delivery struct {
	ID          string
	Status      DeliveryStatus
	Departure   Location
	Destination Location
	Recipient   RecipientInfo
	ClientID    string
	DriverID    *string
	Code        string
	RequestedAt time.Time
	UpdatedAt   time.Time
}

// AssignedTo reports whether the delivery is currently assigned to the
// given driver.
func (d *Delivery) AssignedTo(driverID string) bool {
	return d.DriverID != nil && *d.DriverID == driverID
}

// Involves reports whether the actor is the owning client or the
// assigned driver.
func (d *Delivery) Involves(actorID string) bool {
	return d.ClientID == actorID || d.AssignedTo(actorID)
}

// CounterpartOf returns the other party of an active delivery: the driver
// for the client and vice versa. ok is false when the actor is not
// involved or no driver is assigned yet.
func (d *Delivery) CounterpartOf(actorID string) (string, bool) {
	if d.DriverID == nil {
		return "", false
	}
	switch actorID {
	case d.ClientID:
		return *d.DriverID, true
	case *d.DriverID:
		return d.ClientID, true
	default:
		return "", false
	}
}
