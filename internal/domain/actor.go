package domain

import (
	"regexp"
	"time"

	"service-dispatch-go/internal/geo"
)

// Actor represents a platform user: a requesting client, a driver, or a
// conflict manager.
type Actor struct {
	ID        string
	Role      Role
	FirstName string
	LastName  string
	Phone     string
	Avatar    string
	// Position is the last known location, nil until the first
	// position update. Not versioned - last write wins.
	Position  *geo.Point
	UpdatedAt time.Time
}

// Profile is the public projection of an actor shared with counterparts
// in notifications.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Avatar    string `json:"avatar,omitempty"`
}

// PublicProfile returns the notification-safe projection of the actor.
func (a *Actor) PublicProfile() Profile {
	return Profile{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Avatar:    a.Avatar,
	}
}

// LastPosition returns the last known location of the actor.
func (a *Actor) LastPosition() (geo.Point, bool) {
	if a.Position == nil {
		return geo.Point{}, false
	}
	return *a.Position, true
}

// PartialActorUpdate carries the optional fields of an actor update. Nil
// means "leave unchanged".
type PartialActorUpdate struct {
	ID        string
	FirstName *string
	LastName  *string
	Phone     *string
	Avatar    *string
}

// rePhone is a regex to validate phone numbers.
var rePhone = regexp.MustCompile(`^\+[0-9]{6,15}$`)

// ValidatePhone validates the phone number format.
func ValidatePhone(s string) bool {
	return rePhone.MatchString(s)
}
