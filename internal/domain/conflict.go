package domain

import (
	"time"

	"service-dispatch-go/internal/geo"
)

// Conflict - an operator-escalated interruption of an in-progress
// delivery. At most one open conflict exists per delivery; it is created
// on report and closed by reassignment.
type Conflict struct {
	ID           string
	DeliveryID   string
	Type         string
	ReporterID   string
	LastLocation geo.Point
	// PriorStatus is the stage the delivery was in when reported;
	// reassignment resumes it.
	PriorStatus DeliveryStatus
	ReportedAt  time.Time
	ClosedAt    *time.Time
}

// Open reports whether the conflict still awaits reassignment.
func (c *Conflict) Open() bool {
	return c.ClosedAt == nil
}
