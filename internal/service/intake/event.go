package intake

import (
	"time"

	"service-dispatch-go/internal/domain"
)

// Event is a single order event read off the intake topic.
type Event struct {
	OrderID     string               `json:"order_id"`
	Status      string               `json:"status"`
	ClientID    string               `json:"client_id"`
	Departure   domain.Location      `json:"departure"`
	Destination domain.Location      `json:"destination"`
	Recipient   domain.RecipientInfo `json:"recipient"`
	CreatedAt   time.Time            `json:"created_at"`
}
