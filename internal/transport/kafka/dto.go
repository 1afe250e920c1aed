package kafka

import (
	"strings"
	"time"

	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/service/intake"
)

// EventDTO is the wire shape of an order event on the intake topic.
type EventDTO struct {
	OrderID     string               `json:"order_id"`
	Status      string               `json:"status"`
	ClientID    string               `json:"client_id"`
	Departure   domain.Location      `json:"departure"`
	Destination domain.Location      `json:"destination"`
	Recipient   domain.RecipientInfo `json:"recipient"`
	CreatedAt   time.Time            `json:"created_at"`
}

// ToDomain converts EventDTO to intake.Event.
func ToDomain(dto EventDTO) intake.Event {
	return intake.Event{
		OrderID:     strings.TrimSpace(dto.OrderID),
		Status:      strings.TrimSpace(dto.Status),
		ClientID:    strings.TrimSpace(dto.ClientID),
		Departure:   dto.Departure,
		Destination: dto.Destination,
		Recipient:   dto.Recipient,
		CreatedAt:   dto.CreatedAt,
	}
}
