package handlers

import (
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/geo"
)

type driverDTO struct {
	ID        string     `json:"id"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Phone     string     `json:"phone"`
	Avatar    string     `json:"avatar,omitempty"`
	Position  *geo.Point `json:"position,omitempty"`
}

func driverToResponse(a domain.Actor) driverDTO {
	return driverDTO{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Avatar:    a.Avatar,
		Position:  a.Position,
	}
}

type createDriverRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Avatar    string `json:"avatar,omitempty"`
}

type updateDriverRequest struct {
	ID        string  `json:"id"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}

type listDriversResponse struct {
	Results       []driverDTO `json:"results"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
	Refreshed     bool        `json:"refreshed"`
}
