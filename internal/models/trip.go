package models

import "time"

// Trip is the inbound shape for both ledgers (driver-offered and
// passenger-requested trips share one structure, stored in disjoint tables).
type Trip struct {
	ID             int       `json:"id"`
	UserID         int       `json:"userid"`
	PickupLocation string    `json:"pickupLocation"`
	Destination    string    `json:"destination"`
	Price          float64   `json:"price"`
	DepartureTime  time.Time `json:"departureTime"`
}

// TripView is a trip joined with its owner for read endpoints.
// Price is rendered by the repository with exactly two decimal places.
type TripView struct {
	ID             int       `json:"id"`
	Username       string    `json:"username"`
	UserID         int       `json:"userid"`
	Phone          string    `json:"phone,omitempty"`
	PickupLocation string    `json:"pickupLocation"`
	Destination    string    `json:"destination"`
	Price          string    `json:"price"`
	DepartureTime  time.Time `json:"departureTime"`
}
