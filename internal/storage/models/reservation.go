package models

import "time"

// Reservation is one confirmed, bookable stay extracted from a feed.
type Reservation struct {
	ID         string  `json:"id"`
	PropertyID string  `json:"propertyId"`
	GuestName  string  `json:"guestName"`
	CheckIn    Date    `json:"checkIn"`
	CheckOut   Date    `json:"checkOut"`
	Nights     int     `json:"nights"`
	Total      float64 `json:"total"`
	Source     string  `json:"source"`
	Summary    string  `json:"summary"`
}

// Property is one managed listing and its most recent successful sync.
type Property struct {
	PropertyID   string        `json:"propertyId"`
	Name         string        `json:"name"`
	ICalURL      string        `json:"icalUrl"`
	Reservations []Reservation `json:"reservations"`
	LastSynced   *time.Time    `json:"lastSynced"`
}

// SyncStatus is the per-property summary exposed by the API.
type SyncStatus struct {
	PropertyID       string     `json:"propertyId"`
	Name             string     `json:"name"`
	LastSynced       *time.Time `json:"lastSynced"`
	ReservationCount int        `json:"reservationCount"`
}

// Status summarises the property's sync state.
func (p Property) Status() SyncStatus {
	return SyncStatus{
		PropertyID:       p.PropertyID,
		Name:             p.Name,
		LastSynced:       p.LastSynced,
		ReservationCount: len(p.Reservations),
	}
}

// SyncOutcome records the result of syncing one property.
type SyncOutcome struct {
	PropertyID       string     `json:"propertyId"`
	Name             string     `json:"name"`
	Success          bool       `json:"success"`
	ReservationCount int        `json:"reservationCount"`
	LastSynced       *time.Time `json:"lastSynced"`
	Error            string     `json:"error,omitempty"`
	StartedAt        time.Time  `json:"startedAt"`
	DurationMs       int64      `json:"durationMs"`
}
