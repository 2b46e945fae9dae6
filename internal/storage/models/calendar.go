// Package models contains the domain models for the application.
package models

import (
	"time"
)

// EventKind is the component type tag of a calendar entry.
type EventKind string

// Component tags the decoder distinguishes. Only KindEvent can become a reservation.
const (
	KindEvent   EventKind = "VEVENT"
	KindTodo    EventKind = "VTODO"
	KindJournal EventKind = "VJOURNAL"
)

// CalendarEvent is one raw entry decoded from an iCal feed, before classification.
// Start and End are zero when the entry does not carry them.
type CalendarEvent struct {
	Kind        EventKind `json:"kind"`
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}
