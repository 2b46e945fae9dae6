package calendar

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TomasBirkner/hostly-backend/internal/storage/models"
)

// reservationNamespace seeds synthesized reservation ids.
var reservationNamespace = uuid.MustParse("6b7c2f0e-1f4a-5d8e-9a3b-4c2d1e0f9a8b")

// Field names a free-text field of a calendar event.
type Field string

const (
	FieldSummary     Field = "summary"
	FieldDescription Field = "description"
)

// BlackoutRule marks an event as a blackout when its summary contains Contains
// and, if Unless is set, does not contain Unless. Matching is case-insensitive.
type BlackoutRule struct {
	Contains string
	Unless   string
}

// Matches reports whether the rule applies to summary.
func (r BlackoutRule) Matches(summary string) bool {
	s := strings.ToLower(summary)
	if !strings.Contains(s, strings.ToLower(r.Contains)) {
		return false
	}
	return r.Unless == "" || !strings.Contains(s, strings.ToLower(r.Unless))
}

// GuestPattern extracts a guest name from Field using the first capture group.
type GuestPattern struct {
	Field   Field
	Pattern *regexp.Regexp
}

// Dialect describes one platform's SUMMARY/DESCRIPTION conventions.
type Dialect struct {
	Source        string
	BlackoutRules []BlackoutRule
	GuestPatterns []GuestPattern
	FallbackGuest string
}

// Airbnb reuses one calendar for bookings and owner-blocked dates. Bookings
// read "Reserved - <guest or code>", blocks read "Airbnb (Not available)".
var Airbnb = &Dialect{
	Source: "airbnb",
	BlackoutRules: []BlackoutRule{
		{Contains: "not available"},
		{Contains: "airbnb", Unless: "reserved"},
	},
	GuestPatterns: []GuestPattern{
		{Field: FieldSummary, Pattern: regexp.MustCompile(`(?i)reserved[ \t]*[-–][ \t]*(.+)`)},
		{Field: FieldDescription, Pattern: regexp.MustCompile(`(?i)(?:guest|name):[ \t]*(.+)`)},
	},
	FallbackGuest: "Airbnb Guest",
}

// IsBlackout reports whether any rule marks summary as non-bookable.
func (d *Dialect) IsBlackout(summary string) bool {
	for _, rule := range d.BlackoutRules {
		if rule.Matches(summary) {
			return true
		}
	}
	return false
}

// GuestName returns the first non-empty pattern match, or the fallback label.
func (d *Dialect) GuestName(ev models.CalendarEvent) string {
	for _, gp := range d.GuestPatterns {
		text := ev.Summary
		if gp.Field == FieldDescription {
			text = ev.Description
		}
		m := gp.Pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}
	return d.FallbackGuest
}

// Classify turns one raw event into a reservation. It returns false for
// ineligible components, blackouts, events without start or end, and events
// spanning less than one night.
func (d *Dialect) Classify(propertyID string, ev models.CalendarEvent) (models.Reservation, bool) {
	if ev.Kind != models.KindEvent {
		return models.Reservation{}, false
	}
	if d.IsBlackout(ev.Summary) {
		return models.Reservation{}, false
	}
	if ev.Start.IsZero() || ev.End.IsZero() {
		return models.Reservation{}, false
	}

	checkIn := models.DateOf(ev.Start)
	checkOut := models.DateOf(ev.End)
	nights := checkIn.DaysUntil(checkOut)
	if nights < 1 {
		return models.Reservation{}, false
	}

	return models.Reservation{
		ID:         reservationID(propertyID, ev),
		PropertyID: propertyID,
		GuestName:  d.GuestName(ev),
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Nights:     nights,
		Total:      0,
		Source:     d.Source,
		Summary:    ev.Summary,
	}, true
}

func reservationID(propertyID string, ev models.CalendarEvent) string {
	if uid := strings.TrimSpace(ev.UID); uid != "" {
		return uid
	}
	key := propertyID + "|" + ev.Start.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(reservationNamespace, []byte(key)).String()
}
