package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/sirupsen/logrus"

	"github.com/TomasBirkner/hostly-backend/internal/logging"
	"github.com/TomasBirkner/hostly-backend/internal/storage/models"
)

// Failure stages reported by FeedError.
const (
	StageFetch  = "fetch"
	StageDecode = "decode"
)

// FeedError is the failure half of a FeedResult.
type FeedError struct {
	Stage string
	URL   string
	Err   error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, RedactURL(e.URL), e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// ReservationSource produces the reservation set for one property's feed.
type ReservationSource interface {
	Parse(ctx context.Context, feedURL, propertyID string) models.FeedResult
}

// FeedParser fetches a feed, decodes it and classifies every entry.
type FeedParser struct {
	source  FeedSource
	dialect *Dialect
}

// NewFeedParser creates a parser. A nil dialect means Airbnb.
func NewFeedParser(source FeedSource, dialect *Dialect) *FeedParser {
	if dialect == nil {
		dialect = Airbnb
	}
	return &FeedParser{source: source, dialect: dialect}
}

// Parse never panics or returns an untagged error: every fetch or decode
// problem comes back as a failed FeedResult carrying a *FeedError.
func (p *FeedParser) Parse(ctx context.Context, feedURL, propertyID string) (result models.FeedResult) {
	defer func() {
		if r := recover(); r != nil {
			result = models.FeedFailure(&FeedError{Stage: StageDecode, URL: feedURL, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	body, err := p.source.Fetch(ctx, feedURL)
	if err != nil {
		return models.FeedFailure(&FeedError{Stage: StageFetch, URL: feedURL, Err: err})
	}

	events, err := Decode(body)
	if err != nil {
		return models.FeedFailure(&FeedError{Stage: StageDecode, URL: feedURL, Err: err})
	}

	return models.FeedSuccess(p.Classify(propertyID, events))
}

// Classify applies the dialect to each event in order and drops repeated ids.
func (p *FeedParser) Classify(propertyID string, events []models.CalendarEvent) []models.Reservation {
	reservations := make([]models.Reservation, 0, len(events))
	seen := make(map[string]bool, len(events))

	for _, ev := range events {
		res, ok := p.dialect.Classify(propertyID, ev)
		if !ok {
			continue
		}
		if seen[res.ID] {
			logging.Logger.WithFields(logrus.Fields{
				"property_id":    propertyID,
				"reservation_id": res.ID,
			}).Warn("Dropping duplicate reservation id from feed")
			continue
		}
		seen[res.ID] = true
		reservations = append(reservations, res)
	}

	return reservations
}

const calendarHeader = "BEGIN:VCALENDAR"

// Decode parses an iCal document into raw entries in document order.
// Components other than VEVENT, VTODO and VJOURNAL are ignored. TEXT values
// arrive already unescaped by the decoder.
func Decode(body []byte) ([]models.CalendarEvent, error) {
	trimmed := bytes.TrimLeft(body, "\ufeff \t\r\n")
	if len(trimmed) < len(calendarHeader) || !bytes.EqualFold(trimmed[:len(calendarHeader)], []byte(calendarHeader)) {
		return nil, errors.New("document is not an iCalendar feed")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("parsing calendar: %w", err)
	}

	events := make([]models.CalendarEvent, 0, len(cal.Components))
	for _, comp := range cal.Components {
		switch c := comp.(type) {
		case *ical.VEvent:
			events = append(events, rawEvent(models.KindEvent, c.Properties))
		case *ical.VTodo:
			events = append(events, rawEvent(models.KindTodo, c.Properties))
		case *ical.VJournal:
			events = append(events, rawEvent(models.KindJournal, c.Properties))
		}
	}

	return events, nil
}

func rawEvent(kind models.EventKind, props []ical.IANAProperty) models.CalendarEvent {
	ev := models.CalendarEvent{Kind: kind}

	for _, prop := range props {
		switch strings.ToUpper(prop.IANAToken) {
		case string(ical.ComponentPropertyUniqueId):
			ev.UID = strings.TrimSpace(prop.Value)
		case string(ical.ComponentPropertySummary):
			ev.Summary = prop.Value
		case string(ical.ComponentPropertyDescription):
			ev.Description = prop.Value
		case string(ical.ComponentPropertyDtStart):
			ev.Start = parseDateTime(prop.Value, tzid(prop))
		case string(ical.ComponentPropertyDtEnd):
			ev.End = parseDateTime(prop.Value, tzid(prop))
		}
	}

	return ev
}

func tzid(prop ical.IANAProperty) string {
	if vals, ok := prop.ICalParameters["TZID"]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// parseDateTime parses DATE and DATE-TIME values. Floating and TZID times are
// read in the named zone, falling back to UTC. Unparsable values yield zero.
func parseDateTime(value, tz string) time.Time {
	value = strings.TrimSpace(value)

	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	formats := []string{
		"20060102T150405Z",
		"20060102T150405",
		"20060102",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	}

	for _, format := range formats {
		in := loc
		if strings.HasSuffix(format, "Z") {
			in = time.UTC
		}
		if t, err := time.ParseInLocation(format, value, in); err == nil {
			return t
		}
	}

	return time.Time{}
}
