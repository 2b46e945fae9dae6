package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomasBirkner/hostly-backend/internal/storage/models"
)

func feed(lines ...string) string {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//Airbnb Inc//Hosting Calendar 1.0//EN"}, lines...)
	all = append(all, "END:VCALENDAR")
	return strings.Join(all, "\r\n") + "\r\n"
}

var airbnbFeed = feed(
	"BEGIN:VEVENT",
	"DTSTAMP:20250601T120000Z",
	"DTSTART;VALUE=DATE:20250701",
	"DTEND;VALUE=DATE:20250705",
	"SUMMARY:Reserved - Jane Doe",
	"UID:1418fb94e984-a@airbnb.com",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"DTSTAMP:20250601T120000Z",
	"DTSTART;VALUE=DATE:20250710",
	"DTEND;VALUE=DATE:20250720",
	"SUMMARY:Airbnb (Not available)",
	"UID:1418fb94e984-b@airbnb.com",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"DTSTAMP:20250601T120000Z",
	"DTSTART;VALUE=DATE:20250801",
	"DTEND;VALUE=DATE:20250803",
	"SUMMARY:Reserved",
	"DESCRIPTION:Reservation URL: https://www.airbnb.com/hosting/reservations/details/HMABC\\nGuest: John Smith",
	"UID:1418fb94e984-c@airbnb.com",
	"END:VEVENT",
	"BEGIN:VTODO",
	"DTSTART:20250901T100000Z",
	"DUE:20250902T100000Z",
	"SUMMARY:Reserved - Todo",
	"UID:todo-1",
	"END:VTODO",
)

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestParser(srv *httptest.Server) *FeedParser {
	return NewFeedParser(NewFetcherWithClient(srv.Client()), nil)
}

func TestParseAirbnbFeed(t *testing.T) {
	srv := serveFeed(t, airbnbFeed)

	result := newTestParser(srv).Parse(context.Background(), srv.URL+"/calendar/ical/123.ics?s=secret", "p1")
	require.True(t, result.OK(), "unexpected failure: %v", result.Err)
	require.Len(t, result.Reservations, 2)

	jane := result.Reservations[0]
	assert.Equal(t, "1418fb94e984-a@airbnb.com", jane.ID)
	assert.Equal(t, "Jane Doe", jane.GuestName)
	assert.Equal(t, "2025-07-01", jane.CheckIn.String())
	assert.Equal(t, "2025-07-05", jane.CheckOut.String())
	assert.Equal(t, 4, jane.Nights)

	john := result.Reservations[1]
	assert.Equal(t, "John Smith", john.GuestName)
	assert.Equal(t, 2, john.Nights)
}

func TestParseIsDeterministic(t *testing.T) {
	srv := serveFeed(t, feed(
		"BEGIN:VEVENT",
		"DTSTART;VALUE=DATE:20250701",
		"DTEND;VALUE=DATE:20250703",
		"SUMMARY:Reserved - No Uid",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"DTSTART;VALUE=DATE:20250710",
		"DTEND;VALUE=DATE:20250712",
		"SUMMARY:Reserved - Doe\\, Jane",
		"UID:abc",
		"END:VEVENT",
	))
	parser := newTestParser(srv)

	first := parser.Parse(context.Background(), srv.URL, "p1")
	second := parser.Parse(context.Background(), srv.URL, "p1")
	require.True(t, first.OK())
	require.True(t, second.OK())

	a, err := json.Marshal(first.Reservations)
	require.NoError(t, err)
	b, err := json.Marshal(second.Reservations)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
	assert.Equal(t, "Doe, Jane", first.Reservations[1].GuestName)
}

func TestParseEmptyFeed(t *testing.T) {
	srv := serveFeed(t, feed())

	result := newTestParser(srv).Parse(context.Background(), srv.URL, "p1")
	require.True(t, result.OK())
	assert.NotNil(t, result.Reservations)
	assert.Empty(t, result.Reservations)
}

func TestParseDropsDuplicateIDs(t *testing.T) {
	srv := serveFeed(t, feed(
		"BEGIN:VEVENT",
		"DTSTART;VALUE=DATE:20250701",
		"DTEND;VALUE=DATE:20250703",
		"SUMMARY:Reserved - First",
		"UID:same",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"DTSTART;VALUE=DATE:20250801",
		"DTEND;VALUE=DATE:20250803",
		"SUMMARY:Reserved - Second",
		"UID:same",
		"END:VEVENT",
	))

	result := newTestParser(srv).Parse(context.Background(), srv.URL, "p1")
	require.True(t, result.OK())
	require.Len(t, result.Reservations, 1)
	assert.Equal(t, "First", result.Reservations[0].GuestName)
}

func TestParseFailures(t *testing.T) {
	notCalendar := serveFeed(t, "<html><body>Sign in</body></html>")

	missing := httptest.NewTLSServer(http.NotFoundHandler())
	t.Cleanup(missing.Close)

	closed := httptest.NewTLSServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name   string
		client *http.Client
		url    string
		stage  string
	}{
		{"not a calendar", notCalendar.Client(), notCalendar.URL, StageDecode},
		{"http status", missing.Client(), missing.URL + "/ical?s=token", StageFetch},
		{"unreachable", http.DefaultClient, closedURL, StageFetch},
		{"malformed url", http.DefaultClient, "https://exa mple.com/%zz", StageFetch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewFeedParser(NewFetcherWithClient(tt.client), nil)
			result := parser.Parse(context.Background(), tt.url, "p1")
			require.False(t, result.OK())
			assert.Nil(t, result.Reservations)

			var feedErr *FeedError
			require.True(t, errors.As(result.Err, &feedErr))
			assert.Equal(t, tt.stage, feedErr.Stage)
			assert.NotContains(t, result.Err.Error(), "token")
		})
	}
}

type panickySource struct{}

func (panickySource) Fetch(context.Context, string) ([]byte, error) {
	panic("boom")
}

func TestParseRecoversPanics(t *testing.T) {
	result := NewFeedParser(panickySource{}, nil).Parse(context.Background(), "https://example.com/x.ics", "p1")
	require.False(t, result.OK())
	assert.Contains(t, result.Err.Error(), "boom")
}

func TestDecodeComponentKinds(t *testing.T) {
	events, err := Decode([]byte("\ufeff" + airbnbFeed))
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, models.KindEvent, events[0].Kind)
	assert.Equal(t, models.KindTodo, events[3].Kind)
	assert.Equal(t, "Reserved - Todo", events[3].Summary)
}

func TestDecodeKeepsEscapedBackslashes(t *testing.T) {
	events, err := Decode([]byte(feed(
		"BEGIN:VEVENT",
		"DTSTART;VALUE=DATE:20250701",
		"DTEND;VALUE=DATE:20250703",
		`SUMMARY:Reserved - O\\,Brien\, Pat`,
		`DESCRIPTION:Path C:\\new\nGuest: Bob`,
		"UID:esc",
		"END:VEVENT",
	)))
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, "Path C:\\new\nGuest: Bob", events[0].Description)
	assert.Equal(t, `Reserved - O\,Brien, Pat`, events[0].Summary)
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"20250701", "2025-07-01T00:00:00Z"},
		{"20250701T150000Z", "2025-07-01T15:00:00Z"},
		{"20250701T150000", "2025-07-01T15:00:00Z"},
		{"2025-07-01", "2025-07-01T00:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got := parseDateTime(tt.value, "")
			assert.Equal(t, tt.want, got.Format("2006-01-02T15:04:05Z07:00"))
		})
	}

	assert.True(t, parseDateTime("not a date", "").IsZero())
}
