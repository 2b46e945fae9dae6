package models

import (
	"encoding/json"
	"math"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day, stored as midnight UTC.
type Date struct {
	time.Time
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DaysUntil returns other - d rounded to the nearest whole day.
func (d Date) DaysUntil(other Date) int {
	return int(math.Round(other.Sub(d.Time).Hours() / 24))
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
