package models

import "errors"

// errUnknownFailure stands in when a failure is reported without a cause.
var errUnknownFailure = errors.New("feed failed without a reported cause")

// FeedResult is the tagged outcome of parsing one property's feed. Exactly one
// of Reservations (possibly empty) or Err is meaningful: Err != nil marks a failure.
type FeedResult struct {
	Reservations []Reservation
	Err          error
}

// FeedSuccess wraps a parsed reservation set. A nil slice is normalised to empty.
func FeedSuccess(reservations []Reservation) FeedResult {
	if reservations == nil {
		reservations = []Reservation{}
	}
	return FeedResult{Reservations: reservations}
}

// FeedFailure wraps a fetch or decode error.
func FeedFailure(err error) FeedResult {
	if err == nil {
		err = errUnknownFailure
	}
	return FeedResult{Err: err}
}

// OK reports whether the result carries a reservation set.
func (r FeedResult) OK() bool {
	return r.Err == nil
}
