package storage

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/TomasBirkner/hostly-backend/internal/storage/models"
)

// Registration is the input to PropertyStore.Register.
type Registration struct {
	PropertyID string `json:"propertyId" validate:"required"`
	Name       string `json:"name"`
	ICalURL    string `json:"icalUrl" validate:"required,https_url"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("https_url", func(fl validator.FieldLevel) bool {
		return IsHTTPSURL(fl.Field().String())
	})
	return v
}

// IsHTTPSURL reports whether raw is an absolute https URL with a host.
func IsHTTPSURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, "https") && u.Host != ""
}

// DefaultName is the display label given to properties registered without one.
func DefaultName(propertyID string) string {
	return "Property " + propertyID
}

// propertyEntry is an immutable snapshot. Updates swap the pointer in the map
// and never mutate a published entry.
type propertyEntry struct {
	name         string
	icalURL      string
	reservations []models.Reservation
	lastSynced   *time.Time
}

// PropertyStore is the volatile, synchronized map of managed properties.
//
// Writers hold the mutex only for the map update. Readers hold the read lock
// only long enough to copy an entry pointer, so a property's reservations and
// lastSynced are always observed together.
type PropertyStore struct {
	mu      sync.RWMutex
	entries map[string]*propertyEntry
	now     func() time.Time
}

// NewPropertyStore creates an empty store.
func NewPropertyStore() *PropertyStore {
	return &PropertyStore{
		entries: make(map[string]*propertyEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for lastSynced.
func (s *PropertyStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Register validates reg and inserts the property, or overwrites name and url of
// an existing one while keeping its reservations and lastSynced.
func (s *PropertyStore) Register(reg Registration) (models.Property, error) {
	reg.PropertyID = strings.TrimSpace(reg.PropertyID)
	reg.ICalURL = strings.TrimSpace(reg.ICalURL)
	reg.Name = strings.TrimSpace(reg.Name)

	if err := validateRegistration(reg); err != nil {
		return models.Property{}, err
	}
	if reg.Name == "" {
		reg.Name = DefaultName(reg.PropertyID)
	}

	s.mu.Lock()
	next := &propertyEntry{
		name:         reg.Name,
		icalURL:      reg.ICalURL,
		reservations: []models.Reservation{},
	}
	if prev, ok := s.entries[reg.PropertyID]; ok {
		next.reservations = prev.reservations
		next.lastSynced = prev.lastSynced
	}
	s.entries[reg.PropertyID] = next
	s.mu.Unlock()

	return snapshot(reg.PropertyID, next), nil
}

func validateRegistration(reg Registration) error {
	err := validate.Struct(reg)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := verrs[0]
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Message: "is required"}
	case "https_url":
		return &ValidationError{Field: field, Message: "must be an https URL"}
	default:
		return &ValidationError{Field: field, Message: "is invalid"}
	}
}

func jsonFieldName(structField string) string {
	switch structField {
	case "PropertyID":
		return "propertyId"
	case "ICalURL":
		return "icalUrl"
	default:
		return strings.ToLower(structField)
	}
}

// ApplySync records the outcome of a sync. A successful result replaces the
// reservation set and advances lastSynced in one step. A failed result leaves
// the property untouched and is returned as the error. Concurrent syncs of the
// same property resolve last-write-wins.
func (s *PropertyStore) ApplySync(propertyID string, result models.FeedResult) (models.Property, error) {
	if !result.OK() {
		prop, _ := s.Get(propertyID)
		return prop, result.Err
	}

	reservations := result.Reservations
	if reservations == nil {
		reservations = []models.Reservation{}
	}

	s.mu.Lock()
	prev, ok := s.entries[propertyID]
	if !ok {
		s.mu.Unlock()
		return models.Property{}, &NotFoundError{PropertyID: propertyID}
	}
	synced := s.now()
	next := &propertyEntry{
		name:         prev.name,
		icalURL:      prev.icalURL,
		reservations: reservations,
		lastSynced:   &synced,
	}
	s.entries[propertyID] = next
	s.mu.Unlock()

	return snapshot(propertyID, next), nil
}

// Remove deletes a property.
func (s *PropertyStore) Remove(propertyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[propertyID]; !ok {
		return &NotFoundError{PropertyID: propertyID}
	}
	delete(s.entries, propertyID)
	return nil
}

// ResetAll removes every property and returns how many were removed.
func (s *PropertyStore) ResetAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = make(map[string]*propertyEntry)
	return n
}

// Get returns a copy of one property.
func (s *PropertyStore) Get(propertyID string) (models.Property, error) {
	s.mu.RLock()
	entry, ok := s.entries[propertyID]
	s.mu.RUnlock()

	if !ok {
		return models.Property{}, &NotFoundError{PropertyID: propertyID}
	}
	return snapshot(propertyID, entry), nil
}

// List returns copies of all properties ordered by id.
func (s *PropertyStore) List() []models.Property {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	refs := make(map[string]*propertyEntry, len(s.entries))
	for id, entry := range s.entries {
		ids = append(ids, id)
		refs[id] = entry
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	out := make([]models.Property, 0, len(ids))
	for _, id := range ids {
		out = append(out, snapshot(id, refs[id]))
	}
	return out
}

// Len returns the number of registered properties.
func (s *PropertyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func snapshot(id string, e *propertyEntry) models.Property {
	reservations := make([]models.Reservation, len(e.reservations))
	copy(reservations, e.reservations)

	var lastSynced *time.Time
	if e.lastSynced != nil {
		t := *e.lastSynced
		lastSynced = &t
	}

	return models.Property{
		PropertyID:   id,
		Name:         e.name,
		ICalURL:      e.icalURL,
		Reservations: reservations,
		LastSynced:   lastSynced,
	}
}
