package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/TomasBirkner/hostly-backend/internal/api/middleware"
	"github.com/TomasBirkner/hostly-backend/internal/calendar"
	"github.com/TomasBirkner/hostly-backend/internal/storage"
	"github.com/TomasBirkner/hostly-backend/internal/storage/models"
	"github.com/TomasBirkner/hostly-backend/internal/websocket"
)

// FeedCache is implemented by fetchers that keep per-URL copies of feeds.
type FeedCache interface {
	Forget(feedURL string)
}

// RegisterPropertyRequest is the body of POST /api/properties.
type RegisterPropertyRequest struct {
	PropertyID string `json:"propertyId"`
	Name       string `json:"name"`
	ICalURL    string `json:"icalUrl"`
}

// RegisterPropertyResponse is returned after the initial sync succeeds.
type RegisterPropertyResponse struct {
	Success          bool       `json:"success"`
	PropertyID       string     `json:"propertyId"`
	Name             string     `json:"name"`
	ReservationCount int        `json:"reservationCount"`
	LastSynced       *time.Time `json:"lastSynced"`
}

// PropertySummary is one entry of GET /api/properties.
type PropertySummary struct {
	PropertyID       string     `json:"propertyId"`
	Name             string     `json:"name"`
	ICalURL          string     `json:"icalUrl"`
	ReservationCount int        `json:"reservationCount"`
	LastSynced       *time.Time `json:"lastSynced"`
}

// ListPropertiesResponse is the body of GET /api/properties.
type ListPropertiesResponse struct {
	Properties []PropertySummary `json:"properties"`
}

// MessageResponse is a success acknowledgement with a human-readable message.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RegisterProperty adds or updates a property and syncs it immediately. When
// the first sync fails the property stays registered and the feed error is
// reported.
func RegisterProperty(
	store *storage.PropertyStore,
	syncService *calendar.SyncService,
	broadcaster *websocket.EventBroadcaster,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterPropertyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		prop, err := store.Register(storage.Registration{
			PropertyID: req.PropertyID,
			Name:       req.Name,
			ICalURL:    req.ICalURL,
		})
		if err != nil {
			middleware.WriteServiceError(w, err)
			return
		}
		if broadcaster != nil {
			broadcaster.BroadcastPropertyRegistered(prop)
		}

		outcome, err := syncService.SyncProperty(r.Context(), prop.PropertyID)
		if err != nil {
			middleware.WriteServiceError(w, err)
			return
		}

		middleware.WriteJSON(w, http.StatusCreated, RegisterPropertyResponse{
			Success:          true,
			PropertyID:       outcome.PropertyID,
			Name:             outcome.Name,
			ReservationCount: outcome.ReservationCount,
			LastSynced:       outcome.LastSynced,
		})
	}
}

// ListProperties returns every registered property without reservations.
func ListProperties(store *storage.PropertyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		props := store.List()
		resp := ListPropertiesResponse{Properties: make([]PropertySummary, 0, len(props))}
		for _, p := range props {
			resp.Properties = append(resp.Properties, PropertySummary{
				PropertyID:       p.PropertyID,
				Name:             p.Name,
				ICalURL:          p.ICalURL,
				ReservationCount: len(p.Reservations),
				LastSynced:       p.LastSynced,
			})
		}
		middleware.WriteJSON(w, http.StatusOK, resp)
	}
}

// GetProperty returns one property with its reservations.
func GetProperty(store *storage.PropertyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prop, err := store.Get(mux.Vars(r)["propertyId"])
		if err != nil {
			middleware.WriteServiceError(w, err)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, prop)
	}
}

// RemoveProperty deletes a property and its cached data. cache and
// broadcaster may be nil.
func RemoveProperty(
	store *storage.PropertyStore,
	cache FeedCache,
	broadcaster *websocket.EventBroadcaster,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["propertyId"]

		prop, err := store.Get(id)
		if err != nil {
			middleware.WriteServiceError(w, err)
			return
		}
		if err := store.Remove(id); err != nil {
			middleware.WriteServiceError(w, err)
			return
		}
		if cache != nil {
			cache.Forget(prop.ICalURL)
		}
		if broadcaster != nil {
			broadcaster.BroadcastPropertyRemoved(id)
		}

		middleware.WriteJSON(w, http.StatusOK, MessageResponse{
			Success: true,
			Message: fmt.Sprintf("Property %s removed", id),
		})
	}
}

// SyncProperty re-syncs one property on demand.
func SyncProperty(store *storage.PropertyStore, syncService *calendar.SyncService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["propertyId"]

		outcome, err := syncService.SyncProperty(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			middleware.WriteServiceError(w, err)
			return
		}

		// The property may have been removed while its feed was in flight.
		prop, err := store.Get(id)
		if err != nil {
			middleware.WriteServiceError(w, err)
			return
		}

		middleware.WriteJSON(w, http.StatusOK, newSyncResponse(
			[]models.SyncStatus{prop.Status()},
			[]models.SyncOutcome{outcome},
		))
	}
}
