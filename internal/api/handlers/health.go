// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"net/http"
	"time"

	"github.com/TomasBirkner/hostly-backend/internal/api/middleware"
	"github.com/TomasBirkner/hostly-backend/internal/calendar"
	"github.com/TomasBirkner/hostly-backend/internal/storage"
	"github.com/TomasBirkner/hostly-backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// HealthCheck reports that the process is serving.
func HealthCheck(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Message: "Hostly backend is running",
			Version: version,
		})
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	Properties       int        `json:"properties"`
	Reservations     int        `json:"reservations"`
	HistoryEntries   int        `json:"historyEntries"`
	WebsocketClients int        `json:"websocketClients"`
	NextSyncAt       *time.Time `json:"nextSyncAt"`
	Version          string     `json:"version"`
}

// Status returns counts and the next scheduled sync. scheduler, history and
// hub may be nil.
func Status(
	store *storage.PropertyStore,
	scheduler *calendar.Scheduler,
	history *storage.HistoryRepository,
	hub *websocket.Hub,
	version string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		props := store.List()
		resp := StatusResponse{Properties: len(props), Version: version}
		for _, p := range props {
			resp.Reservations += len(p.Reservations)
		}

		if scheduler != nil {
			resp.NextSyncAt = scheduler.NextRun()
		}
		if hub != nil {
			resp.WebsocketClients = hub.ClientCount()
		}
		if history != nil {
			n, err := history.Count(r.Context())
			if err != nil {
				middleware.WriteServiceError(w, err)
				return
			}
			resp.HistoryEntries = n
		}

		middleware.WriteJSON(w, http.StatusOK, resp)
	}
}
