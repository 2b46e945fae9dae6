// Package api provides HTTP routing for the REST API.
package api

import (
	"github.com/gorilla/mux"

	"github.com/TomasBirkner/hostly-backend/internal/api/handlers"
	"github.com/TomasBirkner/hostly-backend/internal/api/middleware"
	"github.com/TomasBirkner/hostly-backend/internal/calendar"
	"github.com/TomasBirkner/hostly-backend/internal/storage"
	"github.com/TomasBirkner/hostly-backend/internal/websocket"
)

// Services holds everything the handlers depend on. Scheduler, History, Hub
// and FeedCache are optional.
type Services struct {
	Store     *storage.PropertyStore
	Sync      *calendar.SyncService
	Scheduler *calendar.Scheduler
	History   *storage.HistoryRepository
	Hub       *websocket.Hub
	FeedCache handlers.FeedCache
	Version   string
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(svc Services) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	var broadcaster *websocket.EventBroadcaster
	if svc.Hub != nil {
		broadcaster = websocket.NewEventBroadcaster(svc.Hub)
	}

	api := r.PathPrefix("/api").Subrouter()

	// Health and status
	api.HandleFunc("/health", handlers.HealthCheck(svc.Version)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(svc.Store, svc.Scheduler, svc.History, svc.Hub, svc.Version)).Methods("GET")

	// Properties
	api.HandleFunc("/properties", handlers.ListProperties(svc.Store)).Methods("GET")
	api.HandleFunc("/properties", handlers.RegisterProperty(svc.Store, svc.Sync, broadcaster)).Methods("POST")
	api.HandleFunc("/properties/{propertyId}", handlers.GetProperty(svc.Store)).Methods("GET")
	api.HandleFunc("/properties/{propertyId}", handlers.RemoveProperty(svc.Store, svc.FeedCache, broadcaster)).Methods("DELETE")
	api.HandleFunc("/properties/{propertyId}/sync", handlers.SyncProperty(svc.Store, svc.Sync)).Methods("POST")

	// Reservations and sync
	api.HandleFunc("/reservations", handlers.ListReservations(svc.Store)).Methods("GET")
	api.HandleFunc("/sync", handlers.SyncAll(svc.Store, svc.Sync)).Methods("POST")
	api.HandleFunc("/reset", handlers.Reset(svc.Store, svc.FeedCache, broadcaster)).Methods("POST")
	if svc.History != nil {
		api.HandleFunc("/sync/history", handlers.SyncHistory(svc.History)).Methods("GET")
	}

	if svc.Hub != nil {
		api.HandleFunc("/ws", handlers.WebSocketUpgrade(svc.Hub)).Methods("GET")
	}

	return r
}
