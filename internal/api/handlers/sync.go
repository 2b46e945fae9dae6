package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/TomasBirkner/hostly-backend/internal/api/middleware"
	"github.com/TomasBirkner/hostly-backend/internal/calendar"
	"github.com/TomasBirkner/hostly-backend/internal/storage"
	"github.com/TomasBirkner/hostly-backend/internal/storage/models"
	"github.com/TomasBirkner/hostly-backend/internal/websocket"
)

const (
	defaultHistoryPage = 50
	maxHistoryPage     = 500
)

// SyncError names a property whose sync failed.
type SyncError struct {
	PropertyID string `json:"propertyId"`
	Error      string `json:"error"`
}

// SyncResponse is the body of the manual sync endpoints. Success is true when
// the sync ran; per-property failures are listed in Errors.
type SyncResponse struct {
	Success    bool                `json:"success"`
	SyncStatus []models.SyncStatus `json:"syncStatus"`
	Errors     []SyncError         `json:"errors,omitempty"`
}

func newSyncResponse(statuses []models.SyncStatus, outcomes []models.SyncOutcome) SyncResponse {
	resp := SyncResponse{Success: true, SyncStatus: statuses}
	for _, o := range outcomes {
		if !o.Success {
			resp.Errors = append(resp.Errors, SyncError{PropertyID: o.PropertyID, Error: o.Error})
		}
	}
	return resp
}

// HistoryResponse is the body of GET /api/sync/history.
type HistoryResponse struct {
	History []models.SyncOutcome `json:"history"`
}

// SyncAll re-syncs every property and returns the resulting sync status.
func SyncAll(store *storage.PropertyStore, syncService *calendar.SyncService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcomes := syncService.SyncAll(r.Context())

		props := store.List()
		statuses := make([]models.SyncStatus, 0, len(props))
		for _, p := range props {
			statuses = append(statuses, p.Status())
		}

		middleware.WriteJSON(w, http.StatusOK, newSyncResponse(statuses, outcomes))
	}
}

// Reset removes every property. cache and broadcaster may be nil.
func Reset(
	store *storage.PropertyStore,
	cache FeedCache,
	broadcaster *websocket.EventBroadcaster,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		props := store.List()
		removed := store.ResetAll()

		if cache != nil {
			for _, p := range props {
				cache.Forget(p.ICalURL)
			}
		}
		if broadcaster != nil {
			broadcaster.BroadcastStoreReset(removed)
		}

		middleware.WriteJSON(w, http.StatusOK, MessageResponse{
			Success: true,
			Message: fmt.Sprintf("Reset complete, %d properties removed", removed),
		})
	}
}

// SyncHistory returns recent sync outcomes, newest first.
func SyncHistory(history *storage.HistoryRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit := defaultHistoryPage
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxHistoryPage)
		}

		entries, err := history.ListRecent(r.Context(), strings.TrimSpace(q.Get("propertyId")), limit)
		if err != nil {
			middleware.WriteServiceError(w, err)
			return
		}
		if entries == nil {
			entries = []models.SyncOutcome{}
		}

		middleware.WriteJSON(w, http.StatusOK, HistoryResponse{History: entries})
	}
}
