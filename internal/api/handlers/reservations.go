package handlers

import (
	"net/http"
	"strings"

	"github.com/TomasBirkner/hostly-backend/internal/api/middleware"
	"github.com/TomasBirkner/hostly-backend/internal/storage"
	"github.com/TomasBirkner/hostly-backend/internal/storage/models"
)

// ReservationsResponse is the body of GET /api/reservations.
type ReservationsResponse struct {
	Reservations    []models.Reservation `json:"reservations"`
	SyncStatus      []models.SyncStatus  `json:"syncStatus"`
	TotalProperties int                  `json:"totalProperties"`
}

// ListReservations returns the cached reservations of every property, or of
// one property when propertyId is given. syncStatus always covers all
// properties. An unknown propertyId yields an empty list.
func ListReservations(store *storage.PropertyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := strings.TrimSpace(r.URL.Query().Get("propertyId"))

		props := store.List()
		resp := ReservationsResponse{
			Reservations:    []models.Reservation{},
			SyncStatus:      make([]models.SyncStatus, 0, len(props)),
			TotalProperties: len(props),
		}

		for _, p := range props {
			resp.SyncStatus = append(resp.SyncStatus, p.Status())
			if filter == "" || p.PropertyID == filter {
				resp.Reservations = append(resp.Reservations, p.Reservations...)
			}
		}

		middleware.WriteJSON(w, http.StatusOK, resp)
	}
}
