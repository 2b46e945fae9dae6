package websocket

import (
	"github.com/TomasBirkner/hostly-backend/internal/logging"
	"github.com/TomasBirkner/hostly-backend/internal/storage/models"
)

// EventBroadcaster encodes domain events and hands them to the hub.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a broadcaster for hub.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastSyncOutcome sends property.sync_completed or property.sync_error.
func (b *EventBroadcaster) BroadcastSyncOutcome(outcome models.SyncOutcome) {
	if !outcome.Success {
		b.broadcast(NewMessage(TypePropertySyncError, SyncErrorPayload{
			PropertyID: outcome.PropertyID,
			Name:       outcome.Name,
			Error:      "sync_failed",
			Message:    outcome.Error,
		}))
		return
	}

	b.broadcast(NewMessage(TypePropertySyncCompleted, SyncPayload{
		PropertyID:       outcome.PropertyID,
		Name:             outcome.Name,
		ReservationCount: outcome.ReservationCount,
		LastSynced:       outcome.LastSynced,
		DurationMs:       outcome.DurationMs,
	}))
}

// BroadcastPropertyRegistered sends a property.registered event.
func (b *EventBroadcaster) BroadcastPropertyRegistered(prop models.Property) {
	b.broadcast(NewMessage(TypePropertyRegistered, PropertyPayload{
		PropertyID: prop.PropertyID,
		Name:       prop.Name,
	}))
}

// BroadcastPropertyRemoved sends a property.removed event.
func (b *EventBroadcaster) BroadcastPropertyRemoved(propertyID string) {
	b.broadcast(NewMessage(TypePropertyRemoved, PropertyPayload{PropertyID: propertyID}))
}

// BroadcastStoreReset sends a store.reset event.
func (b *EventBroadcaster) BroadcastStoreReset(removed int) {
	b.broadcast(NewMessage(TypeStoreReset, ResetPayload{Removed: removed}))
}

func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		logging.Logger.WithError(err).Error("Error encoding websocket message")
		return
	}

	b.hub.Broadcast(data)
}
