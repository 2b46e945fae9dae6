package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/TomasBirkner/hostly-backend/internal/logging"
	"github.com/TomasBirkner/hostly-backend/internal/storage"
	"github.com/TomasBirkner/hostly-backend/internal/storage/models"
	"github.com/TomasBirkner/hostly-backend/internal/websocket"
)

// DefaultSyncConcurrency bounds how many feeds SyncAll fetches at once.
const DefaultSyncConcurrency = 4

// SyncService re-parses property feeds and applies the results to the store.
//
// Properties are independent: a sync of one property never waits on another.
// Two syncs of the same property may overlap (scheduled and manual); the one
// that finishes last wins.
type SyncService struct {
	store       *storage.PropertyStore
	parser      ReservationSource
	history     *storage.HistoryRepository
	broadcaster *websocket.EventBroadcaster
	concurrency int
}

// NewSyncService creates a sync service. history and hub may be nil.
func NewSyncService(
	store *storage.PropertyStore,
	parser ReservationSource,
	history *storage.HistoryRepository,
	hub *websocket.Hub,
	concurrency int,
) *SyncService {
	if concurrency <= 0 {
		concurrency = DefaultSyncConcurrency
	}

	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &SyncService{
		store:       store,
		parser:      parser,
		history:     history,
		broadcaster: broadcaster,
		concurrency: concurrency,
	}
}

// SyncProperty syncs one property. The outcome is always populated; the error
// is a *storage.NotFoundError for an unknown id or the feed failure otherwise.
func (s *SyncService) SyncProperty(ctx context.Context, propertyID string) (models.SyncOutcome, error) {
	prop, err := s.store.Get(propertyID)
	if err != nil {
		return models.SyncOutcome{
			PropertyID: propertyID,
			Error:      err.Error(),
			StartedAt:  time.Now().UTC(),
		}, err
	}
	return s.sync(ctx, prop)
}

// SyncAll syncs every registered property. Each property's failure is captured
// in its own outcome and does not affect the others. Outcomes follow the
// store's id order.
func (s *SyncService) SyncAll(ctx context.Context) []models.SyncOutcome {
	props := s.store.List()
	outcomes := make([]models.SyncOutcome, len(props))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, prop := range props {
		i, prop := i, prop
		g.Go(func() error {
			outcomes[i], _ = s.sync(ctx, prop)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if !o.Success {
			failed++
		}
	}
	logging.Logger.WithFields(logrus.Fields{
		"properties": len(outcomes),
		"failed":     failed,
	}).Info("Sync of all properties completed")

	return outcomes
}

func (s *SyncService) sync(ctx context.Context, prop models.Property) (models.SyncOutcome, error) {
	started := time.Now().UTC()
	outcome := models.SyncOutcome{
		PropertyID: prop.PropertyID,
		Name:       prop.Name,
		StartedAt:  started,
	}

	result := s.parser.Parse(ctx, prop.ICalURL, prop.PropertyID)
	updated, err := s.store.ApplySync(prop.PropertyID, result)
	outcome.DurationMs = time.Since(started).Milliseconds()

	if err != nil {
		outcome.Error = err.Error()
		// Prior data stays; report what the store still holds.
		if !errors.Is(err, storage.ErrNotFound) {
			outcome.ReservationCount = len(updated.Reservations)
			outcome.LastSynced = updated.LastSynced
		}
	} else {
		outcome.Success = true
		outcome.Name = updated.Name
		outcome.ReservationCount = len(updated.Reservations)
		outcome.LastSynced = updated.LastSynced
	}

	s.report(ctx, outcome)
	return outcome, err
}

func (s *SyncService) report(ctx context.Context, outcome models.SyncOutcome) {
	entry := logging.Logger.WithFields(logrus.Fields{
		"property_id":  outcome.PropertyID,
		"reservations": outcome.ReservationCount,
		"duration_ms":  outcome.DurationMs,
	})
	if outcome.Success {
		entry.Info("Property sync completed")
	} else {
		entry.WithField("error", outcome.Error).Warn("Property sync failed")
	}

	if s.history != nil {
		if err := s.history.Record(context.WithoutCancel(ctx), outcome); err != nil {
			logging.Logger.WithError(err).Error("Failed to record sync history")
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastSyncOutcome(outcome)
	}
}
