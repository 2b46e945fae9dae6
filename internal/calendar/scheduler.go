package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/TomasBirkner/hostly-backend/internal/logging"
)

// DefaultSyncSpec fires at minute zero of every hour.
const DefaultSyncSpec = "0 * * * *"

// Scheduler runs SyncAll on a fixed wall-clock cadence. Ticks are not skipped
// while a previous run is still in flight; overlapping runs only repeat work.
type Scheduler struct {
	cron        *cron.Cron
	syncService *SyncService
	spec        string

	mu      sync.RWMutex
	entryID cron.EntryID
	started bool
}

// NewScheduler creates a scheduler for the standard 5-field cron spec.
func NewScheduler(syncService *SyncService, spec string) *Scheduler {
	if spec == "" {
		spec = DefaultSyncSpec
	}

	return &Scheduler{
		cron:        cron.New(cron.WithLogger(cron.PrintfLogger(logging.Logger))),
		syncService: syncService,
		spec:        spec,
	}
}

// Start registers the sync job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.entryID == 0 {
		id, err := s.cron.AddFunc(s.spec, s.runAll)
		if err != nil {
			return fmt.Errorf("invalid sync schedule %q: %w", s.spec, err)
		}
		s.entryID = id
	}
	s.started = true
	s.cron.Start()

	logging.Logger.WithField("schedule", s.spec).Info("Calendar sync scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.started = false
	logging.Logger.Info("Calendar sync scheduler stopped")
}

// NextRun returns the next scheduled run, or nil before Start.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}

func (s *Scheduler) runAll() {
	logging.Logger.Info("Running scheduled calendar sync")
	s.syncService.SyncAll(context.Background())
}
