package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomasBirkner/hostly-backend/internal/storage"
	"github.com/TomasBirkner/hostly-backend/internal/storage/models"
)

// stubSource returns canned results keyed by feed URL.
type stubSource struct {
	mu      sync.Mutex
	results map[string]models.FeedResult
	calls   atomic.Int32
}

func newStubSource() *stubSource {
	return &stubSource{results: make(map[string]models.FeedResult)}
}

func (s *stubSource) set(url string, result models.FeedResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[url] = result
}

func (s *stubSource) Parse(_ context.Context, feedURL, _ string) models.FeedResult {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.results[feedURL]; ok {
		return r
	}
	return models.FeedFailure(&FeedError{Stage: StageFetch, URL: feedURL, Err: errors.New("no stub")})
}

func stays(propertyID string, n int) []models.Reservation {
	out := make([]models.Reservation, n)
	base := models.DateOf(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	for i := range out {
		in := models.Date{Time: base.AddDate(0, 0, i*3)}
		out[i] = models.Reservation{
			ID:         fmt.Sprintf("%s-%d", propertyID, i),
			PropertyID: propertyID,
			GuestName:  "Guest",
			CheckIn:    in,
			CheckOut:   models.Date{Time: in.AddDate(0, 0, 2)},
			Nights:     2,
			Source:     "airbnb",
		}
	}
	return out
}

func stubURL(id string) string {
	return "https://example.com/" + id + ".ics"
}

func newTestSync(t *testing.T, ids ...string) (*SyncService, *storage.PropertyStore, *stubSource, *storage.HistoryRepository) {
	t.Helper()

	db, err := storage.NewDB(storage.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db))
	history := storage.NewHistoryRepository(db, 100)

	store := storage.NewPropertyStore()
	for _, id := range ids {
		_, err := store.Register(storage.Registration{PropertyID: id, ICalURL: stubURL(id)})
		require.NoError(t, err)
	}

	source := newStubSource()
	return NewSyncService(store, source, history, nil, 2), store, source, history
}

func TestSyncPropertySuccess(t *testing.T) {
	svc, store, source, history := newTestSync(t, "p1")
	source.set(stubURL("p1"), models.FeedSuccess(stays("p1", 3)))

	outcome, err := svc.SyncProperty(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 3, outcome.ReservationCount)
	require.NotNil(t, outcome.LastSynced)

	prop, err := store.Get("p1")
	require.NoError(t, err)
	assert.Len(t, prop.Reservations, 3)

	recorded, err := history.ListRecent(context.Background(), "p1", 10)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.True(t, recorded[0].Success)
}

func TestSyncPropertyUnknown(t *testing.T) {
	svc, _, source, _ := newTestSync(t)

	outcome, err := svc.SyncProperty(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.False(t, outcome.Success)
	assert.Zero(t, source.calls.Load())
}

func TestSyncAllIsolatesFailures(t *testing.T) {
	svc, store, source, history := newTestSync(t, "p1", "p2", "p3")
	for _, id := range []string{"p1", "p2", "p3"} {
		source.set(stubURL(id), models.FeedSuccess(stays(id, 2)))
	}
	svc.SyncAll(context.Background())

	before, err := store.Get("p2")
	require.NoError(t, err)

	source.set(stubURL("p1"), models.FeedSuccess(stays("p1", 5)))
	source.set(stubURL("p2"), models.FeedFailure(&FeedError{Stage: StageFetch, URL: stubURL("p2"), Err: errors.New("calendar returned status 503")}))
	source.set(stubURL("p3"), models.FeedSuccess(nil))

	outcomes := svc.SyncAll(context.Background())
	require.Len(t, outcomes, 3)

	assert.Equal(t, "p1", outcomes[0].PropertyID)
	assert.True(t, outcomes[0].Success)
	assert.Equal(t, 5, outcomes[0].ReservationCount)

	assert.Equal(t, "p2", outcomes[1].PropertyID)
	assert.False(t, outcomes[1].Success)
	assert.Contains(t, outcomes[1].Error, "503")
	assert.Equal(t, 2, outcomes[1].ReservationCount)

	assert.True(t, outcomes[2].Success)
	assert.Zero(t, outcomes[2].ReservationCount)

	after, err := store.Get("p2")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	p3, err := store.Get("p3")
	require.NoError(t, err)
	assert.Empty(t, p3.Reservations)

	count, err := history.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestSyncAllEmptyStore(t *testing.T) {
	svc, _, _, _ := newTestSync(t)
	assert.Empty(t, svc.SyncAll(context.Background()))
}

func TestSyncAfterRemovalReportsNotFound(t *testing.T) {
	svc, store, source, _ := newTestSync(t, "p1")
	source.set(stubURL("p1"), models.FeedSuccess(stays("p1", 1)))

	prop, err := store.Get("p1")
	require.NoError(t, err)
	require.NoError(t, store.Remove("p1"))

	outcome, err := svc.sync(context.Background(), prop)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.False(t, outcome.Success)
	assert.Equal(t, 0, store.Len())
}

func TestConcurrentSyncsOfSameProperty(t *testing.T) {
	svc, store, source, _ := newTestSync(t, "p1")
	source.set(stubURL("p1"), models.FeedSuccess(stays("p1", 4)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.SyncProperty(context.Background(), "p1")
		}()
	}
	wg.Wait()

	prop, err := store.Get("p1")
	require.NoError(t, err)
	assert.Len(t, prop.Reservations, 4)
}
