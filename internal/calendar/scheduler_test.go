package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsHourlyOnTheHour(t *testing.T) {
	svc, _, _, _ := newTestSync(t)
	s := NewScheduler(svc, "")

	assert.Nil(t, s.NextRun())
	require.NoError(t, s.Start())
	defer s.Stop()

	next := s.NextRun()
	require.NotNil(t, next)
	assert.Zero(t, next.Minute())
	assert.Zero(t, next.Second())
	assert.True(t, next.After(time.Now()))
	assert.True(t, next.Before(time.Now().Add(time.Hour+time.Second)))
}

func TestSchedulerRejectsInvalidSpec(t *testing.T) {
	svc, _, _, _ := newTestSync(t)
	err := NewScheduler(svc, "every hour").Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sync schedule")
}
