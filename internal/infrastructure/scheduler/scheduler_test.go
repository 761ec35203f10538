package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/ridepilot/internal/pkg/logger"
)

type countingCache struct{ sweeps atomic.Int32 }

func (c *countingCache) Sweep() int {
	c.sweeps.Add(1)
	return 2
}

type recordingMemory struct {
	days []int
	err  error
}

func (m *recordingMemory) Sweep(_ context.Context, retentionDays int) (int64, error) {
	m.days = append(m.days, retentionDays)
	return 1, m.err
}

func TestScheduler_RunAll(t *testing.T) {
	s := New(logger.Nop())
	cache := &countingCache{}
	memory := &recordingMemory{}
	retention := 30

	require.NoError(t, s.ScheduleCacheSweep(time.Minute, cache))
	require.NoError(t, s.ScheduleMemorySweep(time.Hour, func() int { return retention }, memory))
	assert.Equal(t, 2, s.Jobs())

	s.RunAll()
	retention = 7
	s.RunAll()

	assert.Equal(t, int32(2), cache.sweeps.Load())
	assert.Equal(t, []int{30, 7}, memory.days, "retention is read on every run")
}

func TestScheduler_FailingSweepIsLogged(t *testing.T) {
	s := New(logger.Nop())
	memory := &recordingMemory{err: errors.New("disk full")}
	require.NoError(t, s.ScheduleMemorySweep(time.Hour, func() int { return 30 }, memory))
	assert.NotPanics(t, s.RunAll)
}

func TestScheduler_RejectsNonPositiveInterval(t *testing.T) {
	s := New(logger.Nop())
	assert.Error(t, s.ScheduleCacheSweep(0, &countingCache{}))
	assert.Equal(t, 0, s.Jobs())
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	s := New(logger.Nop())
	cache := &countingCache{}
	require.NoError(t, s.ScheduleCacheSweep(time.Second, cache))

	s.Start()
	assert.Eventually(t, func() bool { return cache.sweeps.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
