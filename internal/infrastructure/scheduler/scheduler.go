// Package scheduler runs the periodic cache and interaction sweeps.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/doeshing/ridepilot/internal/ports"
)

const sweepTimeout = time.Minute

// CacheSweeper evicts expired cache entries.
type CacheSweeper interface {
	Sweep() int
}

// MemorySweeper deletes interactions older than the retention window.
type MemorySweeper interface {
	Sweep(ctx context.Context, retentionDays int) (int64, error)
}

// Scheduler wraps a cron runner. Jobs never overlap with themselves and a
// panicking job is logged instead of killing the process.
type Scheduler struct {
	cron *cron.Cron
	log  ports.Logger
}

// New builds a stopped scheduler.
func New(log ports.Logger) *Scheduler {
	adapter := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(adapter),
			cron.SkipIfStillRunning(adapter),
		)),
		log: log,
	}
}

// ScheduleCacheSweep evicts expired results every interval.
func (s *Scheduler) ScheduleCacheSweep(interval time.Duration, cache CacheSweeper) error {
	return s.every("cache sweep", interval, func() {
		if n := cache.Sweep(); n > 0 {
			s.log.Debug("cache sweep", map[string]interface{}{"evicted": n})
		}
	})
}

// ScheduleMemorySweep prunes interactions every interval. retentionDays is
// read on each run so config reloads apply without rescheduling.
func (s *Scheduler) ScheduleMemorySweep(interval time.Duration, retentionDays func() int, memory MemorySweeper) error {
	return s.every("memory sweep", interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		days := retentionDays()
		n, err := memory.Sweep(ctx, days)
		if err != nil {
			s.log.Error("memory sweep failed", err, map[string]interface{}{"retention_days": days})
			return
		}
		s.log.Info("memory sweep", map[string]interface{}{"deleted": n, "retention_days": days})
	})
}

func (s *Scheduler) every(name string, interval time.Duration, job func()) error {
	if interval <= 0 {
		return fmt.Errorf("%s: interval must be positive, got %s", name, interval)
	}
	if _, err := s.cron.AddFunc("@every "+interval.String(), job); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs, or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunAll runs every scheduled job once, synchronously.
func (s *Scheduler) RunAll() {
	for _, entry := range s.cron.Entries() {
		entry.WrappedJob.Run()
	}
}

// Jobs reports how many jobs are scheduled.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// cronLogger adapts ports.Logger to cron.Logger.
type cronLogger struct {
	log ports.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, pairs(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, err, pairs(keysAndValues))
}

func pairs(kv []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
