/*
scheduler.go - Automated status refresh scheduler

PURPOSE:
  Periodically resolves active/overdue/npa status for every account and
  persists changes, so accounts nobody opens still move to overdue and
  npa on time.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each run calls loan.Service.RefreshStatuses (parallel, bounded)
  - Closed accounts are terminal and never change
  - Logs counts per status after every run

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewStatusScheduler(svc, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerStatusRefresh endpoint (manual refresh)
  - engine/status.go: ResolveStatus
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/icl-engine/engine"
	"github.com/warp/icl-engine/loan"
	"go.uber.org/zap"
)

// refreshTimeout bounds one scheduled run.
const refreshTimeout = 5 * time.Minute

// StatusScheduler handles automated status refresh.
type StatusScheduler struct {
	Service       *loan.Service
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex

	runMu   sync.Mutex // guards lastRun
	lastRun time.Time
}

// NewStatusScheduler creates a new scheduler.
func NewStatusScheduler(svc *loan.Service, logger *zap.Logger) *StatusScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusScheduler{
		Service:       svc,
		Logger:        logger,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (ss *StatusScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		ss.Logger.Info("status scheduler disabled, not starting")
		return
	}
	if ss.ticker != nil {
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.stop = make(chan struct{})
	ss.wg.Add(1)

	go ss.run()

	ss.Logger.Info("status scheduler started", zap.Duration("interval", ss.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight run.
func (ss *StatusScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		ss.ticker = nil
		ss.Logger.Info("status scheduler stopped")
	}
}

func (ss *StatusScheduler) run() {
	defer ss.wg.Done()

	// Run immediately on start
	ss.RunNow()

	for {
		select {
		case <-ss.ticker.C:
			ss.RunNow()
		case <-ss.stop:
			return
		}
	}
}

// RunNow triggers an immediate refresh (for testing/admin).
func (ss *StatusScheduler) RunNow() map[engine.Status]int {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	counts, err := ss.Service.RefreshStatuses(ctx)
	if err != nil {
		ss.Logger.Error("status refresh failed", zap.Error(err))
		return nil
	}
	ss.runMu.Lock()
	ss.lastRun = start
	ss.runMu.Unlock()

	ss.Logger.Info("status refresh completed",
		zap.Int("active", counts[engine.StatusActive]),
		zap.Int("overdue", counts[engine.StatusOverdue]),
		zap.Int("npa", counts[engine.StatusNPA]),
		zap.Int("closed", counts[engine.StatusClosed]),
		zap.Duration("took", time.Since(start)),
	)
	return counts
}

// GetNextRunTime returns when the next scheduled check will occur.
func (ss *StatusScheduler) GetNextRunTime() time.Time {
	ss.runMu.Lock()
	defer ss.runMu.Unlock()
	if ss.lastRun.IsZero() {
		return time.Now()
	}
	return ss.lastRun.Add(ss.CheckInterval)
}
