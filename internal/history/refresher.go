// Package history maintains a periodically refreshed view of the server's
// job listing.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/faceaudit/faceaudit/internal/constants"
	"github.com/faceaudit/faceaudit/internal/logging"
	"github.com/faceaudit/faceaudit/internal/models"
)

// Lister fetches the job history from the server.
type Lister interface {
	ListJobs(ctx context.Context) ([]models.JobSummary, error)
}

// Refresher polls the jobs listing on a fixed cadence and keeps the last
// successful snapshot. A failed refresh never clobbers the view; the stale
// list stays until a fetch succeeds.
type Refresher struct {
	lister   Lister
	interval time.Duration
	logger   *logging.Logger

	mu        sync.Mutex
	jobs      []models.JobSummary
	fetchedAt time.Time
	updates   chan []models.JobSummary

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRefresher creates a refresher on the given cadence.
func NewRefresher(lister Lister, interval time.Duration, logger *logging.Logger) *Refresher {
	if interval <= 0 {
		interval = constants.HistoryRefreshInterval
	}
	return &Refresher{
		lister:   lister,
		interval: interval,
		logger:   logger,
		updates:  make(chan []models.JobSummary, 4),
		stopChan: make(chan struct{}),
	}
}

// Updates delivers each successful refresh. Slow consumers miss snapshots
// rather than stalling the loop.
func (r *Refresher) Updates() <-chan []models.JobSummary {
	return r.updates
}

// Snapshot returns the last successful listing and when it was fetched.
func (r *Refresher) Snapshot() ([]models.JobSummary, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]models.JobSummary, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs, r.fetchedAt
}

// RefreshNow fetches the listing once, updating the snapshot on success.
func (r *Refresher) RefreshNow(ctx context.Context) ([]models.JobSummary, error) {
	jobs, err := r.lister.ListJobs(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Job history refresh failed, keeping previous list")
		return nil, err
	}

	r.mu.Lock()
	r.jobs = jobs
	r.fetchedAt = time.Now()
	r.mu.Unlock()

	select {
	case r.updates <- jobs:
	default:
	}
	return jobs, nil
}

// Start launches the refresh loop with an immediate first fetch.
func (r *Refresher) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		r.RefreshNow(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			case <-ticker.C:
				r.RefreshNow(ctx)
			}
		}
	}()
}

// Stop halts the refresh loop and waits for it to exit.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}
