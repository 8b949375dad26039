package track

import (
	"context"
	"sync"
	"time"

	"github.com/faceaudit/faceaudit/internal/constants"
	"github.com/faceaudit/faceaudit/internal/logging"
	"github.com/faceaudit/faceaudit/internal/models"
)

// Fetcher fetches one status snapshot for a job.
type Fetcher interface {
	Status(ctx context.Context, jobID string) (*models.JobStatus, error)
}

// Result is one poll outcome. Gen identifies the polling run that produced
// it; consumers discard results whose generation is no longer current.
type Result struct {
	Gen    uint64
	JobID  string
	Status *models.JobStatus
	Err    error
}

// Poller runs at most one polling loop at a time. Each Start stops the
// previous loop and bumps the generation, so a response that was in flight
// when the target job changed can never be mistaken for a fresh one.
//
// The loop itself is single-flight: one goroutine issues an immediate fetch
// and then one fetch per tick, waiting for each response before the next
// request. A slow server stretches the interval instead of stacking
// requests.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *logging.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	done    chan struct{}
	results chan Result
}

// NewPoller creates a poller delivering results on a buffered channel.
func NewPoller(fetcher Fetcher, interval time.Duration, logger *logging.Logger) *Poller {
	if interval <= 0 {
		interval = constants.StatusPollInterval
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
		results:  make(chan Result, 16),
	}
}

// Results is the delivery channel. It stays open for the poller's lifetime;
// consumers filter by generation.
func (p *Poller) Results() <-chan Result {
	return p.results
}

// Start begins polling jobID, replacing any previous run. It returns the
// generation of the new run.
func (p *Poller) Start(ctx context.Context, jobID string) uint64 {
	p.mu.Lock()
	p.stopLocked()
	p.gen++
	gen := p.gen

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.run(runCtx, done, gen, jobID)
	return gen
}

// Stop halts the current polling run, if any, and waits for its goroutine
// to exit. Results already delivered remain in the channel; their
// generation marks them stale.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopLocked()
	p.mu.Unlock()
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}

// Active reports whether a polling run is in progress.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Generation returns the current generation. Results carrying an older
// value predate the latest Start and must be discarded.
func (p *Poller) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

func (p *Poller) run(ctx context.Context, done chan struct{}, gen uint64, jobID string) {
	defer close(done)

	p.logger.Debug().
		Str("job_id", jobID).
		Uint64("gen", gen).
		Msg("Polling started")

	// Immediate first fetch, then the ticker cadence.
	p.fetchOnce(ctx, gen, jobID)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().
				Str("job_id", jobID).
				Uint64("gen", gen).
				Msg("Polling stopped")
			return
		case <-ticker.C:
			p.fetchOnce(ctx, gen, jobID)
		}
	}
}

func (p *Poller) fetchOnce(ctx context.Context, gen uint64, jobID string) {
	status, err := p.fetcher.Status(ctx, jobID)
	if ctx.Err() != nil {
		// The run was stopped while the request was in flight; the
		// response belongs to a dead generation.
		return
	}

	select {
	case p.results <- Result{Gen: gen, JobID: jobID, Status: status, Err: err}:
	case <-ctx.Done():
	}
}
