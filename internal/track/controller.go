package track

import (
	"context"
	"sync"
	"time"

	"github.com/faceaudit/faceaudit/internal/api"
	"github.com/faceaudit/faceaudit/internal/events"
	"github.com/faceaudit/faceaudit/internal/logging"
	"github.com/faceaudit/faceaudit/internal/models"
	"github.com/faceaudit/faceaudit/internal/render"
	"github.com/faceaudit/faceaudit/internal/session"
)

// API is the slice of the server client the controller drives.
type API interface {
	Fetcher
	Upload(ctx context.Context, filePath string, cfg models.UploadConfig) (string, error)
	Cancel(ctx context.Context, jobID string) error
}

// Notifier surfaces terminal outcomes outside the terminal. The no-op
// implementation is used when desktop notifications are disabled.
type Notifier interface {
	JobCompleted(displayName, summary string)
	JobFailed(displayName, message string)
	SessionExpired(displayName string)
}

// NoopNotifier discards all notifications.
type NoopNotifier struct{}

func (NoopNotifier) JobCompleted(string, string) {}
func (NoopNotifier) JobFailed(string, string)    {}
func (NoopNotifier) SessionExpired(string)       {}

// Controller runs the job lifecycle. All mutation funnels through apply,
// which feeds the pure machine and then executes the returned actions, so
// state, session record, and poller can never disagree.
type Controller struct {
	client   API
	store    *session.Store
	poller   *Poller
	bus      *events.EventBus
	notifier Notifier
	logger   *logging.Logger

	mu          sync.Mutex
	state       State
	jobID       string
	displayName string
	gen         uint64
	lastStatus  *models.JobStatus
	pollCtx     context.Context
}

// NewController creates an idle controller.
func NewController(client API, store *session.Store, poller *Poller, bus *events.EventBus, notifier Notifier, logger *logging.Logger) *Controller {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Controller{
		client:   client,
		store:    store,
		poller:   poller,
		bus:      bus,
		notifier: notifier,
		logger:   logger,
		state:    StateIdle,
		pollCtx:  context.Background(),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// JobID returns the tracked job id, empty when idle.
func (c *Controller) JobID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobID
}

// DisplayName returns the tracked job's original filename.
func (c *Controller) DisplayName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayName
}

// LastStatus returns the most recent accepted status snapshot.
func (c *Controller) LastStatus() *models.JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}

// Restore resumes tracking from the durable session record. It returns
// true when a session was found and polling started.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	rec, err := c.store.Load()
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	c.mu.Lock()
	c.jobID = rec.JobID
	c.displayName = rec.DisplayName
	c.pollCtx = ctx
	c.applyLocked(Input{Kind: EvSessionRestored, JobID: rec.JobID})
	c.mu.Unlock()

	c.logger.Info().
		Str("job_id", rec.JobID).
		Str("file", rec.DisplayName).
		Msg("Session restored")
	return true, nil
}

// Submit uploads a CSV file and starts tracking the accepted job. On
// rejection the controller returns to idle and the error carries the
// server's message.
func (c *Controller) Submit(ctx context.Context, filePath, displayName string, cfg models.UploadConfig) (string, error) {
	c.mu.Lock()
	if c.state != StateIdle && !c.state.Terminal() {
		c.mu.Unlock()
		return "", &api.SubmissionError{Message: "a job is already being tracked; cancel or reset first"}
	}
	c.applyLocked(Input{Kind: EvSubmitStarted})
	c.mu.Unlock()

	jobID, err := c.client.Upload(ctx, filePath, cfg)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.applyLocked(Input{Kind: EvSubmitRejected, Err: err})
		return "", err
	}

	c.jobID = jobID
	c.displayName = displayName
	c.pollCtx = ctx
	c.applyLocked(Input{Kind: EvSubmitAccepted, JobID: jobID})
	return jobID, nil
}

// Cancel asks the server to stop the tracked job. An accepted cancel
// returns the tracker to idle; a rejected one resumes polling.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StatePolling {
		c.mu.Unlock()
		return api.ErrNoActiveSession
	}
	jobID := c.jobID
	c.applyLocked(Input{Kind: EvCancelRequested, JobID: jobID})
	c.mu.Unlock()

	err := c.client.Cancel(ctx, jobID)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case err == nil:
		c.applyLocked(Input{Kind: EvCancelAccepted, JobID: jobID})
		return nil
	case api.IsNotFound(err):
		c.applyLocked(Input{Kind: EvJobMissing, JobID: jobID})
		return err
	default:
		c.applyLocked(Input{Kind: EvCancelRejected, JobID: jobID, Err: err})
		return err
	}
}

// Reset returns the tracker to idle, clearing the session record and
// counters. Resetting an idle tracker is a no-op.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(Input{Kind: EvResetRequested})
	return nil
}

// Run consumes poll results until the tracker reaches a terminal state or
// ctx is done. It returns the final state.
func (c *Controller) Run(ctx context.Context) State {
	for {
		select {
		case <-ctx.Done():
			c.poller.Stop()
			return c.State()
		case res := <-c.poller.Results():
			c.HandleResult(res)
			if s := c.State(); s.Terminal() || s == StateIdle {
				return s
			}
		}
	}
}

// HandleResult feeds one poll result into the machine. Results from a
// superseded generation or a different job are discarded.
func (c *Controller) HandleResult(res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res.Gen != c.gen || res.JobID != c.jobID {
		c.logger.Debug().
			Uint64("gen", res.Gen).
			Str("job_id", res.JobID).
			Msg("Discarding stale poll result")
		return
	}

	switch {
	case res.Err == nil:
		c.applyLocked(Input{Kind: EvStatusUpdate, JobID: res.JobID, Status: res.Status})
	case api.IsNotFound(res.Err):
		c.applyLocked(Input{Kind: EvJobMissing, JobID: res.JobID})
	default:
		c.applyLocked(Input{Kind: EvPollError, JobID: res.JobID, Err: res.Err})
	}
}

// applyLocked runs one transition and executes its actions. Callers hold
// c.mu.
func (c *Controller) applyLocked(in Input) {
	oldState := c.state
	next, actions := Transition(c.state, in)
	c.state = next

	if next != oldState {
		c.logger.Debug().
			Str("from", oldState.String()).
			Str("to", next.String()).
			Str("event", in.Kind.String()).
			Msg("State transition")
		c.bus.Publish(&events.StateChangeEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventStateChange, Time: time.Now()},
			JobID:     c.jobID,
			OldState:  oldState.String(),
			NewState:  next.String(),
		})
	}

	for _, action := range actions {
		c.executeLocked(action, in)
	}
}

func (c *Controller) executeLocked(action Action, in Input) {
	switch action {
	case ActionSaveSession:
		rec := session.Record{JobID: c.jobID, DisplayName: c.displayName}
		if err := c.store.Save(rec); err != nil {
			c.logger.Error().Err(err).Msg("Failed to save session")
		}

	case ActionClearSession:
		if err := c.store.Clear(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to clear session")
		}

	case ActionStartPolling:
		c.gen = c.poller.Start(c.pollCtx, c.jobID)

	case ActionStopPolling:
		// Stop waits for the in-flight fetch; safe because the poller
		// goroutine never takes c.mu.
		c.poller.Stop()

	case ActionSendCancel:
		// The request itself is issued by Cancel after the transition;
		// nothing to do here.

	case ActionRenderProgress:
		c.lastStatus = in.Status
		c.publishProgress(in.Status)

	case ActionRenderResults:
		c.lastStatus = in.Status
		c.publishCompleted(in.Status)

	case ActionResetCounters:
		c.lastStatus = nil
		jobID := c.jobID
		c.jobID = ""
		c.displayName = ""
		c.bus.Publish(&events.ResetEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventReset, Time: time.Now()},
			JobID:     jobID,
		})

	case ActionSurfaceFailure:
		msg := failureMessage(in)
		c.bus.Publish(&events.FailureEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventFailure, Time: time.Now()},
			JobID:     c.jobID,
			Message:   msg,
		})
		c.notifier.JobFailed(c.displayName, msg)
		if in.Status != nil && in.Status.Status == models.StatusFailed {
			c.lastStatus = in.Status
		}

	case ActionSurfaceExpiry:
		c.bus.Publish(&events.ExpiredEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventExpired, Time: time.Now()},
			JobID:     c.jobID,
		})
		c.notifier.SessionExpired(c.displayName)

	case ActionLogPollError:
		// Transient by classification: keep polling, note the miss.
		c.logger.Warn().
			Err(in.Err).
			Str("job_id", c.jobID).
			Msg("Status poll failed, will retry on next tick")
	}
}

func (c *Controller) publishProgress(s *models.JobStatus) {
	if s == nil {
		return
	}
	total := s.RowsToProcess
	if total == 0 && s.TotalRows > 0 {
		total = s.TotalRows
	}
	c.bus.Publish(&events.ProgressEvent{
		BaseEvent:   events.BaseEvent{EventType: events.EventProgress, Time: time.Now()},
		JobID:       c.jobID,
		DisplayName: c.displayName,
		Status:      s.Status,
		Processed:   s.Processed,
		Total:       total,
		Percent:     render.ClampPercent(s.Progress),
		Good:        s.GoodCount,
		NoFace:      s.NoFaceCount,
		Errors:      s.DownloadErrorCount,
	})
}

func (c *Controller) publishCompleted(s *models.JobStatus) {
	if s == nil {
		return
	}
	summary := render.Summary(s)
	c.bus.Publish(&events.CompletedEvent{
		BaseEvent:   events.BaseEvent{EventType: events.EventCompleted, Time: time.Now()},
		JobID:       c.jobID,
		DisplayName: c.displayName,
		Summary:     summary,
		SaveImages:  s.Config.SaveImagesEnabled(),
	})
	c.notifier.JobCompleted(c.displayName, summary)
}

func failureMessage(in Input) string {
	if in.Status != nil && in.Status.Error != "" {
		return in.Status.Error
	}
	if in.Err != nil {
		return in.Err.Error()
	}
	return "job failed"
}
