package track

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/faceaudit/faceaudit/internal/api"
	"github.com/faceaudit/faceaudit/internal/events"
	"github.com/faceaudit/faceaudit/internal/models"
	"github.com/faceaudit/faceaudit/internal/session"
)

// fakeAPI is a scriptable track.API.
type fakeAPI struct {
	mu        sync.Mutex
	uploadID  string
	uploadErr error
	status    *models.JobStatus
	statusErr error
	cancelErr error
	cancelled []string
}

func (f *fakeAPI) Upload(ctx context.Context, filePath string, cfg models.UploadConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadID, f.uploadErr
}

func (f *fakeAPI) Status(ctx context.Context, jobID string) (*models.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.statusErr
}

func (f *fakeAPI) Cancel(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, jobID)
	return f.cancelErr
}

// recordingNotifier captures notification calls.
type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
	expired   []string
}

func (n *recordingNotifier) JobCompleted(name, summary string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, name)
}

func (n *recordingNotifier) JobFailed(name, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, name)
}

func (n *recordingNotifier) SessionExpired(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, name)
}

type testHarness struct {
	api      *fakeAPI
	store    *session.Store
	poller   *Poller
	bus      *events.EventBus
	notifier *recordingNotifier
	ctrl     *Controller
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	fake := &fakeAPI{
		uploadID: "job-1",
		status:   &models.JobStatus{Status: models.StatusProcessing, Processed: 1, RowsToProcess: 10},
	}
	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	log := testLogger()
	poller := NewPoller(fake, time.Hour, log) // ticks never fire in tests
	bus := events.NewEventBus(64)
	notifier := &recordingNotifier{}
	ctrl := NewController(fake, store, poller, bus, notifier, log)

	t.Cleanup(func() {
		poller.Stop()
		bus.Close()
	})

	return &testHarness{api: fake, store: store, poller: poller, bus: bus, notifier: notifier, ctrl: ctrl}
}

func mustHaveSession(t *testing.T, store *session.Store, jobID string) {
	t.Helper()
	rec, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if rec == nil {
		t.Fatal("Expected a session record, got none")
	}
	if rec.JobID != jobID {
		t.Fatalf("Session job = %s, want %s", rec.JobID, jobID)
	}
}

func mustHaveNoSession(t *testing.T, store *session.Store) {
	t.Helper()
	rec, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if rec != nil {
		t.Fatalf("Expected no session record, got job %s", rec.JobID)
	}
}

func TestController_SubmitAccepted(t *testing.T) {
	h := newHarness(t)

	jobID, err := h.ctrl.Submit(context.Background(), "photos.csv", "photos.csv", models.UploadConfig{})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if jobID != "job-1" {
		t.Errorf("Submit() job = %s, want job-1", jobID)
	}
	if h.ctrl.State() != StatePolling {
		t.Errorf("State = %s, want %s", h.ctrl.State(), StatePolling)
	}
	if !h.poller.Active() {
		t.Error("Poller not started after accepted submit")
	}
	mustHaveSession(t, h.store, "job-1")
}

func TestController_SubmitRejected(t *testing.T) {
	h := newHarness(t)
	h.api.uploadErr = &api.SubmissionError{StatusCode: 400, Message: "only CSV files are allowed"}

	_, err := h.ctrl.Submit(context.Background(), "photos.txt", "photos.txt", models.UploadConfig{})
	if err == nil {
		t.Fatal("Submit() expected error")
	}
	if h.ctrl.State() != StateIdle {
		t.Errorf("State = %s, want %s", h.ctrl.State(), StateIdle)
	}
	if h.poller.Active() {
		t.Error("Poller running after rejected submit")
	}
	mustHaveNoSession(t, h.store)
}

func TestController_Restore(t *testing.T) {
	h := newHarness(t)
	if err := h.store.Save(session.Record{JobID: "job-9", DisplayName: "old.csv"}); err != nil {
		t.Fatal(err)
	}

	restored, err := h.ctrl.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if !restored {
		t.Fatal("Restore() = false, want true")
	}
	if h.ctrl.State() != StatePolling {
		t.Errorf("State = %s, want %s", h.ctrl.State(), StatePolling)
	}
	if h.ctrl.JobID() != "job-9" {
		t.Errorf("JobID = %s, want job-9", h.ctrl.JobID())
	}
}

func TestController_RestoreWithoutRecord(t *testing.T) {
	h := newHarness(t)

	restored, err := h.ctrl.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if restored {
		t.Error("Restore() = true with no record")
	}
	if h.ctrl.State() != StateIdle {
		t.Errorf("State = %s, want %s", h.ctrl.State(), StateIdle)
	}
}

func TestController_CompletionKeepsSession(t *testing.T) {
	h := newHarness(t)
	sub := h.bus.Subscribe(events.EventCompleted)

	if _, err := h.ctrl.Submit(context.Background(), "photos.csv", "photos.csv", models.UploadConfig{}); err != nil {
		t.Fatal(err)
	}
	gen := h.poller.Generation()

	h.ctrl.HandleResult(Result{
		Gen:   gen,
		JobID: "job-1",
		Status: &models.JobStatus{
			Status:        models.StatusCompleted,
			RowsToProcess: 9,
			GoodCount:     7,
			NoFaceCount:   2,
		},
	})

	if h.ctrl.State() != StateCompleted {
		t.Fatalf("State = %s, want %s", h.ctrl.State(), StateCompleted)
	}
	// Completed jobs stay in the session so downloads still resolve.
	mustHaveSession(t, h.store, "job-1")

	select {
	case ev := <-sub:
		completed := ev.(*events.CompletedEvent)
		want := "Processed 9 images: 7 with faces, 2 without faces, 0 errors"
		if completed.Summary != want {
			t.Errorf("Summary = %q, want %q", completed.Summary, want)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("No CompletedEvent published")
	}

	h.notifier.mu.Lock()
	defer h.notifier.mu.Unlock()
	if len(h.notifier.completed) != 1 {
		t.Errorf("Completed notifications = %d, want 1", len(h.notifier.completed))
	}
}

func TestController_FailureClearsSession(t *testing.T) {
	h := newHarness(t)
	sub := h.bus.Subscribe(events.EventFailure)

	if _, err := h.ctrl.Submit(context.Background(), "photos.csv", "photos.csv", models.UploadConfig{}); err != nil {
		t.Fatal(err)
	}
	gen := h.poller.Generation()

	h.ctrl.HandleResult(Result{
		Gen:    gen,
		JobID:  "job-1",
		Status: &models.JobStatus{Status: models.StatusFailed, Error: "CSV is missing the url column"},
	})

	if h.ctrl.State() != StateFailed {
		t.Fatalf("State = %s, want %s", h.ctrl.State(), StateFailed)
	}
	mustHaveNoSession(t, h.store)

	select {
	case ev := <-sub:
		failure := ev.(*events.FailureEvent)
		if failure.Message != "CSV is missing the url column" {
			t.Errorf("Failure message = %q", failure.Message)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("No FailureEvent published")
	}
}

func TestController_MissingJobExpiresSession(t *testing.T) {
	h := newHarness(t)
	sub := h.bus.Subscribe(events.EventExpired)

	if _, err := h.ctrl.Submit(context.Background(), "photos.csv", "photos.csv", models.UploadConfig{}); err != nil {
		t.Fatal(err)
	}
	gen := h.poller.Generation()

	h.ctrl.HandleResult(Result{Gen: gen, JobID: "job-1", Err: api.ErrJobNotFound})

	if h.ctrl.State() != StateExpired {
		t.Fatalf("State = %s, want %s", h.ctrl.State(), StateExpired)
	}
	mustHaveNoSession(t, h.store)

	select {
	case <-sub:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("No ExpiredEvent published")
	}
}

func TestController_TransientPollErrorKeepsPolling(t *testing.T) {
	h := newHarness(t)

	if _, err := h.ctrl.Submit(context.Background(), "photos.csv", "photos.csv", models.UploadConfig{}); err != nil {
		t.Fatal(err)
	}
	gen := h.poller.Generation()

	h.ctrl.HandleResult(Result{Gen: gen, JobID: "job-1", Err: errors.New("connection refused")})

	if h.ctrl.State() != StatePolling {
		t.Errorf("State = %s, want %s", h.ctrl.State(), StatePolling)
	}
	mustHaveSession(t, h.store, "job-1")
}

func TestController_DiscardsStaleGeneration(t *testing.T) {
	h := newHarness(t)

	if _, err := h.ctrl.Submit(context.Background(), "photos.csv", "photos.csv", models.UploadConfig{}); err != nil {
		t.Fatal(err)
	}
	gen := h.poller.Generation()

	// A terminal result from a generation that predates the current run
	// must be ignored outright.
	h.ctrl.HandleResult(Result{
		Gen:    gen - 1,
		JobID:  "job-1",
		Status: &models.JobStatus{Status: models.StatusCompleted},
	})

	if h.ctrl.State() != StatePolling {
		t.Errorf("State = %s, want %s after stale result", h.ctrl.State(), StatePolling)
	}
	mustHaveSession(t, h.store, "job-1")
}

func TestController_DiscardsOtherJobResults(t *testing.T) {
	h := newHarness(t)

	if _, err := h.ctrl.Submit(context.Background(), "photos.csv", "photos.csv", models.UploadConfig{}); err != nil {
		t.Fatal(err)
	}
	gen := h.poller.Generation()

	h.ctrl.HandleResult(Result{
		Gen:    gen,
		JobID:  "some-other-job",
		Status: &models.JobStatus{Status: models.StatusFailed},
	})

	if h.ctrl.State() != StatePolling {
		t.Errorf("State = %s, want %s", h.ctrl.State(), StatePolling)
	}
}

func TestController_CancelAccepted(t *testing.T) {
	h := newHarness(t)

	if _, err := h.ctrl.Submit(context.Background(), "photos.csv", "photos.csv", models.UploadConfig{}); err != nil {
		t.Fatal(err)
	}

	if err := h.ctrl.Cancel(context.Background()); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if h.ctrl.State() != StateIdle {
		t.Errorf("State = %s, want %s", h.ctrl.State(), StateIdle)
	}
	if h.poller.Active() {
		t.Error("Poller running after accepted cancel")
	}
	mustHaveNoSession(t, h.store)

	h.api.mu.Lock()
	defer h.api.mu.Unlock()
	if len(h.api.cancelled) != 1 || h.api.cancelled[0] != "job-1" {
		t.Errorf("Cancelled jobs = %v, want [job-1]", h.api.cancelled)
	}
}

func TestController_CancelRejectedResumesPolling(t *testing.T) {
	h := newHarness(t)
	h.api.cancelErr = &api.CancelError{StatusCode: 409, Message: "job already finishing"}

	if _, err := h.ctrl.Submit(context.Background(), "photos.csv", "photos.csv", models.UploadConfig{}); err != nil {
		t.Fatal(err)
	}

	if err := h.ctrl.Cancel(context.Background()); err == nil {
		t.Fatal("Cancel() expected error")
	}
	if h.ctrl.State() != StatePolling {
		t.Errorf("State = %s, want %s", h.ctrl.State(), StatePolling)
	}
	mustHaveSession(t, h.store, "job-1")
}

func TestController_CancelWithoutSession(t *testing.T) {
	h := newHarness(t)

	err := h.ctrl.Cancel(context.Background())
	if !errors.Is(err, api.ErrNoActiveSession) {
		t.Errorf("Cancel() error = %v, want ErrNoActiveSession", err)
	}
}

func TestController_Reset(t *testing.T) {
	h := newHarness(t)
	sub := h.bus.Subscribe(events.EventReset)

	if _, err := h.ctrl.Submit(context.Background(), "photos.csv", "photos.csv", models.UploadConfig{}); err != nil {
		t.Fatal(err)
	}

	if err := h.ctrl.Reset(); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if h.ctrl.State() != StateIdle {
		t.Errorf("State = %s, want %s", h.ctrl.State(), StateIdle)
	}
	if h.ctrl.JobID() != "" {
		t.Errorf("JobID = %q, want empty after reset", h.ctrl.JobID())
	}
	mustHaveNoSession(t, h.store)

	select {
	case <-sub:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("No ResetEvent published")
	}
}

func TestController_RunReturnsOnTerminalState(t *testing.T) {
	h := newHarness(t)
	h.api.mu.Lock()
	h.api.status = &models.JobStatus{Status: models.StatusCompleted, GoodCount: 3}
	h.api.mu.Unlock()

	if _, err := h.ctrl.Submit(context.Background(), "photos.csv", "photos.csv", models.UploadConfig{}); err != nil {
		t.Fatal(err)
	}

	done := make(chan State, 1)
	go func() {
		done <- h.ctrl.Run(context.Background())
	}()

	select {
	case final := <-done:
		if final != StateCompleted {
			t.Errorf("Run() = %s, want %s", final, StateCompleted)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return on terminal state")
	}
}
