// Package track owns the client-side job lifecycle: a pure state machine,
// a single-flight status poller, and a controller that binds them to the
// API client, the session store, and the event bus.
package track

import (
	"github.com/faceaudit/faceaudit/internal/models"
)

// State is the tracker's lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateCancelling State = "cancelling"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateExpired    State = "expired"
)

// EventKind names the inputs the machine reacts to.
type EventKind string

const (
	EvSubmitStarted   EventKind = "submit_started"
	EvSubmitAccepted  EventKind = "submit_accepted"
	EvSubmitRejected  EventKind = "submit_rejected"
	EvSessionRestored EventKind = "session_restored"
	EvStatusUpdate    EventKind = "status_update"
	EvJobMissing      EventKind = "job_missing"
	EvPollError       EventKind = "poll_error"
	EvCancelRequested EventKind = "cancel_requested"
	EvCancelAccepted  EventKind = "cancel_accepted"
	EvCancelRejected  EventKind = "cancel_rejected"
	EvResetRequested  EventKind = "reset_requested"
)

// Input is one event fed into the machine. Status is set only for
// EvStatusUpdate; Err only for EvSubmitRejected, EvPollError and
// EvCancelRejected.
type Input struct {
	Kind   EventKind
	JobID  string
	Status *models.JobStatus
	Err    error
}

// Action is a side effect the controller must perform after a transition.
// The machine itself never touches the store, the network, or the poller.
type Action string

const (
	ActionSaveSession    Action = "save_session"
	ActionClearSession   Action = "clear_session"
	ActionStartPolling   Action = "start_polling"
	ActionStopPolling    Action = "stop_polling"
	ActionSendCancel     Action = "send_cancel"
	ActionRenderProgress Action = "render_progress"
	ActionRenderResults  Action = "render_results"
	ActionResetCounters  Action = "reset_counters"
	ActionSurfaceFailure Action = "surface_failure"
	ActionSurfaceExpiry  Action = "surface_expiry"
	ActionLogPollError   Action = "log_poll_error"
)

// Transition computes the next state and the side effects for an input.
// It is a pure function: same state and input, same result. Inputs that
// have no transition from the current state are ignored (state unchanged,
// no actions) — late poll results after a cancel or reset land here.
func Transition(state State, in Input) (State, []Action) {
	switch state {
	case StateIdle:
		switch in.Kind {
		case EvSubmitStarted:
			return StateSubmitting, nil
		case EvSessionRestored:
			return StatePolling, []Action{ActionStartPolling}
		case EvResetRequested:
			return StateIdle, []Action{ActionClearSession, ActionResetCounters}
		}

	case StateSubmitting:
		switch in.Kind {
		case EvSubmitAccepted:
			return StatePolling, []Action{ActionSaveSession, ActionStartPolling}
		case EvSubmitRejected:
			return StateIdle, []Action{ActionSurfaceFailure}
		}

	case StatePolling:
		switch in.Kind {
		case EvStatusUpdate:
			return pollingStatus(in.Status)
		case EvJobMissing:
			return StateExpired, []Action{ActionStopPolling, ActionClearSession, ActionSurfaceExpiry}
		case EvPollError:
			return StatePolling, []Action{ActionLogPollError}
		case EvCancelRequested:
			return StateCancelling, []Action{ActionSendCancel}
		case EvResetRequested:
			return StateIdle, []Action{ActionStopPolling, ActionClearSession, ActionResetCounters}
		}

	case StateCancelling:
		switch in.Kind {
		case EvCancelAccepted:
			return StateIdle, []Action{ActionStopPolling, ActionClearSession, ActionResetCounters}
		case EvCancelRejected:
			return StatePolling, []Action{ActionSurfaceFailure}
		case EvStatusUpdate:
			// Polling continues while the cancel is in flight. A terminal
			// status racing the cancel resolves the same way it would in
			// the polling state.
			if in.Status != nil && in.Status.Terminal() {
				return pollingStatus(in.Status)
			}
			return StateCancelling, []Action{ActionRenderProgress}
		case EvJobMissing:
			return StateExpired, []Action{ActionStopPolling, ActionClearSession, ActionSurfaceExpiry}
		case EvPollError:
			return StateCancelling, []Action{ActionLogPollError}
		}

	case StateCompleted, StateFailed, StateExpired:
		switch in.Kind {
		case EvResetRequested:
			return StateIdle, []Action{ActionClearSession, ActionResetCounters}
		case EvSubmitStarted:
			// A Completed session still holds the old record; the new
			// submission replaces it, so drop it before the upload.
			return StateSubmitting, []Action{ActionClearSession}
		}
	}

	return state, nil
}

// pollingStatus resolves a status update while the job is being watched.
func pollingStatus(s *models.JobStatus) (State, []Action) {
	if s == nil {
		return StatePolling, nil
	}
	switch s.Status {
	case models.StatusCompleted:
		return StateCompleted, []Action{ActionStopPolling, ActionRenderResults}
	case models.StatusFailed:
		return StateFailed, []Action{ActionStopPolling, ActionClearSession, ActionSurfaceFailure}
	case models.StatusCancelled:
		return StateIdle, []Action{ActionStopPolling, ActionClearSession, ActionResetCounters}
	default:
		return StatePolling, []Action{ActionRenderProgress}
	}
}

// Terminal reports whether a state accepts no further poll input.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateExpired:
		return true
	}
	return false
}

func (s State) String() string { return string(s) }

func (k EventKind) String() string { return string(k) }
