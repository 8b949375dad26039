// Package events carries lifecycle notifications from the tracker to the
// presentation layers (terminal renderers, desktop notifications).
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/faceaudit/faceaudit/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventStateChange EventType = "state_change"
	EventProgress    EventType = "progress"
	EventCompleted   EventType = "completed"
	EventFailure     EventType = "failure"
	EventExpired     EventType = "expired"
	EventReset       EventType = "reset"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// StateChangeEvent marks a tracker state transition.
type StateChangeEvent struct {
	BaseEvent
	JobID    string
	OldState string
	NewState string
}

// ProgressEvent carries one poll's worth of counters for an active job.
type ProgressEvent struct {
	BaseEvent
	JobID       string
	DisplayName string
	Status      string
	Processed   int
	Total       int
	Percent     float64
	Good        int
	NoFace      int
	Errors      int
}

// CompletedEvent marks a job reaching the completed status. Summary is the
// ready-to-print results line.
type CompletedEvent struct {
	BaseEvent
	JobID       string
	DisplayName string
	Summary     string
	SaveImages  bool
}

// FailureEvent marks a server-reported job failure or a rejected request.
type FailureEvent struct {
	BaseEvent
	JobID   string
	Message string
}

// ExpiredEvent marks a tracked job the server no longer knows about.
type ExpiredEvent struct {
	BaseEvent
	JobID string
}

// ResetEvent marks a return to the idle state with counters zeroed.
type ResetEvent struct {
	BaseEvent
	JobID string
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers map[EventType][]chan Event
	all         []chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
	dropped     atomic.Int64
}

// NewEventBus creates a new event bus with the specified buffer size.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers. Publishing never blocks; events
// that find a full buffer are dropped and counted.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.dropped.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.dropped.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// DroppedEventCount returns the number of events dropped on full buffers.
func (eb *EventBus) DroppedEventCount() int64 {
	return eb.dropped.Load()
}
