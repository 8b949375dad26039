package events

import (
	"testing"
	"time"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventProgress)

	bus.Publish(&ProgressEvent{
		BaseEvent: BaseEvent{
			EventType: EventProgress,
			Time:      time.Now(),
		},
		JobID:     "job-1",
		Processed: 42,
		Total:     100,
	})

	select {
	case received := <-ch:
		progress, ok := received.(*ProgressEvent)
		if !ok {
			t.Fatal("Expected ProgressEvent")
		}
		if progress.JobID != "job-1" {
			t.Errorf("JobID = %s, want job-1", progress.JobID)
		}
		if progress.Processed != 42 {
			t.Errorf("Processed = %d, want 42", progress.Processed)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBus_TypeFiltering(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	progressCh := bus.Subscribe(EventProgress)
	failureCh := bus.Subscribe(EventFailure)

	bus.Publish(&FailureEvent{
		BaseEvent: BaseEvent{EventType: EventFailure, Time: time.Now()},
		JobID:     "job-1",
		Message:   "boom",
	})

	select {
	case <-failureCh:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Failure subscriber did not receive event")
	}

	select {
	case ev := <-progressCh:
		t.Fatalf("Progress subscriber received %T", ev)
	default:
	}
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	all := bus.SubscribeAll()

	bus.Publish(&ResetEvent{BaseEvent: BaseEvent{EventType: EventReset, Time: time.Now()}})
	bus.Publish(&ExpiredEvent{BaseEvent: BaseEvent{EventType: EventExpired, Time: time.Now()}})

	for i := 0; i < 2; i++ {
		select {
		case <-all:
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("SubscribeAll missed event %d", i)
		}
	}
}

func TestEventBus_FullBufferDrops(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	bus.Subscribe(EventReset) // never drained

	bus.Publish(&ResetEvent{BaseEvent: BaseEvent{EventType: EventReset, Time: time.Now()}})
	bus.Publish(&ResetEvent{BaseEvent: BaseEvent{EventType: EventReset, Time: time.Now()}})

	if got := bus.DroppedEventCount(); got != 1 {
		t.Errorf("DroppedEventCount() = %d, want 1", got)
	}
}

func TestEventBus_CloseIsIdempotent(t *testing.T) {
	bus := NewEventBus(10)
	ch := bus.Subscribe(EventProgress)

	bus.Close()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("Channel still open after Close")
	}

	// Publishing after close must not panic.
	bus.Publish(&ResetEvent{BaseEvent: BaseEvent{EventType: EventReset, Time: time.Now()}})
}

func TestEventBus_SubscribeAfterClose(t *testing.T) {
	bus := NewEventBus(10)
	bus.Close()

	ch := bus.Subscribe(EventProgress)
	if _, ok := <-ch; ok {
		t.Error("Subscription after Close returned open channel")
	}
}
