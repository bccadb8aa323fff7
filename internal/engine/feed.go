package engine

import (
	"sync"
	"time"

	"pipeline-console-go/internal/progress"
	"pipeline-console-go/internal/types"
)

// EventType classifies feed entries consumed by dashboard subscribers.
type EventType string

const (
	EventProgress    EventType = "progress"
	EventRunStarted  EventType = "run_started"
	EventRunAdopted  EventType = "run_adopted"
	EventRunFinished EventType = "run_finished"
)

// Event is one sequenced entry in the engine's published feed. Consumers
// read incrementally with Since rather than subscribing to callbacks.
type Event struct {
	Seq       int64           `json:"seq"`
	Timestamp time.Time       `json:"timestamp"`
	Type      EventType       `json:"type"`
	RunID     string          `json:"run_id,omitempty"`
	RunStatus types.RunStatus `json:"run_status,omitempty"`
	Views     []progress.View `json:"views,omitempty"`
}

// Feed is a bounded in-memory event buffer with incremental reads. Old
// entries are trimmed; Seq keeps consumers honest about gaps.
type Feed struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewFeed creates a bounded feed.
func NewFeed(maxEvents int) *Feed {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	return &Feed{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event, assigning sequence and timestamp.
func (f *Feed) Publish(event Event) Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextSeq++
	event.Seq = f.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	f.events = append(f.events, event)
	if len(f.events) > f.maxEvents {
		trim := len(f.events) - f.maxEvents
		f.events = append([]Event(nil), f.events[trim:]...)
	}
	return event
}

// Since returns events with sequence strictly greater than seq.
func (f *Feed) Since(seq int64) []Event {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.events) == 0 {
		return nil
	}
	out := make([]Event, 0, len(f.events))
	for _, event := range f.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
