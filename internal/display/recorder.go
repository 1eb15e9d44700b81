package display

import (
	"sync"
	"time"
)

// Recorder is a Sink that keeps every event in memory.
// Unlike the remote sinks it records every timer frame, repeated or not.
type Recorder struct {
	*emitter
	events []Event
	mu     sync.RWMutex
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	r := &Recorder{}
	r.emitter = newEmitter("", r.record)
	return r
}

func (r *Recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// SetCountdown records every countdown frame.
func (r *Recorder) SetCountdown(remaining time.Duration, warn bool) {
	ms := remaining.Milliseconds()
	r.send(Event{Type: EventCountdown, Millis: &ms, Warn: warn})
}

// SetElapsed records every elapsed frame.
func (r *Recorder) SetElapsed(elapsed time.Duration) {
	ms := elapsed.Milliseconds()
	r.send(Event{Type: EventElapsed, Millis: &ms})
}

// Events returns a copy of every recorded event in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of one type in arrival order.
func (r *Recorder) OfType(t EventType) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Last returns the most recent event of a type.
func (r *Recorder) Last(t EventType) (Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
