// Package roundtimer tracks the time limit of a round.
//
// The mode is picked once from the configured round duration:
//
//	duration > 0  → Countdown:   the round ends at a deadline, reset on every valid claim
//	duration == 0 → ElapsedOnly: no deadline, shows time since the last reset
//	duration < 0  → Unbounded:   no deadline and nothing to show
//
// A Timer is owned by the dealer goroutine and is not safe for concurrent use.
package roundtimer

import (
	"math"
	"time"

	"github.com/dreamware/setdealer/internal/display"
)

// Mode is the timing behaviour of a game.
type Mode int

const (
	Countdown Mode = iota
	ElapsedOnly
	Unbounded
)

func (m Mode) String() string {
	switch m {
	case Countdown:
		return "countdown"
	case ElapsedOnly:
		return "elapsed"
	case Unbounded:
		return "unbounded"
	default:
		return "unknown"
	}
}

// ModeFor returns the mode selected by a configured round duration.
func ModeFor(duration time.Duration) Mode {
	switch {
	case duration > 0:
		return Countdown
	case duration == 0:
		return ElapsedOnly
	default:
		return Unbounded
	}
}

const (
	// PollInterval is how often the dealer refreshes the display.
	PollInterval = time.Second
	// WarningPollInterval is the refresh period inside the warning window.
	WarningPollInterval = 10 * time.Millisecond
)

// Timer is the round clock.
type Timer struct {
	deadline time.Time // Countdown only
	resetAt  time.Time
	now      func() time.Time
	duration time.Duration
	warning  time.Duration
	mode     Mode
}

// New creates a timer for the configured round duration and warning window.
// A nil now uses time.Now. The timer starts reset at the current instant.
func New(duration, warning time.Duration, now func() time.Time) *Timer {
	if now == nil {
		now = time.Now
	}
	t := &Timer{
		duration: duration,
		warning:  warning,
		mode:     ModeFor(duration),
		now:      now,
	}
	t.Reset()
	return t
}

// Mode returns the timer mode.
func (t *Timer) Mode() Mode {
	return t.mode
}

// Reset starts a fresh round period: a new deadline in Countdown mode and a
// new reset instant in every mode.
func (t *Timer) Reset() {
	now := t.now()
	t.resetAt = now
	if t.mode == Countdown {
		t.deadline = now.Add(t.duration)
	}
}

// Deadline returns the countdown deadline. Only meaningful in Countdown mode.
func (t *Timer) Deadline() time.Time {
	return t.deadline
}

// Remaining returns the time left before the deadline, never negative.
// Non-countdown timers always report math.MaxInt64.
func (t *Timer) Remaining() time.Duration {
	if t.mode != Countdown {
		return time.Duration(math.MaxInt64)
	}
	left := t.deadline.Sub(t.now())
	if left < 0 {
		return 0
	}
	return left
}

// Elapsed returns the time since the last reset.
func (t *Timer) Elapsed() time.Duration {
	return t.now().Sub(t.resetAt)
}

// Expired reports whether a countdown has reached its deadline.
// Other modes never expire.
func (t *Timer) Expired() bool {
	return t.mode == Countdown && !t.now().Before(t.deadline)
}

// Warning reports whether a countdown is inside its warning window.
func (t *Timer) Warning() bool {
	return t.mode == Countdown && t.Remaining() <= t.warning
}

// PollInterval returns how long the dealer may sleep before the next refresh.
// The second return is false in Unbounded mode, where the dealer sleeps until
// a claim arrives.
func (t *Timer) PollInterval() (time.Duration, bool) {
	switch t.mode {
	case Countdown:
		interval := PollInterval
		left := t.Remaining()
		if left < t.warning {
			interval = WarningPollInterval
		}
		if left > 0 && left < interval {
			interval = left
		}
		return interval, true
	case ElapsedOnly:
		return PollInterval, true
	default:
		return 0, false
	}
}

// Publish pushes the current timer value to the display.
// Outside the warning window a countdown is rounded to whole seconds.
func (t *Timer) Publish(sink display.Sink) {
	switch t.mode {
	case Countdown:
		left := t.Remaining()
		if left <= t.warning {
			sink.SetCountdown(left, true)
			return
		}
		sink.SetCountdown(left.Round(time.Second), false)
	case ElapsedOnly:
		sink.SetElapsed(t.Elapsed())
	}
}
