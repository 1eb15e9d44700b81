package display

import (
	"sync"
	"time"

	"github.com/dreamware/setdealer/internal/cards"
)

// EventType names a display update on the wire.
type EventType string

const (
	EventCountdown   EventType = "countdown"
	EventElapsed     EventType = "elapsed"
	EventHints       EventType = "hints"
	EventWinners     EventType = "winners"
	EventPlaceCard   EventType = "place_card"
	EventRemoveCard  EventType = "remove_card"
	EventPlaceToken  EventType = "place_token"
	EventRemoveToken EventType = "remove_token"
	EventScore       EventType = "score"
	EventFreeze      EventType = "freeze"
)

// Event is the serialized form of one Sink call.
// Only the fields relevant to Type are set.
type Event struct {
	At      time.Time   `json:"at"`
	Player  *int        `json:"player,omitempty"`
	Slot    *int        `json:"slot,omitempty"`
	Card    *cards.Card `json:"card,omitempty"`
	Score   *int        `json:"score,omitempty"`
	Millis  *int64      `json:"millis,omitempty"`
	Type    EventType   `json:"type"`
	Game    string      `json:"game,omitempty"`
	Hints   []Hint      `json:"hints,omitempty"`
	Winners []int       `json:"winners,omitempty"`
	Warn    bool        `json:"warn,omitempty"`
}

// emitter turns Sink calls into Events and hands them to emit.
// Repeated timer values are suppressed so a 10ms refresh loop does not flood
// remote sinks with identical frames.
type emitter struct {
	now        func() time.Time
	emit       func(Event)
	game       string
	mu         sync.Mutex
	lastTimer  int64
	lastWarn   bool
	timerValid bool
}

func newEmitter(game string, emit func(Event)) *emitter {
	return &emitter{
		game: game,
		emit: emit,
		now:  time.Now,
	}
}

func (e *emitter) send(ev Event) {
	ev.Game = e.game
	ev.At = e.now()
	e.emit(ev)
}

// timerChanged reports whether a timer frame differs from the previous one.
func (e *emitter) timerChanged(ms int64, warn bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timerValid && e.lastTimer == ms && e.lastWarn == warn {
		return false
	}
	e.lastTimer, e.lastWarn, e.timerValid = ms, warn, true
	return true
}

func (e *emitter) SetCountdown(remaining time.Duration, warn bool) {
	ms := remaining.Milliseconds()
	if !e.timerChanged(ms, warn) {
		return
	}
	e.send(Event{Type: EventCountdown, Millis: &ms, Warn: warn})
}

func (e *emitter) SetElapsed(elapsed time.Duration) {
	ms := elapsed.Milliseconds()
	if !e.timerChanged(ms, false) {
		return
	}
	e.send(Event{Type: EventElapsed, Millis: &ms})
}

func (e *emitter) ShowHints(hints []Hint) {
	out := make([]Hint, len(hints))
	copy(out, hints)
	e.send(Event{Type: EventHints, Hints: out})
}

func (e *emitter) AnnounceWinners(players []int) {
	out := make([]int, len(players))
	copy(out, players)
	e.send(Event{Type: EventWinners, Winners: out})
}

func (e *emitter) PlaceCard(card cards.Card, slot int) {
	e.send(Event{Type: EventPlaceCard, Card: &card, Slot: &slot})
}

func (e *emitter) RemoveCard(slot int) {
	e.send(Event{Type: EventRemoveCard, Slot: &slot})
}

func (e *emitter) PlaceToken(player, slot int) {
	e.send(Event{Type: EventPlaceToken, Player: &player, Slot: &slot})
}

func (e *emitter) RemoveToken(player, slot int) {
	e.send(Event{Type: EventRemoveToken, Player: &player, Slot: &slot})
}

func (e *emitter) SetScore(player, score int) {
	e.send(Event{Type: EventScore, Player: &player, Score: &score})
}

func (e *emitter) SetFreeze(player int, remaining time.Duration) {
	ms := remaining.Milliseconds()
	e.send(Event{Type: EventFreeze, Player: &player, Millis: &ms})
}
