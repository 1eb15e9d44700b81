// Package display defines the output side of a game: every call is fire and
// forget and nothing flows back into the dealer.
//
// Sinks provided here:
//   - Discard: drops every event
//   - Log: writes a readable line per meaningful event with the standard logger
//   - Recorder: keeps every event in memory (tests, status endpoints)
//   - Hub: streams JSON events to websocket spectators
//   - Publisher: publishes JSON events to a NATS subject tree
//   - Multi: fans one call out to several sinks
//
// All sinks are safe for concurrent use; the dealer and every player goroutine
// call them directly.
package display

import (
	"time"

	"github.com/dreamware/setdealer/internal/cards"
)

// Hint is one valid set currently on the table.
type Hint struct {
	Slots [3]int        `json:"slots"`
	Cards [3]cards.Card `json:"cards"`
}

// Sink receives display updates.
type Sink interface {
	// SetCountdown shows the time left in the round. warn is true once the
	// remaining time is inside the warning window.
	SetCountdown(remaining time.Duration, warn bool)

	// SetElapsed shows the time since the last round reset.
	SetElapsed(elapsed time.Duration)

	// ShowHints lists the valid sets on the table.
	ShowHints(hints []Hint)

	// AnnounceWinners shows the final winner ids.
	AnnounceWinners(players []int)

	PlaceCard(card cards.Card, slot int)
	RemoveCard(slot int)
	PlaceToken(player, slot int)
	RemoveToken(player, slot int)
	SetScore(player, score int)
	SetFreeze(player int, remaining time.Duration)
}

// Discard is a Sink that ignores every call.
var Discard Sink = discard{}

type discard struct{}

func (discard) SetCountdown(time.Duration, bool) {}
func (discard) SetElapsed(time.Duration) {}
func (discard) ShowHints([]Hint) {}
func (discard) AnnounceWinners([]int) {}
func (discard) PlaceCard(cards.Card, int) {}
func (discard) RemoveCard(int) {}
func (discard) PlaceToken(int, int) {}
func (discard) RemoveToken(int, int) {}
func (discard) SetScore(int, int) {}
func (discard) SetFreeze(int, time.Duration) {}

// Multi returns a Sink that forwards every call to each sink in order.
// Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multi []Sink

func (m multi) SetCountdown(remaining time.Duration, warn bool) {
	for _, s := range m {
		s.SetCountdown(remaining, warn)
	}
}

func (m multi) SetElapsed(elapsed time.Duration) {
	for _, s := range m {
		s.SetElapsed(elapsed)
	}
}

func (m multi) ShowHints(hints []Hint) {
	for _, s := range m {
		s.ShowHints(hints)
	}
}

func (m multi) AnnounceWinners(players []int) {
	for _, s := range m {
		s.AnnounceWinners(players)
	}
}

func (m multi) PlaceCard(card cards.Card, slot int) {
	for _, s := range m {
		s.PlaceCard(card, slot)
	}
}

func (m multi) RemoveCard(slot int) {
	for _, s := range m {
		s.RemoveCard(slot)
	}
}

func (m multi) PlaceToken(player, slot int) {
	for _, s := range m {
		s.PlaceToken(player, slot)
	}
}

func (m multi) RemoveToken(player, slot int) {
	for _, s := range m {
		s.RemoveToken(player, slot)
	}
}

func (m multi) SetScore(player, score int) {
	for _, s := range m {
		s.SetScore(player, score)
	}
}

func (m multi) SetFreeze(player int, remaining time.Duration) {
	for _, s := range m {
		s.SetFreeze(player, remaining)
	}
}
