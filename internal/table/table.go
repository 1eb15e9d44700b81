// Package table implements the shared card table: a fixed number of slots,
// each empty or holding one card, plus the tokens players have placed on them.
//
// The table guards its own memory with a mutex so concurrent readers are safe,
// but that mutex does not make a sequence of calls atomic. Structural changes
// (placing and removing cards) are only made by the dealer while it holds every
// player's gate; players touch the table only while holding their own gate.
package table

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/setdealer/internal/cards"
	"github.com/dreamware/setdealer/internal/display"
)

var (
	// ErrSlotOutOfRange is returned for a slot index outside [0, capacity).
	ErrSlotOutOfRange = errors.New("slot out of range")
	// ErrSlotOccupied is returned when placing a card on a non-empty slot.
	ErrSlotOccupied = errors.New("slot occupied")
	// ErrSlotEmpty is returned when a token is placed on an empty slot.
	ErrSlotEmpty = errors.New("slot empty")
)

// Slot is a read-only view of one occupied slot.
type Slot struct {
	Tokens []int      `json:"tokens,omitempty"` // Player ids with a token here, ascending
	Index  int        `json:"slot"`
	Card   cards.Card `json:"card"`
}

// Table is a fixed-capacity array of card slots.
type Table struct {
	sink   display.Sink
	cards  []*cards.Card      // nil means empty
	tokens []map[int]struct{} // per slot: player ids holding a token
	mu     sync.RWMutex
}

// New creates an empty table with the given number of slots.
// A nil sink discards every table event.
func New(capacity int, sink display.Sink) *Table {
	if sink == nil {
		sink = display.Discard
	}
	t := &Table{
		sink:   sink,
		cards:  make([]*cards.Card, capacity),
		tokens: make([]map[int]struct{}, capacity),
	}
	for i := range t.tokens {
		t.tokens[i] = make(map[int]struct{})
	}
	return t
}

// Capacity returns the number of slots.
func (t *Table) Capacity() int {
	return len(t.cards)
}

// PlaceCard puts a card on an empty slot.
func (t *Table) PlaceCard(c cards.Card, slot int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slot < 0 || slot >= len(t.cards) {
		return fmt.Errorf("place card %d on slot %d: %w", c, slot, ErrSlotOutOfRange)
	}
	if t.cards[slot] != nil {
		return fmt.Errorf("place card %d on slot %d: %w", c, slot, ErrSlotOccupied)
	}
	card := c
	t.cards[slot] = &card
	t.sink.PlaceCard(c, slot)
	return nil
}

// RemoveCard empties a slot and returns the card it held.
// Any tokens left on the slot are dropped with it.
// Returns false if the slot was already empty or out of range.
func (t *Table) RemoveCard(slot int) (cards.Card, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slot < 0 || slot >= len(t.cards) || t.cards[slot] == nil {
		return 0, false
	}
	c := *t.cards[slot]
	t.cards[slot] = nil
	for id := range t.tokens[slot] {
		delete(t.tokens[slot], id)
		t.sink.RemoveToken(id, slot)
	}
	t.sink.RemoveCard(slot)
	return c, true
}

// Card returns the card on a slot, or false if it is empty.
func (t *Table) Card(slot int) (cards.Card, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if slot < 0 || slot >= len(t.cards) || t.cards[slot] == nil {
		return 0, false
	}
	return *t.cards[slot], true
}

// CountCards returns the number of occupied slots.
func (t *Table) CountCards() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, c := range t.cards {
		if c != nil {
			n++
		}
	}
	return n
}

// FirstEmptySlot returns the lowest-indexed empty slot, or -1 when full.
func (t *Table) FirstEmptySlot() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, c := range t.cards {
		if c == nil {
			return i
		}
	}
	return -1
}

// Snapshot returns every occupied slot in ascending slot order.
func (t *Table) Snapshot() []Slot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Slot, 0, len(t.cards))
	for i, c := range t.cards {
		if c == nil {
			continue
		}
		s := Slot{Index: i, Card: *c}
		for id := range t.tokens[i] {
			s.Tokens = append(s.Tokens, id)
		}
		slices.Sort(s.Tokens)
		out = append(out, s)
	}
	return out
}

// Cards returns the cards of every occupied slot in ascending slot order.
func (t *Table) Cards() []cards.Card {
	snap := t.Snapshot()
	out := make([]cards.Card, len(snap))
	for i, s := range snap {
		out[i] = s.Card
	}
	return out
}

// PlaceToken records a player's token on an occupied slot.
// Placing a token the player already holds is a no-op.
func (t *Table) PlaceToken(player, slot int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slot < 0 || slot >= len(t.cards) {
		return fmt.Errorf("place token on slot %d: %w", slot, ErrSlotOutOfRange)
	}
	if t.cards[slot] == nil {
		return fmt.Errorf("place token on slot %d: %w", slot, ErrSlotEmpty)
	}
	if _, ok := t.tokens[slot][player]; ok {
		return nil
	}
	t.tokens[slot][player] = struct{}{}
	t.sink.PlaceToken(player, slot)
	return nil
}

// RemoveToken deletes a player's token from a slot.
// Returns false if the player had no token there.
func (t *Table) RemoveToken(player, slot int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slot < 0 || slot >= len(t.tokens) {
		return false
	}
	if _, ok := t.tokens[slot][player]; !ok {
		return false
	}
	delete(t.tokens[slot], player)
	t.sink.RemoveToken(player, slot)
	return true
}

// HasToken reports whether a player has a token on a slot.
func (t *Table) HasToken(player, slot int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if slot < 0 || slot >= len(t.tokens) {
		return false
	}
	_, ok := t.tokens[slot][player]
	return ok
}
