package cards

import (
	"math/rand"
)

// Card is an opaque card identifier in the range [0, deckSize).
type Card int

// Deck is the ordered pool of cards held by the dealer.
// Cards are dealt from, and returned to, the tail of the pool.
type Deck struct {
	rng   *rand.Rand // Random source used by Shuffle
	cards []Card     // Remaining cards, tail is the next card dealt
}

// NewDeck creates a deck holding every card in [0, size) in ascending order.
// A nil rng falls back to the global math/rand source.
func NewDeck(size int, rng *rand.Rand) *Deck {
	d := &Deck{
		rng:   rng,
		cards: make([]Card, 0, size),
	}
	for c := 0; c < size; c++ {
		d.cards = append(d.cards, Card(c))
	}
	return d
}

// Shuffle randomizes the order of the remaining cards.
func (d *Deck) Shuffle() {
	swap := func(i, j int) { d.cards[i], d.cards[j] = d.cards[j], d.cards[i] }
	if d.rng != nil {
		d.rng.Shuffle(len(d.cards), swap)
		return
	}
	rand.Shuffle(len(d.cards), swap)
}

// Pop removes and returns the card at the tail of the deck.
// Returns false if the deck is empty.
func (d *Deck) Pop() (Card, bool) {
	if len(d.cards) == 0 {
		return 0, false
	}
	last := len(d.cards) - 1
	c := d.cards[last]
	d.cards = d.cards[:last]
	return c, true
}

// Push returns a card to the tail of the deck.
func (d *Deck) Push(c Card) {
	d.cards = append(d.cards, c)
}

// Len returns the number of cards left in the deck.
func (d *Deck) Len() int {
	return len(d.cards)
}

// IsEmpty reports whether the deck has no cards left.
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}

// Cards returns a copy of the remaining cards in deal order (tail last).
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
