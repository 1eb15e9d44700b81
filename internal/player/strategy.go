package player

import (
	"math/rand"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/setdealer/internal/cards"
	"github.com/dreamware/setdealer/internal/table"
)

// Strategy picks the next slot a player toggles a token on.
// It is called with the player's gate held, so it sees a table that the
// dealer is not rewriting.
type Strategy interface {
	// Choose returns the slot to toggle, or false to skip this turn.
	// occupied lists every card on the table; tokens are the player's own slots.
	Choose(occupied []table.Slot, tokens []int) (int, bool)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(occupied []table.Slot, tokens []int) (int, bool)

// Choose calls f.
func (f StrategyFunc) Choose(occupied []table.Slot, tokens []int) (int, bool) {
	return f(occupied, tokens)
}

// Random toggles tokens on uniformly random occupied slots, like a player
// mashing keys.
type Random struct {
	rng *rand.Rand
	mu  sync.Mutex
}

// NewRandom creates a random strategy. A nil rng uses the global source.
func NewRandom(rng *rand.Rand) *Random {
	return &Random{rng: rng}
}

func (r *Random) Choose(occupied []table.Slot, _ []int) (int, bool) {
	if len(occupied) == 0 {
		return 0, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng == nil {
		return occupied[rand.Intn(len(occupied))].Index, true
	}
	return occupied[r.rng.Intn(len(occupied))].Index, true
}

// Seeker uses the oracle to go straight for a set on the table.
// Tokens outside the chosen set are taken back first.
type Seeker struct {
	oracle cards.Oracle
}

// NewSeeker creates an oracle-guided strategy.
func NewSeeker(oracle cards.Oracle) *Seeker {
	return &Seeker{oracle: oracle}
}

func (s *Seeker) Choose(occupied []table.Slot, tokens []int) (int, bool) {
	pool := make([]cards.Card, len(occupied))
	slotOf := make(map[cards.Card]int, len(occupied))
	for i, o := range occupied {
		pool[i] = o.Card
		slotOf[o.Card] = o.Index
	}

	found := s.oracle.FindSets(pool, 1)
	if len(found) == 0 {
		if len(tokens) > 0 {
			return tokens[0], true
		}
		return 0, false
	}

	target := make([]int, 0, 3)
	for _, c := range found[0] {
		target = append(target, slotOf[c])
	}
	for _, slot := range tokens {
		if !slices.Contains(target, slot) {
			return slot, true
		}
	}
	for _, slot := range target {
		if !slices.Contains(tokens, slot) {
			return slot, true
		}
	}
	return 0, false
}
