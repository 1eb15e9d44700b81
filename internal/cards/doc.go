// Package cards provides the card universe of a set-matching game: opaque card
// identifiers, the dealer's deck, and the oracle that decides which triples of
// cards form a valid set.
//
// # Card Encoding
//
// A card is an integer in [0, deckSize). Its features are the base-featureSize
// digits of the identifier, least significant digit first:
//
//	featureCount = 4, featureSize = 3
//
//	card 0  → [0 0 0 0]
//	card 5  → [2 1 0 0]
//	card 80 → [2 2 2 2]
//
// Three cards form a set when, for every feature, the three values are either
// all equal or all different.
//
// # Deck
//
// Deck is an ordered pool of the cards not currently on the table and not yet
// retired. Cards are dealt from the tail and returned to the tail. The deck
// owns its random source so a seeded game is reproducible:
//
//	deck := cards.NewDeck(81, rand.New(rand.NewSource(42)))
//	deck.Shuffle()
//	c, ok := deck.Pop()
//
// Deck is not safe for concurrent use. In a running game it is owned by the
// dealer goroutine alone.
//
// # Oracle
//
// Oracle is the pure, side-effect free predicate used by the dealer:
//
//	oracle := cards.NewFeatureOracle(4, 3)
//	oracle.IsValidSet(0, 1, 2)           // true: only feature 0 differs, all distinct
//	oracle.FindSets(deck.Cards(), 1)     // existence probe
//
// FeatureOracle holds no mutable state and is safe for concurrent use.
package cards
