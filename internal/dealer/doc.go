// Package dealer implements the coordinator of a game: it owns the deck and the
// round timer, deals and collects cards, validates player claims one at a time
// and decides when the game is over.
//
// # Overview
//
// A game runs one dealer goroutine and one goroutine per player. Players toggle
// tokens on table slots and submit a claim when they place their third token.
// The dealer drains claims in FIFO order, validates each against the table as it
// is at validation time, and replaces the cards of every valid set.
//
// # Lifecycle
//
//	Bootstrapping ──▶ RoundActive ◀──▶ Draining (per claim)
//	                      │
//	                      ▼
//	                 Reshuffling ──▶ RoundActive   (sets remain in the deck)
//	                      │
//	                      ▼
//	                  Finished                     (terminated or no set left)
//
// Bootstrapping starts every player and waits until each goroutine is running.
// Each round deals the table, runs the timer loop until the round ends, then
// returns every card on the table to the deck. Finished announces the winners
// exactly once and stops the players in reverse creation order.
//
// # Barrier
//
// Every player owns a gate, a binary mutex held for each table-touching action.
// The dealer rewrites the table only while holding every gate, acquired in
// ascending player id order and released in the same order:
//
//	dealer                         player k
//	──────                         ────────
//	lock gate 0..N-1               lock gate k  (blocks while the dealer holds it)
//	deal / remove / collect        choose slot, toggle token
//	unlock gate 0..N-1             unlock gate k
//
// A player never holds its gate while waiting for a verdict, so the barrier
// cannot deadlock against a player blocked on the claim queue.
//
// # Timer loop
//
// The loop blocks on whichever comes first: a claim submission, the refresh
// interval, or termination. Waking up only leads to a recheck; a spurious wake
// is harmless. The refresh interval is one second, drops to 10ms inside the
// countdown warning window, and is never longer than the time left before the
// deadline. Unbounded games have no interval and sleep until a claim arrives.
//
// In ElapsedOnly and Unbounded games nothing ends a round except a table with
// no set on it, so the dealer checks for one after every deal and ends the
// round at once when it finds none.
//
// # Errors
//
// Stale claims, spurious wakeups, unsolvable tables and an empty deck are game
// states, not errors. Run only fails when a player does not stop within the
// shutdown timeout; that is reported rather than masked.
package dealer
