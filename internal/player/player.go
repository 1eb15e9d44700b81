// Package player implements the worker side of the table protocol.
//
// Each Player runs in its own goroutine and owns a gate, a binary mutex that
// it holds for every action touching the table (choosing a slot, placing or
// removing one of its tokens). The dealer takes every player's gate before it
// rewrites the table, so a token can never land on a slot that is being
// cleared. A player never holds its gate while waiting for a claim verdict or
// sitting out a freeze.
//
// Lifecycle:
//
//	p := player.New(0, tbl, queue, strategy, opts)
//	p.Start()            // returns once the goroutine is running
//	...
//	p.Terminate()
//	err := p.AwaitStopped(ctx)
package player

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slices"

	"github.com/dreamware/setdealer/internal/claims"
	"github.com/dreamware/setdealer/internal/display"
	"github.com/dreamware/setdealer/internal/table"
)

// MaxTokens is the number of tokens that makes a claim.
const MaxTokens = 3

// Options tunes a player's pacing and penalties.
type Options struct {
	Sink           display.Sink     // Score and freeze updates; nil discards
	Now            func() time.Time // Clock for progress stamps; nil uses time.Now
	ActionInterval time.Duration    // Pause between actions
	PointFreeze    time.Duration    // Freeze after a valid claim
	PenaltyFreeze  time.Duration    // Freeze after an invalid claim
}

// Player is one independently scheduled worker.
type Player struct {
	table    *table.Table
	queue    *claims.Queue
	strategy Strategy
	opts     Options

	stop     chan struct{}
	ready    chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool

	gate sync.Mutex

	mu     sync.Mutex // Protects tokens
	tokens []int

	score    atomic.Int64
	progress atomic.Int64 // UnixNano of the last completed step
	waiting  atomic.Bool  // Blocked on a claim verdict or frozen

	id int
}

// New creates a stopped player.
func New(id int, tbl *table.Table, queue *claims.Queue, strategy Strategy, opts Options) *Player {
	if opts.Sink == nil {
		opts.Sink = display.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := &Player{
		id:       id,
		table:    tbl,
		queue:    queue,
		strategy: strategy,
		opts:     opts,
		stop:     make(chan struct{}),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	p.touch()
	return p
}

// ID returns the player id.
func (p *Player) ID() int {
	return p.id
}

// Score returns the number of valid claims so far.
func (p *Player) Score() int {
	return int(p.score.Load())
}

// Tokens returns a copy of the slots holding this player's tokens, in
// placement order.
func (p *Player) Tokens() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.tokens))
	copy(out, p.tokens)
	return out
}

// AwardPoint adds one to the score and publishes it. The dealer calls it
// before resolving a valid claim so the score is final by the time the
// player sees the verdict.
func (p *Player) AwardPoint() int {
	score := int(p.score.Add(1))
	p.opts.Sink.SetScore(p.id, score)
	return score
}

// LastProgress returns when the player last completed a step.
func (p *Player) LastProgress() time.Time {
	return time.Unix(0, p.progress.Load())
}

// Waiting reports whether the player is blocked on a verdict or frozen.
func (p *Player) Waiting() bool {
	return p.waiting.Load()
}

// AcquireGate blocks until the player's gate is held by the caller.
func (p *Player) AcquireGate() {
	p.gate.Lock()
}

// ReleaseGate releases the player's gate.
func (p *Player) ReleaseGate() {
	p.gate.Unlock()
}

// Start launches the player goroutine and returns once it is running.
// Calling Start more than once has no effect.
func (p *Player) Start() {
	if p.started.Swap(true) {
		return
	}
	go p.run()
	<-p.ready
}

// Terminate asks the player to stop. It does not wait.
func (p *Player) Terminate() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// AwaitStopped waits for the player goroutine to exit.
// A player that was never started counts as stopped.
func (p *Player) AwaitStopped(ctx context.Context) error {
	if !p.started.Load() {
		return nil
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("player %d did not stop: %w", p.id, ctx.Err())
	}
}

// Act toggles this player's token on a slot, holding the gate for the whole
// action. Placing the third token submits a claim, which is returned.
func (p *Player) Act(slot int) *claims.Claim {
	p.gate.Lock()
	defer p.gate.Unlock()
	return p.toggle(slot)
}

// RevokeToken removes this player's token from a slot, if any.
// The caller must hold the player's gate.
func (p *Player) RevokeToken(slot int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := slices.Index(p.tokens, slot)
	if i < 0 {
		return false
	}
	p.tokens = slices.Delete(p.tokens, i, i+1)
	p.table.RemoveToken(p.id, slot)
	return true
}

// RevokeAll removes every token this player holds.
// The caller must hold the player's gate.
func (p *Player) RevokeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, slot := range p.tokens {
		p.table.RemoveToken(p.id, slot)
	}
	p.tokens = p.tokens[:0]
}

func (p *Player) run() {
	defer close(p.done)
	log.Printf("Player %d started", p.id)
	close(p.ready)

	for {
		select {
		case <-p.stop:
			log.Printf("Player %d stopped with score %d", p.id, p.Score())
			return
		default:
		}

		if c := p.step(); c != nil {
			if !p.await(c) {
				log.Printf("Player %d stopped with score %d", p.id, p.Score())
				return
			}
		}
		p.touch()
		if !p.pause(p.opts.ActionInterval) {
			log.Printf("Player %d stopped with score %d", p.id, p.Score())
			return
		}
	}
}

// step chooses and toggles one slot under the gate.
func (p *Player) step() *claims.Claim {
	p.gate.Lock()
	defer p.gate.Unlock()

	slot, ok := p.strategy.Choose(p.table.Snapshot(), p.Tokens())
	if !ok {
		return nil
	}
	return p.toggle(slot)
}

// toggle must be called with the gate held.
func (p *Player) toggle(slot int) *claims.Claim {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i := slices.Index(p.tokens, slot); i >= 0 {
		p.tokens = slices.Delete(p.tokens, i, i+1)
		p.table.RemoveToken(p.id, slot)
		return nil
	}
	if len(p.tokens) >= MaxTokens {
		return nil
	}
	if err := p.table.PlaceToken(p.id, slot); err != nil {
		return nil
	}
	p.tokens = append(p.tokens, slot)
	if len(p.tokens) < MaxTokens {
		return nil
	}

	c := claims.New(p.id, [3]int{p.tokens[0], p.tokens[1], p.tokens[2]})
	p.queue.Submit(c)
	return c
}

// await blocks until the claim is resolved and applies the verdict.
// Returns false if the player was told to stop.
func (p *Player) await(c *claims.Claim) bool {
	p.waiting.Store(true)
	defer p.waiting.Store(false)

	select {
	case <-c.Done():
	case <-p.stop:
		return false
	}

	switch c.Outcome() {
	case claims.Valid:
		return p.freeze(p.opts.PointFreeze)
	case claims.Invalid:
		if !p.freeze(p.opts.PenaltyFreeze) {
			return false
		}
		p.gate.Lock()
		p.RevokeAll()
		p.gate.Unlock()
	}
	return true
}

// freeze sits out d. Returns false if the player was told to stop.
func (p *Player) freeze(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	p.opts.Sink.SetFreeze(p.id, d)
	ok := p.pause(d)
	p.opts.Sink.SetFreeze(p.id, 0)
	return ok
}

// pause sleeps for d unless the player is stopped first.
func (p *Player) pause(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-p.stop:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-p.stop:
		return false
	}
}

func (p *Player) touch() {
	p.progress.Store(p.opts.Now().UnixNano())
}
