// Package claims carries player set claims to the dealer.
//
// A Claim is created the instant a player places its third token and is
// resolved exactly once by the dealer. Queue is the many-producer,
// single-consumer FIFO between them: Submit wakes a dealer blocked in its
// timer loop so a claim never waits out a full polling interval.
package claims

import (
	"sync"
)

// Outcome is the dealer's verdict on a claim.
type Outcome int

const (
	Pending Outcome = iota
	Valid
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Claim is one player's submission of three token slots.
type Claim struct {
	done     chan struct{}
	once     sync.Once
	mu       sync.RWMutex
	PlayerID int
	Slots    [3]int // Token slots at submission time
	outcome  Outcome
}

// New creates a pending claim.
func New(playerID int, slots [3]int) *Claim {
	return &Claim{
		PlayerID: playerID,
		Slots:    slots,
		done:     make(chan struct{}),
	}
}

// Resolve records the outcome and wakes every waiter.
// Only the first call has any effect; Pending is ignored.
func (c *Claim) Resolve(o Outcome) {
	if o == Pending {
		return
	}
	c.once.Do(func() {
		c.mu.Lock()
		c.outcome = o
		c.mu.Unlock()
		close(c.done)
	})
}

// Done is closed once the claim is resolved.
func (c *Claim) Done() <-chan struct{} {
	return c.done
}

// Outcome returns the current outcome.
func (c *Claim) Outcome() Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.outcome
}

// Queue is a FIFO of claims with a wake signal for its single consumer.
type Queue struct {
	wake  chan struct{}
	items []*Claim
	mu    sync.Mutex
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
	}
}

// Submit appends a claim and signals the consumer.
// The signal is coalesced: many submits before the consumer wakes produce
// one wakeup, and the consumer drains everything on that wakeup.
func (q *Queue) Submit(c *Claim) {
	q.mu.Lock()
	q.items = append(q.items, c)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Next removes and returns the oldest claim, or false if the queue is empty.
func (q *Queue) Next() (*Claim, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	c := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return c, true
}

// Len returns the number of queued claims.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Wake returns the channel signalled after each Submit.
// A receive on it is only a hint: the consumer must recheck Len.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}
