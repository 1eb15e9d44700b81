package dealer

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/dreamware/setdealer/internal/cards"
	"github.com/dreamware/setdealer/internal/claims"
	"github.com/dreamware/setdealer/internal/display"
	"github.com/dreamware/setdealer/internal/player"
	"github.com/dreamware/setdealer/internal/roundtimer"
	"github.com/dreamware/setdealer/internal/table"
)

// DefaultShutdownTimeout bounds the wait for each player when Options leaves
// it unset.
const DefaultShutdownTimeout = 5 * time.Second

// Options tunes a dealer.
type Options struct {
	Sink            display.Sink     // Timer, hint and winner updates; nil discards
	Now             func() time.Time // Clock for the round timer; nil uses time.Now
	GameID          string           // Tags every log line; empty generates a UUID
	RoundDuration   time.Duration    // > 0 countdown, 0 elapsed only, < 0 unbounded
	Warning         time.Duration    // Countdown warning window
	ShutdownTimeout time.Duration    // Per-player stop bound
	Hints           bool             // Show every set on the table after each deal
}

// Stats counts what happened during a game.
type Stats struct {
	Rounds     int64 `json:"rounds"`
	Claims     int64 `json:"claims"`
	Valid      int64 `json:"valid"`
	Invalid    int64 `json:"invalid"`
	Reshuffles int64 `json:"reshuffles"` // Rounds ended early because the table had no set
}

// Score is one player's standing.
type Score struct {
	Player int `json:"player"`
	Score  int `json:"score"`
}

// Dealer coordinates one game.
type Dealer struct {
	table   *table.Table
	deck    *cards.Deck // Owned by the dealer goroutine
	oracle  cards.Oracle
	queue   *claims.Queue
	timer   *roundtimer.Timer // Owned by the dealer goroutine
	sink    display.Sink
	players []*player.Player // Ascending id
	byID    map[int]*player.Player
	quit    chan struct{}
	opts    Options

	mu      sync.Mutex // Protects retired
	retired []cards.Card

	quitOnce  sync.Once
	terminate atomic.Bool

	rounds     atomic.Int64
	drained    atomic.Int64
	valid      atomic.Int64
	invalid    atomic.Int64
	reshuffles atomic.Int64

	id            string
	needReshuffle bool
	announced     bool
}

// New creates a dealer for a table, a full deck and the players of a game.
// Players are ordered by id; the table must start empty.
func New(tbl *table.Table, deck *cards.Deck, oracle cards.Oracle, queue *claims.Queue, players []*player.Player, opts Options) *Dealer {
	if opts.Sink == nil {
		opts.Sink = display.Discard
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.GameID == "" {
		opts.GameID = uuid.NewString()
	}

	sorted := slices.Clone(players)
	slices.SortFunc(sorted, func(a, b *player.Player) int { return a.ID() - b.ID() })
	byID := make(map[int]*player.Player, len(sorted))
	for _, p := range sorted {
		byID[p.ID()] = p
	}

	return &Dealer{
		id:      opts.GameID,
		table:   tbl,
		deck:    deck,
		oracle:  oracle,
		queue:   queue,
		timer:   roundtimer.New(opts.RoundDuration, opts.Warning, opts.Now),
		sink:    opts.Sink,
		players: sorted,
		byID:    byID,
		quit:    make(chan struct{}),
		opts:    opts,
	}
}

// ID returns the game id.
func (d *Dealer) ID() string {
	return d.id
}

// Mode returns the round timer mode.
func (d *Dealer) Mode() roundtimer.Mode {
	return d.timer.Mode()
}

// Players returns the players in ascending id order.
func (d *Dealer) Players() []*player.Player {
	return slices.Clone(d.players)
}

// Scores returns every player's score in ascending id order.
func (d *Dealer) Scores() []Score {
	out := make([]Score, len(d.players))
	for i, p := range d.players {
		out[i] = Score{Player: p.ID(), Score: p.Score()}
	}
	return out
}

// Stats returns a copy of the game counters.
func (d *Dealer) Stats() Stats {
	return Stats{
		Rounds:     d.rounds.Load(),
		Claims:     d.drained.Load(),
		Valid:      d.valid.Load(),
		Invalid:    d.invalid.Load(),
		Reshuffles: d.reshuffles.Load(),
	}
}

// Retired returns the cards removed as matched sets, in removal order.
func (d *Dealer) Retired() []cards.Card {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.retired)
}

// Terminate asks the game to finish. The dealer completes the claim it is
// validating, announces the winners and stops the players. Safe to call from
// any goroutine, any number of times.
func (d *Dealer) Terminate() {
	d.terminate.Store(true)
	d.quitOnce.Do(func() { close(d.quit) })
}

// Run plays the game to the end. Canceling ctx terminates the game the same
// way Terminate does. The returned error lists players that did not stop in
// time.
func (d *Dealer) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, d.Terminate)
	defer stop()

	log.Printf("Game %s starting with %d players in %s mode", d.id, len(d.players), d.timer.Mode())
	for _, p := range d.players {
		p.Start()
	}

	for !d.shouldFinish() {
		d.rounds.Add(1)
		d.withBarrier(d.placeCardsOnTable)
		log.Printf("Game %s round %d dealt, %d cards left in deck", d.id, d.rounds.Load(), d.deck.Len())
		d.timerLoop()
		d.timer.Publish(d.sink)
		d.withBarrier(d.removeAllCardsFromTable)
	}

	d.discardPending()
	d.announceWinners()
	err := d.exitGame()
	log.Printf("Game %s finished after %d rounds", d.id, d.rounds.Load())
	return err
}

// shouldFinish reports whether the game is over: terminated, or no set can be
// formed from the cards that are left.
func (d *Dealer) shouldFinish() bool {
	return d.terminate.Load() || len(d.oracle.FindSets(d.deck.Cards(), 1)) == 0
}

// withBarrier runs fn while holding every player's gate.
func (d *Dealer) withBarrier(fn func()) {
	for _, p := range d.players {
		p.AcquireGate()
	}
	defer func() {
		for _, p := range d.players {
			p.ReleaseGate()
		}
	}()
	fn()
}

// timerLoop runs one round: it refreshes the display and validates claims
// until the round ends.
func (d *Dealer) timerLoop() {
	d.timer.Reset()
	for !d.terminate.Load() && !d.timer.Expired() && !d.needReshuffle {
		d.timer.Publish(d.sink)
		d.sleepUntilWokenOrTimeout()
		d.drainClaims()
	}
}

// sleepUntilWokenOrTimeout blocks until a claim is submitted, the refresh
// interval passes or the game is terminated. It returns at once if claims are
// already queued.
func (d *Dealer) sleepUntilWokenOrTimeout() {
	if d.queue.Len() > 0 {
		return
	}

	var tick <-chan time.Time
	if interval, ok := d.timer.PollInterval(); ok {
		t := time.NewTimer(interval)
		defer t.Stop()
		tick = t.C
	}

	select {
	case <-d.queue.Wake():
	case <-tick:
	case <-d.quit:
	}
}

// drainClaims validates queued claims in FIFO order until the queue is empty
// or the game is terminated.
func (d *Dealer) drainClaims() {
	for !d.terminate.Load() {
		c, ok := d.queue.Next()
		if !ok {
			return
		}
		d.drained.Add(1)

		slots, ok := d.validate(c)
		if !ok {
			d.invalid.Add(1)
			c.Resolve(claims.Invalid)
			continue
		}

		d.valid.Add(1)
		d.withBarrier(func() {
			d.removeCardsFromTable(slots)
			d.placeCardsOnTable()
			d.timer.Reset()
		})
		score := d.byID[c.PlayerID].AwardPoint()
		log.Printf("Game %s: player %d found a set on slots %v, score %d", d.id, c.PlayerID, slots, score)
		c.Resolve(claims.Valid)
	}
}

// validate checks a claim against the table as it is now. The owner's current
// tokens are used, not the slots recorded at submission: a token revoked since
// then makes the claim stale, and a stale claim is invalid.
func (d *Dealer) validate(c *claims.Claim) ([3]int, bool) {
	var slots [3]int

	p, ok := d.byID[c.PlayerID]
	if !ok {
		return slots, false
	}
	tokens := p.Tokens()
	if len(tokens) < player.MaxTokens {
		return slots, false
	}

	var set [3]cards.Card
	for i := range slots {
		slots[i] = tokens[i]
		card, ok := d.table.Card(slots[i])
		if !ok {
			return slots, false
		}
		set[i] = card
	}
	return slots, d.oracle.IsValidSet(set[0], set[1], set[2])
}

// removeCardsFromTable retires the cards of a valid set. Every player's
// tokens on those slots go first. Must be called under the barrier.
func (d *Dealer) removeCardsFromTable(slots [3]int) {
	for _, p := range d.players {
		for _, s := range slots {
			p.RevokeToken(s)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range slots {
		if card, ok := d.table.RemoveCard(s); ok {
			d.retired = append(d.retired, card)
		}
	}
}

// placeCardsOnTable fills empty slots from the deck, lowest slot first.
// A completely empty table is shuffled into first. Must be called under the
// barrier.
func (d *Dealer) placeCardsOnTable() {
	if d.table.CountCards() == 0 {
		d.deck.Shuffle()
	}
	for !d.deck.IsEmpty() {
		slot := d.table.FirstEmptySlot()
		if slot < 0 {
			break
		}
		card, _ := d.deck.Pop()
		if err := d.table.PlaceCard(card, slot); err != nil {
			// FirstEmptySlot just reported the slot empty under the barrier.
			log.Printf("Game %s: %v", d.id, err)
			d.deck.Push(card)
			break
		}
	}

	if d.timer.Mode() != roundtimer.Countdown {
		d.needReshuffle = len(d.oracle.FindSets(d.table.Cards(), 1)) == 0
		if d.needReshuffle {
			d.reshuffles.Add(1)
			log.Printf("Game %s: no set on the table, reshuffling", d.id)
		}
	}

	if d.opts.Hints {
		d.sink.ShowHints(d.hints())
	}
}

// hints lists every set on the table with the slots holding it.
func (d *Dealer) hints() []display.Hint {
	snap := d.table.Snapshot()
	slotOf := make(map[cards.Card]int, len(snap))
	pool := make([]cards.Card, len(snap))
	for i, s := range snap {
		slotOf[s.Card] = s.Index
		pool[i] = s.Card
	}

	sets := d.oracle.FindSets(pool, 0)
	out := make([]display.Hint, 0, len(sets))
	for _, set := range sets {
		h := display.Hint{Cards: set}
		for i, c := range set {
			h.Slots[i] = slotOf[c]
		}
		out = append(out, h)
	}
	return out
}

// removeAllCardsFromTable clears every token and returns every card on the
// table to the deck. Collecting an empty table changes nothing. Must be called
// under the barrier.
func (d *Dealer) removeAllCardsFromTable() {
	for _, p := range d.players {
		p.RevokeAll()
	}
	for slot := 0; slot < d.table.Capacity(); slot++ {
		if card, ok := d.table.RemoveCard(slot); ok {
			d.deck.Push(card)
		}
	}
}

// discardPending rejects claims left in the queue when the game ends so no
// player is left waiting on a verdict.
func (d *Dealer) discardPending() {
	n := 0
	for {
		c, ok := d.queue.Next()
		if !ok {
			break
		}
		c.Resolve(claims.Invalid)
		n++
	}
	if n > 0 {
		log.Printf("Game %s: discarded %d pending claims", d.id, n)
	}
}

// announceWinners reports every player with the top score. It only ever
// reports once.
func (d *Dealer) announceWinners() {
	if d.announced {
		return
	}
	d.announced = true

	scores := make(map[int]int, len(d.players))
	for _, p := range d.players {
		scores[p.ID()] = p.Score()
	}
	ids := winners(scores)
	log.Printf("Game %s winners: %v", d.id, ids)
	d.sink.AnnounceWinners(ids)
}

// winners returns the ids holding the maximum score, ascending.
func winners(scores map[int]int) []int {
	best := 0
	first := true
	for _, s := range scores {
		if first || s > best {
			best, first = s, false
		}
	}

	var ids []int
	for id, s := range scores {
		if s == best {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// exitGame stops the players from last to first, waiting for each.
func (d *Dealer) exitGame() error {
	var errs []error
	for i := len(d.players) - 1; i >= 0; i-- {
		p := d.players[i]
		p.Terminate()

		ctx, cancel := context.WithTimeout(context.Background(), d.opts.ShutdownTimeout)
		err := p.AwaitStopped(ctx)
		cancel()
		if err != nil {
			log.Printf("Game %s: %v", d.id, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
