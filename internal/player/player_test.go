package player

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/setdealer/internal/cards"
	"github.com/dreamware/setdealer/internal/claims"
	"github.com/dreamware/setdealer/internal/display"
	"github.com/dreamware/setdealer/internal/table"
)

// newTable returns a table with cards 0..n-1 on slots 0..n-1.
func newTable(t *testing.T, capacity, n int) *table.Table {
	t.Helper()
	tbl := table.New(capacity, nil)
	for i := 0; i < n; i++ {
		require.NoError(t, tbl.PlaceCard(cards.Card(i), i))
	}
	return tbl
}

// sequence returns a strategy that walks the given slots in order and then
// idles.
func sequence(slots ...int) Strategy {
	var mu sync.Mutex
	next := 0
	return StrategyFunc(func([]table.Slot, []int) (int, bool) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(slots) {
			return 0, false
		}
		s := slots[next]
		next++
		return s, true
	})
}

// TestActPlacesTokensAndClaims verifies the third token submits a claim.
func TestActPlacesTokensAndClaims(t *testing.T) {
	tbl := newTable(t, 12, 12)
	q := claims.NewQueue()
	p := New(1, tbl, q, nil, Options{})

	assert.Nil(t, p.Act(2))
	assert.Nil(t, p.Act(5))
	assert.Equal(t, []int{2, 5}, p.Tokens())
	assert.True(t, tbl.HasToken(1, 2))
	assert.Equal(t, 0, q.Len())

	c := p.Act(7)
	require.NotNil(t, c)
	assert.Equal(t, 1, c.PlayerID)
	assert.Equal(t, [3]int{2, 5, 7}, c.Slots)
	assert.Equal(t, claims.Pending, c.Outcome())

	queued, ok := q.Next()
	require.True(t, ok)
	assert.Same(t, c, queued)

	assert.Nil(t, p.Act(8), "a fourth token is refused")
	assert.Equal(t, []int{2, 5, 7}, p.Tokens())
}

// TestActTogglesOff verifies acting on an own token removes it.
func TestActTogglesOff(t *testing.T) {
	tbl := newTable(t, 12, 12)
	p := New(0, tbl, claims.NewQueue(), nil, Options{})

	p.Act(3)
	p.Act(3)

	assert.Empty(t, p.Tokens())
	assert.False(t, tbl.HasToken(0, 3))
}

// TestActIgnoresEmptySlots verifies no token lands on an empty slot.
func TestActIgnoresEmptySlots(t *testing.T) {
	tbl := newTable(t, 12, 4)
	p := New(0, tbl, claims.NewQueue(), nil, Options{})

	assert.Nil(t, p.Act(9))
	assert.Nil(t, p.Act(-1))
	assert.Empty(t, p.Tokens())
}

func TestRevoke(t *testing.T) {
	tbl := newTable(t, 12, 12)
	p := New(0, tbl, claims.NewQueue(), nil, Options{})
	p.Act(1)
	p.Act(4)

	p.AcquireGate()
	assert.True(t, p.RevokeToken(4))
	assert.False(t, p.RevokeToken(4))
	p.ReleaseGate()
	assert.Equal(t, []int{1}, p.Tokens())
	assert.False(t, tbl.HasToken(0, 4))

	p.AcquireGate()
	p.RevokeAll()
	p.ReleaseGate()
	assert.Empty(t, p.Tokens())
	assert.False(t, tbl.HasToken(0, 1))
}

// TestLifecycle verifies Start, Terminate and AwaitStopped.
func TestLifecycle(t *testing.T) {
	tbl := newTable(t, 12, 12)
	p := New(0, tbl, claims.NewQueue(), sequence(), Options{ActionInterval: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, New(9, tbl, nil, nil, Options{}).AwaitStopped(ctx),
		"never started counts as stopped")

	p.Start()
	p.Start()
	p.Terminate()
	p.Terminate()
	assert.NoError(t, p.AwaitStopped(ctx))
}

// TestAwaitStoppedReportsStuckPlayer verifies a player blocked on its gate
// is reported rather than waited on forever.
func TestAwaitStoppedReportsStuckPlayer(t *testing.T) {
	tbl := newTable(t, 12, 12)
	p := New(3, tbl, claims.NewQueue(), sequence(0, 1), Options{})

	p.AcquireGate()
	p.Start()
	p.Terminate()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.AwaitStopped(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "player 3 did not stop")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	p.ReleaseGate()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	assert.NoError(t, p.AwaitStopped(ctx2))
}

// TestValidVerdict verifies a player resumes after a valid claim and the
// awarded point is published.
func TestValidVerdict(t *testing.T) {
	tbl := newTable(t, 12, 12)
	q := claims.NewQueue()
	rec := display.NewRecorder()
	p := New(2, tbl, q, sequence(0, 1, 2), Options{Sink: rec, ActionInterval: time.Millisecond})

	p.Start()
	defer func() {
		p.Terminate()
		_ = p.AwaitStopped(context.Background())
	}()

	var c *claims.Claim
	require.Eventually(t, func() bool {
		var ok bool
		c, ok = q.Next()
		return ok
	}, 2*time.Second, time.Millisecond)
	assert.Eventually(t, p.Waiting, time.Second, time.Millisecond)

	p.AcquireGate()
	for _, s := range c.Slots {
		p.RevokeToken(s)
	}
	p.ReleaseGate()
	assert.Equal(t, 1, p.AwardPoint())
	c.Resolve(claims.Valid)

	require.Eventually(t, func() bool { return !p.Waiting() }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 1, p.Score())
	ev, ok := rec.Last(display.EventScore)
	require.True(t, ok)
	assert.Equal(t, 2, *ev.Player)
	assert.Equal(t, 1, *ev.Score)
}

// TestInvalidVerdict verifies an invalid claim costs a freeze and the
// player's tokens.
func TestInvalidVerdict(t *testing.T) {
	tbl := newTable(t, 12, 12)
	q := claims.NewQueue()
	rec := display.NewRecorder()
	p := New(0, tbl, q, sequence(0, 1, 5), Options{
		Sink:           rec,
		ActionInterval: time.Millisecond,
		PenaltyFreeze:  20 * time.Millisecond,
	})

	p.Start()
	defer func() {
		p.Terminate()
		_ = p.AwaitStopped(context.Background())
	}()

	var c *claims.Claim
	require.Eventually(t, func() bool {
		var ok bool
		c, ok = q.Next()
		return ok
	}, 2*time.Second, time.Millisecond)
	c.Resolve(claims.Invalid)

	require.Eventually(t, func() bool { return len(p.Tokens()) == 0 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 0, p.Score())

	freezes := rec.OfType(display.EventFreeze)
	require.Len(t, freezes, 2)
	assert.Equal(t, int64(20), *freezes[0].Millis)
	assert.Equal(t, int64(0), *freezes[1].Millis)
	for s := 0; s < 12; s++ {
		assert.False(t, tbl.HasToken(0, s))
	}
}

// TestTerminateWhileWaiting verifies a player blocked on a verdict still
// stops promptly.
func TestTerminateWhileWaiting(t *testing.T) {
	tbl := newTable(t, 12, 12)
	q := claims.NewQueue()
	p := New(0, tbl, q, sequence(0, 1, 2), Options{})

	p.Start()
	require.Eventually(t, func() bool { return q.Len() == 1 }, 2*time.Second, time.Millisecond)

	p.Terminate()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, p.AwaitStopped(ctx))
}

func TestProgressStamp(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p := New(0, table.New(3, nil), claims.NewQueue(), nil, Options{Now: func() time.Time { return now }})

	assert.True(t, p.LastProgress().Equal(now))
	assert.False(t, p.Waiting())
}

func TestRandomStrategy(t *testing.T) {
	r := NewRandom(rand.New(rand.NewSource(1)))
	occupied := []table.Slot{{Index: 3}, {Index: 8}}

	for i := 0; i < 20; i++ {
		slot, ok := r.Choose(occupied, nil)
		require.True(t, ok)
		assert.Contains(t, []int{3, 8}, slot)
	}
	_, ok := r.Choose(nil, nil)
	assert.False(t, ok)

	slot, ok := NewRandom(nil).Choose(occupied, nil)
	assert.True(t, ok)
	assert.Contains(t, []int{3, 8}, slot)
}

func TestSeekerStrategy(t *testing.T) {
	s := NewSeeker(cards.NewFeatureOracle(4, 3))
	// Cards 0, 1, 2 form a set; card 4 does not belong to it.
	occupied := []table.Slot{
		{Index: 0, Card: 4},
		{Index: 5, Card: 0},
		{Index: 6, Card: 1},
		{Index: 9, Card: 2},
	}

	t.Run("picks a set slot", func(t *testing.T) {
		slot, ok := s.Choose(occupied, nil)
		require.True(t, ok)
		assert.Equal(t, 5, slot)
	})

	t.Run("continues the set", func(t *testing.T) {
		slot, ok := s.Choose(occupied, []int{5, 6})
		require.True(t, ok)
		assert.Equal(t, 9, slot)
	})

	t.Run("takes back a stray token", func(t *testing.T) {
		slot, ok := s.Choose(occupied, []int{0})
		require.True(t, ok)
		assert.Equal(t, 0, slot)
	})

	t.Run("no set clears tokens then idles", func(t *testing.T) {
		none := []table.Slot{{Index: 0, Card: 0}, {Index: 1, Card: 1}}
		slot, ok := s.Choose(none, []int{1})
		require.True(t, ok)
		assert.Equal(t, 1, slot)
		_, ok = s.Choose(none, nil)
		assert.False(t, ok)
	})
}
