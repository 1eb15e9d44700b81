package display

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/setdealer/internal/cards"
)

// TestRecorder verifies every call is recorded with its payload.
func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.SetCountdown(3*time.Second, false)
	r.SetCountdown(3*time.Second, false)
	r.PlaceCard(7, 2)
	r.PlaceToken(1, 2)
	r.AnnounceWinners([]int{0, 2})

	assert.Len(t, r.OfType(EventCountdown), 2, "recorder keeps repeated frames")

	ev, ok := r.Last(EventPlaceCard)
	require.True(t, ok)
	assert.Equal(t, cards.Card(7), *ev.Card)
	assert.Equal(t, 2, *ev.Slot)

	ev, ok = r.Last(EventWinners)
	require.True(t, ok)
	assert.Equal(t, []int{0, 2}, ev.Winners)

	r.Reset()
	assert.Empty(t, r.Events())
	_, ok = r.Last(EventWinners)
	assert.False(t, ok)
}

// TestEmitterSuppressesRepeatedTimerFrames verifies remote sinks only see
// timer frames whose value or warning state changed.
func TestEmitterSuppressesRepeatedTimerFrames(t *testing.T) {
	var got []Event
	e := newEmitter("game-1", func(ev Event) { got = append(got, ev) })

	e.SetCountdown(5*time.Second, false)
	e.SetCountdown(5*time.Second, false)
	e.SetCountdown(5*time.Second, true)
	e.SetCountdown(4*time.Second, true)
	e.SetElapsed(4 * time.Second)

	require.Len(t, got, 4)
	assert.Equal(t, "game-1", got[0].Game)
	assert.False(t, got[0].At.IsZero())
	assert.True(t, got[2].Warn)
	assert.Equal(t, int64(4000), *got[3].Millis)
	assert.Equal(t, EventElapsed, got[3].Type)
}

// TestMulti verifies fan-out reaches every sink and skips nil ones.
func TestMulti(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := Multi(a, nil, b)

	m.SetScore(1, 3)
	m.SetFreeze(1, time.Second)
	m.ShowHints([]Hint{{Slots: [3]int{0, 1, 2}, Cards: [3]cards.Card{0, 1, 2}}})
	m.RemoveToken(1, 4)
	m.RemoveCard(4)
	m.SetElapsed(time.Second)

	for _, r := range []*Recorder{a, b} {
		assert.Len(t, r.Events(), 6)
		ev, ok := r.Last(EventScore)
		require.True(t, ok)
		assert.Equal(t, 3, *ev.Score)
	}
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard.SetCountdown(time.Second, true)
		Discard.AnnounceWinners([]int{1})
		Discard.PlaceCard(1, 1)
	})
}

// TestLog verifies milestones reach the logger and timer frames do not.
func TestLog(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(log.New(&buf, "", 0))

	l.SetCountdown(time.Second, false)
	l.PlaceCard(3, 0)
	l.ShowHints(nil)
	l.ShowHints([]Hint{{Slots: [3]int{0, 1, 2}, Cards: [3]cards.Card{0, 1, 2}}})
	l.SetScore(2, 5)
	l.SetFreeze(2, 0)
	l.SetFreeze(2, time.Second)
	l.AnnounceWinners([]int{2})
	l.AnnounceWinners([]int{0, 2})

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 6)
	assert.Contains(t, out, "no set on the table")
	assert.Contains(t, out, "slots [0 1 2]")
	assert.Contains(t, out, "Player 2 score is now 5")
	assert.Contains(t, out, "Player 2 frozen for 1s")
	assert.Contains(t, out, "Player 2 wins")
	assert.Contains(t, out, "Tie between players [0 2]")
}

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

// TestPublisher verifies events land on per-type subjects as JSON.
func TestPublisher(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "setdealer", "g-42")

	p.PlaceToken(3, 9)
	p.AnnounceWinners([]int{3})

	require.Len(t, conn.subjects, 2)
	assert.Equal(t, "setdealer.place_token", conn.subjects[0])
	assert.Equal(t, "setdealer.winners", conn.subjects[1])

	var ev Event
	require.NoError(t, json.Unmarshal(conn.payloads[0], &ev))
	assert.Equal(t, EventPlaceToken, ev.Type)
	assert.Equal(t, "g-42", ev.Game)
	assert.Equal(t, 3, *ev.Player)
	assert.Equal(t, 9, *ev.Slot)
}

// TestPublisherErrorIsNotFatal verifies a failing broker does not panic.
func TestPublisherErrorIsNotFatal(t *testing.T) {
	conn := &fakeConn{err: errors.New("broker down")}
	p := NewPublisher(conn, "setdealer", "g")

	assert.NotPanics(t, func() { p.SetScore(0, 1) })
	assert.Len(t, conn.subjects, 1)
}

// TestHubBroadcast verifies a connected spectator receives events.
func TestHubBroadcast(t *testing.T) {
	hub := NewHub("g-1")
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 },
		time.Second, 10*time.Millisecond)

	hub.PlaceCard(12, 4)

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, EventPlaceCard, ev.Type)
	assert.Equal(t, "g-1", ev.Game)
	assert.Equal(t, cards.Card(12), *ev.Card)
	assert.Equal(t, 4, *ev.Slot)
}

// TestHubDropsDisconnectedClients verifies a closed spectator is removed.
func TestHubDropsDisconnectedClients(t *testing.T) {
	hub := NewHub("g-1")
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Clients() == 1 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Close())

	assert.Eventually(t, func() bool { return hub.Clients() == 0 },
		2*time.Second, 10*time.Millisecond)
	assert.NotPanics(t, func() { hub.SetScore(1, 1) })
}

// TestHubClose verifies Close disconnects everyone.
func TestHubClose(t *testing.T) {
	hub := NewHub("g-1")
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 },
		time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = ws.ReadMessage()
	assert.Error(t, err, "server closes the connection")
}
