// Package liveness watches player goroutines for lack of progress.
//
// A player that neither completes a step nor waits on a verdict for longer
// than the stall threshold is suspicious; after several consecutive
// suspicious probes it is marked stalled and a callback fires once. The
// monitor only reports: it never restarts or kills a player, because a stuck
// player is a bug to diagnose.
package liveness

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Status values reported for a player.
const (
	StatusUnknown = "unknown"
	StatusActive  = "active"
	StatusStalled = "stalled"
)

// Probe is a point-in-time view of one player supplied by the caller.
type Probe struct {
	LastProgress time.Time // When the player last completed a step
	ID           int       // Player id
	Waiting      bool      // Blocked on a claim verdict or frozen
}

// PlayerHealth tracks the liveness status of a single player.
// Thread-safe: Protected by Monitor's mutex when accessed.
type PlayerHealth struct {
	LastCheck         time.Time // Timestamp of the last probe
	LastProgress      time.Time // Progress stamp seen on the last probe
	Status            string    // StatusUnknown, StatusActive or StatusStalled
	PlayerID          int
	ConsecutiveStalls int // Number of consecutive probes without progress
}

// Monitor performs periodic liveness probes on every player of a game.
// Thread-safe: All methods are safe for concurrent access.
type Monitor struct {
	players    map[int]*PlayerHealth
	checkFunc  func(p Probe) error // Returns an error when the probe looks stuck
	onStalled  func(playerID int)  // Callback when a player becomes stalled
	now        func() time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	interval   time.Duration // How often to probe
	stallAfter time.Duration // Idle time that counts as a failed probe
	mu         sync.RWMutex
	wg         sync.WaitGroup
	maxStalls  int // Failed probes before marking stalled
}

// NewMonitor creates a monitor that probes every interval and treats a
// player idle for longer than stallAfter as not progressing.
// Players are marked stalled after 3 consecutive failed probes.
//
// Example:
//
//	monitor := liveness.NewMonitor(time.Second, 10*time.Second)
//	go monitor.Start(ctx, probes)
func NewMonitor(interval, stallAfter time.Duration) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Monitor{
		interval:   interval,
		stallAfter: stallAfter,
		maxStalls:  3,
		players:    make(map[int]*PlayerHealth),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetOnStalled sets the callback invoked when a player becomes stalled.
// The callback runs on its own goroutine, once per transition.
func (m *Monitor) SetOnStalled(callback func(playerID int)) {
	m.onStalled = callback
}

// SetCheckFunction overrides the default progress check.
// This is useful for testing.
func (m *Monitor) SetCheckFunction(checkFunc func(p Probe) error) {
	m.checkFunc = checkFunc
}

// Start probes the players returned by provider until ctx or the monitor is
// canceled. It blocks; run it on its own goroutine.
//
// Parameters:
//   - ctx: Context for cancellation (nil uses the monitor's internal context)
//   - provider: Function that returns the current probes
func (m *Monitor) Start(ctx context.Context, provider func() []Probe) {
	m.wg.Add(1)
	defer m.wg.Done()

	if ctx == nil {
		ctx = m.ctx
	}
	if m.checkFunc == nil {
		m.checkFunc = m.defaultCheck
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Printf("Liveness monitor started with interval %v", m.interval)

	m.checkAll(provider())

	for {
		select {
		case <-ticker.C:
			m.checkAll(provider())
		case <-ctx.Done():
			log.Println("Liveness monitor stopping due to context cancellation")
			return
		case <-m.ctx.Done():
			log.Println("Liveness monitor stopping due to internal cancellation")
			return
		}
	}
}

// Stop cancels the monitor and waits for Start to return.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
	log.Println("Liveness monitor stopped")
}

// checkAll probes every player and forgets players no longer reported.
func (m *Monitor) checkAll(probes []Probe) {
	current := make(map[int]bool, len(probes))
	for _, p := range probes {
		current[p.ID] = true
		m.checkPlayer(p)
	}

	m.mu.Lock()
	for id := range m.players {
		if !current[id] {
			delete(m.players, id)
		}
	}
	m.mu.Unlock()
}

// checkPlayer updates one player's record from a probe and fires onStalled
// on the transition into StatusStalled.
func (m *Monitor) checkPlayer(p Probe) {
	err := m.checkFunc(p)

	m.mu.Lock()
	defer m.mu.Unlock()

	health, exists := m.players[p.ID]
	if !exists {
		health = &PlayerHealth{
			PlayerID: p.ID,
			Status:   StatusUnknown,
		}
		m.players[p.ID] = health
	}
	health.LastCheck = m.now()
	health.LastProgress = p.LastProgress

	if err != nil {
		health.ConsecutiveStalls++
		log.Printf("Player %d made no progress (probe %d/%d): %v",
			p.ID, health.ConsecutiveStalls, m.maxStalls, err)

		if health.ConsecutiveStalls >= m.maxStalls {
			previous := health.Status
			health.Status = StatusStalled
			if previous != StatusStalled && m.onStalled != nil {
				log.Printf("Player %d marked as stalled after %d probes",
					p.ID, health.ConsecutiveStalls)
				go m.onStalled(p.ID)
			}
		}
		return
	}

	if health.Status == StatusStalled {
		log.Printf("Player %d is making progress again", p.ID)
	}
	health.Status = StatusActive
	health.ConsecutiveStalls = 0
}

// defaultCheck fails a probe whose player is neither waiting nor recently
// active.
func (m *Monitor) defaultCheck(p Probe) error {
	if p.Waiting {
		return nil
	}
	idle := m.now().Sub(p.LastProgress)
	if idle > m.stallAfter {
		return fmt.Errorf("idle for %v", idle.Round(time.Millisecond))
	}
	return nil
}

// Status returns a copy of one player's record, or nil if unknown.
func (m *Monitor) Status(playerID int) *PlayerHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	health, exists := m.players[playerID]
	if !exists {
		return nil
	}
	cp := *health
	return &cp
}

// All returns a copy of every player's record keyed by player id.
func (m *Monitor) All() map[int]*PlayerHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[int]*PlayerHealth, len(m.players))
	for id, health := range m.players {
		cp := *health
		result[id] = &cp
	}
	return result
}

// IsStalled reports whether a player is currently marked stalled.
func (m *Monitor) IsStalled(playerID int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	health, exists := m.players[playerID]
	return exists && health.Status == StatusStalled
}
