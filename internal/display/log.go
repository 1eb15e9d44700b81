package display

import (
	"log"
	"time"

	"github.com/dreamware/setdealer/internal/cards"
)

// Log is a Sink that writes game milestones to a standard logger.
// Timer frames and individual card/token moves are too chatty for a log and
// are dropped.
type Log struct {
	logger *log.Logger
}

// NewLog creates a log sink. A nil logger uses the standard logger.
func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) SetCountdown(time.Duration, bool) {}
func (l *Log) SetElapsed(time.Duration) {}
func (l *Log) PlaceCard(cards.Card, int) {}
func (l *Log) RemoveCard(int) {}
func (l *Log) PlaceToken(int, int) {}
func (l *Log) RemoveToken(int, int) {}

func (l *Log) ShowHints(hints []Hint) {
	if len(hints) == 0 {
		l.logger.Printf("Hint: no set on the table")
		return
	}
	for _, h := range hints {
		l.logger.Printf("Hint: slots %v hold set %v", h.Slots, h.Cards)
	}
}

func (l *Log) AnnounceWinners(players []int) {
	if len(players) == 1 {
		l.logger.Printf("Player %d wins", players[0])
		return
	}
	l.logger.Printf("Tie between players %v", players)
}

func (l *Log) SetScore(player, score int) {
	l.logger.Printf("Player %d score is now %d", player, score)
}

func (l *Log) SetFreeze(player int, remaining time.Duration) {
	if remaining > 0 {
		l.logger.Printf("Player %d frozen for %v", player, remaining)
	}
}
