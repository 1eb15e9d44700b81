// Package config loads the fixed parameters of a game.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// SETDEALER_* environment variables. The result is validated once and is
// read-only for the lifetime of the game.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Config holds every tunable of a game.
type Config struct {
	ListenAddr  string `yaml:"listen_addr" env:"SETDEALER_LISTEN_ADDR"`
	NATSURL     string `yaml:"nats_url" env:"SETDEALER_NATS_URL"`
	NATSSubject string `yaml:"nats_subject" env:"SETDEALER_NATS_SUBJECT"`

	DeckSize     int `yaml:"deck_size" env:"SETDEALER_DECK_SIZE"`
	TableSize    int `yaml:"table_size" env:"SETDEALER_TABLE_SIZE"`
	FeatureCount int `yaml:"feature_count" env:"SETDEALER_FEATURE_COUNT"`
	FeatureSize  int `yaml:"feature_size" env:"SETDEALER_FEATURE_SIZE"`
	Players      int `yaml:"players" env:"SETDEALER_PLAYERS"`

	// RoundDurationMillis selects the timer mode: > 0 countdown,
	// 0 elapsed only, < 0 unbounded.
	RoundDurationMillis    int64 `yaml:"round_duration_millis" env:"SETDEALER_ROUND_DURATION_MILLIS"`
	WarningMillis          int64 `yaml:"warning_millis" env:"SETDEALER_WARNING_MILLIS"`
	PointFreezeMillis      int64 `yaml:"point_freeze_millis" env:"SETDEALER_POINT_FREEZE_MILLIS"`
	PenaltyFreezeMillis    int64 `yaml:"penalty_freeze_millis" env:"SETDEALER_PENALTY_FREEZE_MILLIS"`
	ActionIntervalMillis   int64 `yaml:"action_interval_millis" env:"SETDEALER_ACTION_INTERVAL_MILLIS"`
	ShutdownTimeoutMillis  int64 `yaml:"shutdown_timeout_millis" env:"SETDEALER_SHUTDOWN_TIMEOUT_MILLIS"`
	LivenessIntervalMillis int64 `yaml:"liveness_interval_millis" env:"SETDEALER_LIVENESS_INTERVAL_MILLIS"`
	LivenessStallMillis    int64 `yaml:"liveness_stall_millis" env:"SETDEALER_LIVENESS_STALL_MILLIS"`

	// Seed for the deck and computer players; 0 picks a random seed.
	Seed int64 `yaml:"seed" env:"SETDEALER_SEED"`

	Hints bool `yaml:"hints" env:"SETDEALER_HINTS"`
}

// Default returns the classic game: 81 cards, 12 slots, one minute rounds.
func Default() Config {
	return Config{
		ListenAddr:             ":8080",
		NATSSubject:            "setdealer",
		DeckSize:               81,
		TableSize:              12,
		FeatureCount:           4,
		FeatureSize:            3,
		Players:                2,
		RoundDurationMillis:    60000,
		WarningMillis:          5000,
		ActionIntervalMillis:   50,
		ShutdownTimeoutMillis:  5000,
		LivenessIntervalMillis: 1000,
		LivenessStallMillis:    10000,
	}
}

// Load builds a config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the values describe a playable game.
func (c Config) Validate() error {
	if c.FeatureSize < 2 {
		return fmt.Errorf("%w: feature_size must be at least 2, got %d", ErrInvalid, c.FeatureSize)
	}
	if c.FeatureCount < 1 {
		return fmt.Errorf("%w: feature_count must be at least 1, got %d", ErrInvalid, c.FeatureCount)
	}
	if universe := math.Pow(float64(c.FeatureSize), float64(c.FeatureCount)); c.DeckSize < 3 || float64(c.DeckSize) > universe {
		return fmt.Errorf("%w: deck_size must be in [3, %.0f], got %d", ErrInvalid, universe, c.DeckSize)
	}
	if c.TableSize < 3 {
		return fmt.Errorf("%w: table_size must be at least 3, got %d", ErrInvalid, c.TableSize)
	}
	if c.Players < 1 {
		return fmt.Errorf("%w: players must be at least 1, got %d", ErrInvalid, c.Players)
	}
	for name, v := range map[string]int64{
		"warning_millis":         c.WarningMillis,
		"point_freeze_millis":    c.PointFreezeMillis,
		"penalty_freeze_millis":  c.PenaltyFreezeMillis,
		"action_interval_millis": c.ActionIntervalMillis,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalid, name, v)
		}
	}
	if c.ShutdownTimeoutMillis <= 0 {
		return fmt.Errorf("%w: shutdown_timeout_millis must be positive, got %d", ErrInvalid, c.ShutdownTimeoutMillis)
	}
	if c.LivenessIntervalMillis <= 0 || c.LivenessStallMillis <= 0 {
		return fmt.Errorf("%w: liveness intervals must be positive", ErrInvalid)
	}
	return nil
}

func millis(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// RoundDuration returns the configured round duration; its sign selects the
// timer mode.
func (c Config) RoundDuration() time.Duration { return millis(c.RoundDurationMillis) }

// Warning returns the countdown warning window.
func (c Config) Warning() time.Duration { return millis(c.WarningMillis) }

// PointFreeze returns how long a player sits out after a valid claim.
func (c Config) PointFreeze() time.Duration { return millis(c.PointFreezeMillis) }

// PenaltyFreeze returns how long a player sits out after an invalid claim.
func (c Config) PenaltyFreeze() time.Duration { return millis(c.PenaltyFreezeMillis) }

// ActionInterval returns the pause between computer player actions.
func (c Config) ActionInterval() time.Duration { return millis(c.ActionIntervalMillis) }

// ShutdownTimeout bounds the wait for each player to stop.
func (c Config) ShutdownTimeout() time.Duration { return millis(c.ShutdownTimeoutMillis) }

// LivenessInterval returns the liveness probe period.
func (c Config) LivenessInterval() time.Duration { return millis(c.LivenessIntervalMillis) }

// LivenessStall returns the idle time after which a probe fails.
func (c Config) LivenessStall() time.Duration { return millis(c.LivenessStallMillis) }
