// Package auth admits device requests using a shared API key plus a timestamp
// that must fall inside a replay window.
//
// The timestamp window replaces nonce tracking: a captured request stays valid
// for the whole window, but admission needs no shared mutable state, so Gate is
// safe for concurrent use without locking.
package auth

import (
	"errors"
	"time"
)

// Admission errors. Each one is a distinct rejection reason.
var (
	ErrMissingCredential  = errors.New("missing auth headers")
	ErrUnknownKey         = errors.New("invalid API key")
	ErrMalformedTimestamp = errors.New("invalid timestamp")
	ErrStaleTimestamp     = errors.New("stale timestamp")
)

// GateConfig holds configuration for the Gate.
type GateConfig struct {
	// Keys is the set of accepted API keys.
	Keys *KeySet

	// Window is the replay tolerance.
	// Default: 60 seconds
	Window time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Gate decides whether a presented key and timestamp are admitted.
type Gate struct {
	keys   *KeySet
	window time.Duration
	now    func() time.Time
}

// NewGate creates a new Gate.
func NewGate(cfg GateConfig) *Gate {
	window := cfg.Window
	if window <= 0 {
		window = DefaultReplayWindow
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Gate{
		keys:   cfg.Keys,
		window: window,
		now:    now,
	}
}

// Admit returns nil when the request is admitted, otherwise one of the admission errors.
// Checks run in order: presence, key membership, timestamp syntax, timestamp age.
func (g *Gate) Admit(key, timestamp string) error {
	if key == "" || timestamp == "" {
		return ErrMissingCredential
	}
	if !g.keys.Contains(key) {
		return ErrUnknownKey
	}
	return CheckTimestamp(timestamp, g.now(), g.window)
}

// Window returns the configured replay window.
func (g *Gate) Window() time.Duration {
	return g.window
}
