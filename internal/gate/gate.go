// Package gate sequences the session through login, consent, assessment and
// review. The current state is always derived from the session store, so a
// caller cannot reach a stage whose prerequisites are missing.
package gate

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/havenmind/haven/internal/assessment"
	"github.com/havenmind/haven/internal/store"
)

// State is one stage of the session progression.
type State string

const (
	// StateUnauthenticated means no identity exists yet.
	StateUnauthenticated State = "unauthenticated"
	// StateConsenting means an identity exists but consent was not given.
	StateConsenting State = "consenting"
	// StateAssessing means consent was given but no assessment snapshot
	// exists yet, or a reassessment is in progress.
	StateAssessing State = "assessing"
	// StateCrisisPendingAck means the latest snapshot raised the crisis
	// flag and the support resources were not acknowledged yet. Acknowledge
	// is the only way out.
	StateCrisisPendingAck State = "crisis_pending_ack"
	// StateActive means the session completed the pipeline.
	StateActive State = "active"
)

var stateRank = map[State]int{
	StateUnauthenticated:  0,
	StateConsenting:       1,
	StateAssessing:        2,
	StateCrisisPendingAck: 3,
	StateActive:           4,
}

var (
	// ErrNotPendingAcknowledgement rejects an acknowledgement outside the
	// crisis review stage.
	ErrNotPendingAcknowledgement = errors.New("gate: no crisis acknowledgement is pending")
	// ErrNotActive rejects a reassessment before the pipeline completed.
	ErrNotActive = errors.New("gate: reassessment requires an active session")
)

// GateConfig wires the gate's dependencies.
type GateConfig struct {
	Store *store.Service
	Clock func() time.Time
}

// Gate derives the session stage from persisted state. Crisis
// acknowledgement and reassessment are per-process markers keyed to snapshot
// timestamps, so a fresh snapshot always re-derives both.
type Gate struct {
	store *store.Service
	now   func() time.Time

	mu             sync.Mutex
	acknowledgedAt time.Time
	retestingSince time.Time
}

// NewGate validates the configuration and builds a gate.
func NewGate(config GateConfig) (*Gate, error) {
	if config.Store == nil {
		return nil, errors.New("gate: store is required")
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Gate{store: config.Store, now: clock}, nil
}

// Current derives the stage from the store: identity, then consent, then the
// latest snapshot, then crisis acknowledgement.
func (g *Gate) Current() (State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentLocked()
}

func (g *Gate) currentLocked() (State, error) {
	if _, err := g.store.Get(store.KeyIdentity); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return StateUnauthenticated, nil
		}
		return "", err
	}
	consent, err := g.store.Get(store.KeyConsent)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	if consent != "true" {
		return StateConsenting, nil
	}
	raw, err := g.store.Get(store.KeyLastAssessment)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return StateAssessing, nil
		}
		return "", err
	}
	var snapshot assessment.Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return "", fmt.Errorf("gate: corrupt assessment snapshot: %w", err)
	}
	if snapshot.SubmittedAt.Before(g.retestingSince) {
		return StateAssessing, nil
	}
	if snapshot.Crisis && g.acknowledgedAt.Before(snapshot.SubmittedAt) {
		return StateCrisisPendingAck, nil
	}
	return StateActive, nil
}

// Acknowledge confirms the crisis support resources were shown. It unblocks
// the session only while a crisis acknowledgement is actually pending.
func (g *Gate) Acknowledge() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	current, err := g.currentLocked()
	if err != nil {
		return err
	}
	if current != StateCrisisPendingAck {
		return fmt.Errorf("%w: state is %q", ErrNotPendingAcknowledgement, current)
	}
	g.acknowledgedAt = g.now()
	return nil
}

// BeginReassessment re-enters the assessing stage from an active session.
// The next stored snapshot re-derives crisis handling from scratch.
func (g *Gate) BeginReassessment() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	current, err := g.currentLocked()
	if err != nil {
		return err
	}
	if current != StateActive {
		return fmt.Errorf("%w: state is %q", ErrNotActive, current)
	}
	g.retestingSince = g.now()
	return nil
}

// Resolve answers a navigation request: a stage at or before the current one
// is granted, anything past it bounces to the earliest unsatisfied stage.
func (g *Gate) Resolve(requested State) (State, error) {
	current, err := g.Current()
	if err != nil {
		return "", err
	}
	requestedRank, known := stateRank[requested]
	if !known || requestedRank > stateRank[current] {
		return current, nil
	}
	return requested, nil
}
