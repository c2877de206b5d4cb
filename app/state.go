package app

import (
	"sync"
	"time"

	"github.com/artpar/tierguard/domain/throttle"
)

// ThrottleSnapshot is one coherent view of the published throttle state
// (value type). Readers always get a whole snapshot, never a mix of old
// and new fields.
type ThrottleSnapshot struct {
	Level            throttle.Level
	PercentUsed      float64
	Remaining        float64
	MonitoringActive bool
	UpdatedAt        time.Time
}

// ThrottleState is the shared holder of the latest classification.
// Exactly one writer (the poller) and any number of concurrent readers.
// Before the first poll completes it reports LevelNone: the system fails
// open rather than throttling on no information.
type ThrottleState struct {
	mu         sync.RWMutex
	snap       ThrottleSnapshot
	thresholds throttle.Thresholds
}

// NewThrottleState creates the shared state with its classification
// thresholds, which are fixed for the lifetime of the process.
func NewThrottleState(t throttle.Thresholds) *ThrottleState {
	return &ThrottleState{
		thresholds: t,
		snap: ThrottleSnapshot{
			Level:            throttle.LevelNone,
			MonitoringActive: true,
		},
	}
}

// Update classifies the new reading and publishes it atomically,
// reactivating monitoring. Returns the classified level.
func (s *ThrottleState) Update(percentUsed, remaining float64, at time.Time) throttle.Level {
	level := throttle.Classify(percentUsed, s.thresholds)

	s.mu.Lock()
	s.snap = ThrottleSnapshot{
		Level:            level,
		PercentUsed:      percentUsed,
		Remaining:        remaining,
		MonitoringActive: true,
		UpdatedAt:        at,
	}
	s.mu.Unlock()

	return level
}

// MarkInactive flags the current reading as potentially stale after
// repeated poll failures. The last known level is kept.
func (s *ThrottleState) MarkInactive() {
	s.mu.Lock()
	s.snap.MonitoringActive = false
	s.mu.Unlock()
}

// Get returns the current snapshot.
func (s *ThrottleState) Get() ThrottleSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// ShouldThrottle reports whether the current level calls for throttling.
func (s *ThrottleState) ShouldThrottle() bool {
	return s.Get().Level.ShouldThrottle()
}

// Thresholds returns the classification thresholds in use.
func (s *ThrottleState) Thresholds() throttle.Thresholds {
	return s.thresholds
}
