// Package throttle provides pure functions for throttle classification.
// All functions are deterministic with no side effects.
package throttle

// Level is the ordered severity of throttling the application should apply.
// Levels are compared by ordinal rank only.
type Level int

const (
	LevelNone       Level = iota // No throttling needed
	LevelWarning                 // Approaching the allowance
	LevelModerate                // Curtail low-priority work
	LevelAggressive              // Curtail most non-essential work
	LevelCritical                // Essential work only
	LevelCostLimit               // Projected overage beyond the configured cost ceiling
)

// Thresholds holds the percent-used boundaries for each level (value type).
// By convention the values are ascending; this is not enforced.
type Thresholds struct {
	Warning               float64
	Moderate              float64
	Aggressive            float64
	Critical              float64
	MaxMonthlyCostPercent float64
}

// DefaultThresholds returns the standard threshold set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Warning:               70,
		Moderate:              80,
		Aggressive:            90,
		Critical:              95,
		MaxMonthlyCostPercent: 110,
	}
}

// Classify maps a percent-consumed value to a throttle level.
// Thresholds are evaluated highest-first; a value exactly at a
// threshold classifies as the higher tier.
// This is a PURE function.
func Classify(percentUsed float64, t Thresholds) Level {
	switch {
	case percentUsed >= t.MaxMonthlyCostPercent:
		return LevelCostLimit
	case percentUsed >= t.Critical:
		return LevelCritical
	case percentUsed >= t.Aggressive:
		return LevelAggressive
	case percentUsed >= t.Moderate:
		return LevelModerate
	case percentUsed >= t.Warning:
		return LevelWarning
	default:
		return LevelNone
	}
}

// ShouldThrottle reports whether the level calls for any throttling at all.
func (l Level) ShouldThrottle() bool {
	return l >= LevelWarning
}

// String returns the string representation of a throttle level.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelWarning:
		return "warning"
	case LevelModerate:
		return "moderate"
	case LevelAggressive:
		return "aggressive"
	case LevelCritical:
		return "critical"
	case LevelCostLimit:
		return "cost_limit"
	default:
		return "unknown"
	}
}
