// Package usage provides pure functions for free-tier allowance accounting.
// All functions are deterministic with no side effects.
package usage

import "time"

// DefaultMonthlyLimit is the standard free-tier allowance per calendar
// month, in allowance-units. Fixed for the lifetime of the process.
const DefaultMonthlyLimit = 100000

// Status is the derived view of the current month's consumption (value type).
// Exactly one of Used/Remaining comes from a provider sample; the other is
// derived arithmetically so the pair stays internally consistent.
type Status struct {
	Limit       float64
	Used        float64
	Remaining   float64
	PercentUsed float64
	ComputedAt  time.Time
}

// ClampRemaining bounds a raw remaining sample to [0, limit].
func ClampRemaining(limit, remaining float64) float64 {
	if remaining < 0 {
		return 0
	}
	if remaining > limit {
		return limit
	}
	return remaining
}

// StatusFromRemaining derives a full usage status from a remaining sample.
//
//	used      = limit - remaining, floored at 0
//	remaining = limit - used, floored at 0 (re-derived so the returned pair
//	            is consistent even when the input was clamped upstream)
//	percent   = used / limit * 100
//
// This is a PURE function.
func StatusFromRemaining(limit, remaining float64, now time.Time) Status {
	remaining = ClampRemaining(limit, remaining)

	used := limit - remaining
	if used < 0 {
		used = 0
	}

	remaining = limit - used
	if remaining < 0 {
		remaining = 0
	}

	var percent float64
	if limit > 0 {
		percent = used / limit * 100
	}

	return Status{
		Limit:       limit,
		Used:        used,
		Remaining:   remaining,
		PercentUsed: percent,
		ComputedAt:  now,
	}
}

// Projection estimates end-of-month consumption from the month-to-date
// run rate (value type).
type Projection struct {
	DaysElapsed  int
	DaysInMonth  int
	DailyAverage float64
	Projected    float64
	Overage      float64
	Cost         float64
}

// Project extrapolates the current usage to a full-month figure and prices
// any projected overage at unitPrice per allowance-unit.
// This is a PURE function.
func Project(st Status, now time.Time, unitPrice float64) Projection {
	now = now.UTC()

	daysElapsed := now.Day()
	if daysElapsed < 1 {
		daysElapsed = 1
	}
	daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()

	dailyAverage := st.Used / float64(daysElapsed)
	projected := dailyAverage * float64(daysInMonth)

	overage := projected - st.Limit
	if overage < 0 {
		overage = 0
	}

	return Projection{
		DaysElapsed:  daysElapsed,
		DaysInMonth:  daysInMonth,
		DailyAverage: dailyAverage,
		Projected:    projected,
		Overage:      overage,
		Cost:         overage * unitPrice,
	}
}
