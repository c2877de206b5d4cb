package usage

import (
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// StatusFromRemaining tests
// -----------------------------------------------------------------------------

func TestStatusFromRemaining(t *testing.T) {
	now := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		remaining     float64
		wantUsed      float64
		wantRemaining float64
		wantPercent   float64
	}{
		{"untouched allowance", 100000, 0, 100000, 0},
		{"warning boundary", 30000, 70000, 30000, 70},
		{"half consumed", 50000, 50000, 50000, 50},
		{"fully consumed", 0, 100000, 0, 100},
		{"negative sample clamped", -500, 100000, 0, 100},
		{"oversized sample clamped", 140000, 0, 100000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := StatusFromRemaining(DefaultMonthlyLimit, tt.remaining, now)
			if st.Used != tt.wantUsed {
				t.Errorf("Used = %v, want %v", st.Used, tt.wantUsed)
			}
			if st.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %v, want %v", st.Remaining, tt.wantRemaining)
			}
			if st.PercentUsed != tt.wantPercent {
				t.Errorf("PercentUsed = %v, want %v", st.PercentUsed, tt.wantPercent)
			}
			if !st.ComputedAt.Equal(now) {
				t.Errorf("ComputedAt = %v, want %v", st.ComputedAt, now)
			}
		})
	}
}

func TestStatusFromRemaining_UsedPlusRemainingIsLimit(t *testing.T) {
	now := time.Now().UTC()
	for remaining := 0.0; remaining <= DefaultMonthlyLimit; remaining += 2500 {
		st := StatusFromRemaining(DefaultMonthlyLimit, remaining, now)
		if st.Used+st.Remaining != DefaultMonthlyLimit {
			t.Fatalf("used(%v) + remaining(%v) != limit for input %v",
				st.Used, st.Remaining, remaining)
		}
	}
}

func TestStatusFromRemaining_ZeroLimit(t *testing.T) {
	st := StatusFromRemaining(0, 0, time.Now())
	if st.PercentUsed != 0 {
		t.Errorf("PercentUsed = %v, want 0 (division guard)", st.PercentUsed)
	}
}

func TestClampRemaining(t *testing.T) {
	if got := ClampRemaining(100, -1); got != 0 {
		t.Errorf("ClampRemaining(-1) = %v, want 0", got)
	}
	if got := ClampRemaining(100, 150); got != 100 {
		t.Errorf("ClampRemaining(150) = %v, want 100", got)
	}
	if got := ClampRemaining(100, 42); got != 42 {
		t.Errorf("ClampRemaining(42) = %v, want 42", got)
	}
}

// -----------------------------------------------------------------------------
// Project tests
// -----------------------------------------------------------------------------

func TestProject(t *testing.T) {
	// Day 10 of a 30-day month, 40000 used: on pace for 120000.
	now := time.Date(2025, 4, 10, 8, 0, 0, 0, time.UTC)
	st := StatusFromRemaining(DefaultMonthlyLimit, 60000, now)

	p := Project(st, now, 0.002)

	if p.DaysElapsed != 10 {
		t.Errorf("DaysElapsed = %d, want 10", p.DaysElapsed)
	}
	if p.DaysInMonth != 30 {
		t.Errorf("DaysInMonth = %d, want 30", p.DaysInMonth)
	}
	if p.DailyAverage != 4000 {
		t.Errorf("DailyAverage = %v, want 4000", p.DailyAverage)
	}
	if p.Projected != 120000 {
		t.Errorf("Projected = %v, want 120000", p.Projected)
	}
	if p.Overage != 20000 {
		t.Errorf("Overage = %v, want 20000", p.Overage)
	}
	if p.Cost != 40 {
		t.Errorf("Cost = %v, want 40", p.Cost)
	}
}

func TestProject_UnderPace(t *testing.T) {
	now := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	st := StatusFromRemaining(DefaultMonthlyLimit, 90000, now)

	p := Project(st, now, 0.002)
	if p.Overage != 0 {
		t.Errorf("Overage = %v, want 0", p.Overage)
	}
	if p.Cost != 0 {
		t.Errorf("Cost = %v, want 0", p.Cost)
	}
}

func TestProject_FebruaryDays(t *testing.T) {
	now := time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC) // leap year
	p := Project(Status{Limit: DefaultMonthlyLimit}, now, 0)
	if p.DaysInMonth != 29 {
		t.Errorf("DaysInMonth = %d, want 29", p.DaysInMonth)
	}
}
