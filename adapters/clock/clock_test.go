package clock

import (
	"testing"
	"time"

	"github.com/artpar/tierguard/ports"
)

var _ ports.Clock = Real{}
var _ ports.Clock = (*Fake)(nil)

func TestReal_Now(t *testing.T) {
	before := time.Now()
	got := Real{}.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Real.Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestFake_SetAndAdvance(t *testing.T) {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	if !f.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", f.Now(), start)
	}

	f.Advance(90 * time.Minute)
	if want := start.Add(90 * time.Minute); !f.Now().Equal(want) {
		t.Errorf("after Advance, Now() = %v, want %v", f.Now(), want)
	}

	later := start.AddDate(0, 1, 0)
	f.Set(later)
	if !f.Now().Equal(later) {
		t.Errorf("after Set, Now() = %v, want %v", f.Now(), later)
	}
}

func TestFake_ConcurrentAccess(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	done := make(chan struct{})

	go func() {
		for i := 0; i < 1000; i++ {
			f.Advance(time.Second)
		}
		close(done)
	}()
	for i := 0; i < 1000; i++ {
		_ = f.Now()
	}
	<-done

	if want := time.Unix(1000, 0); !f.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", f.Now(), want)
	}
}
