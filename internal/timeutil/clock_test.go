package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestMockClockAdvance(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	if got := c.Now(); !got.Equal(base) {
		t.Fatalf("Now() = %v, want %v", got, base)
	}

	c.Advance(5 * time.Second)
	if got := c.Since(base); got != 5*time.Second {
		t.Errorf("Since(base) = %v, want 5s", got)
	}
}

func TestMockClockSleepAdvances(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	c.Sleep(2 * time.Second)

	if got := c.Since(base); got != 2*time.Second {
		t.Errorf("Since(base) after Sleep = %v, want 2s", got)
	}
	sleeps := c.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != 2*time.Second {
		t.Errorf("Sleeps() = %v, want [2s]", sleeps)
	}
}

func TestMockTimerFiresOnAdvance(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	timer := c.NewTimer(time.Second)

	select {
	case <-timer.C():
		t.Fatal("timer fired before deadline")
	default:
	}

	c.Advance(time.Second)

	select {
	case now := <-timer.C():
		if !now.Equal(base.Add(time.Second)) {
			t.Errorf("fired at %v, want %v", now, base.Add(time.Second))
		}
	default:
		t.Fatal("timer did not fire at deadline")
	}
}

func TestMockTimerStop(t *testing.T) {
	c := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	timer := c.NewTimer(time.Second)
	if !timer.Stop() {
		t.Error("Stop() = false for active timer")
	}

	c.Advance(2 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	default:
	}
}
