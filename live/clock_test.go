package live

import (
	"testing"
	"time"

	"github.com/goalline/matchday/models"
)

// fakeNow — управляемый источник времени для часов.
type fakeNow struct {
	t time.Time
}

func newFakeNow() *fakeNow {
	return &fakeNow{t: time.Date(2025, 3, 8, 15, 0, 0, 0, time.UTC)}
}

func (f *fakeNow) Now() time.Time          { return f.t }
func (f *fakeNow) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestClockElapsedFromPersistedBase(t *testing.T) {
	now := newFakeNow()
	started := now.t.Add(-5 * time.Second)
	clock := NewClock(now.Now)
	clock.Restore(&models.MatchClock{Running: true, Elapsed: 600, StartedAt: &started}, models.MatchStatusInPlay, false, false)

	if got := clock.ElapsedSeconds(); got != 605 {
		t.Errorf("elapsed = %d, want 605", got)
	}
}

func TestClockMonotonicWhileRunning(t *testing.T) {
	now := newFakeNow()
	clock := NewClock(now.Now)
	if _, ok := clock.Resume(); !ok {
		t.Fatal("resume failed on fresh clock")
	}

	prev := clock.ElapsedSeconds()
	for i := 0; i < 10; i++ {
		now.Advance(700 * time.Millisecond)
		cur := clock.ElapsedSeconds()
		if cur < prev {
			t.Fatalf("elapsed went backwards: %d -> %d", prev, cur)
		}
		prev = cur
	}
}

func TestClockPauseFreezesElapsed(t *testing.T) {
	now := newFakeNow()
	clock := NewClock(now.Now)
	clock.Resume()
	now.Advance(90 * time.Second)

	state, ok := clock.Pause()
	if !ok {
		t.Fatal("pause failed")
	}
	if state.Running || state.Elapsed != 90 {
		t.Errorf("persisted state = %+v, want {false 90}", state)
	}

	now.Advance(30 * time.Second)
	if got := clock.ElapsedSeconds(); got != 90 {
		t.Errorf("elapsed moved while paused: %d", got)
	}
}

func TestClockPauseResumeIdempotentBase(t *testing.T) {
	now := newFakeNow()
	clock := NewClock(now.Now)
	clock.Resume()
	now.Advance(10 * time.Minute)

	before := clock.ElapsedSeconds()
	clock.Pause()
	state, ok := clock.Resume()
	if !ok {
		t.Fatal("resume failed")
	}
	if state.Elapsed != before {
		t.Errorf("base changed across pause/resume: %d -> %d", before, state.Elapsed)
	}
	if got := clock.ElapsedSeconds(); got != before {
		t.Errorf("elapsed changed across pause/resume: %d -> %d", before, got)
	}
}

func TestClockInvalidTransitions(t *testing.T) {
	now := newFakeNow()
	clock := NewClock(now.Now)

	if _, ok := clock.Pause(); ok {
		t.Error("pause succeeded on stopped clock")
	}
	clock.Resume()
	if _, ok := clock.Resume(); ok {
		t.Error("resume succeeded on running clock")
	}
}

func TestClockHalfTimeTrigger(t *testing.T) {
	now := newFakeNow()
	clock := NewClock(now.Now)
	clock.Resume()

	now.Advance(59 * time.Minute)
	if clock.ShouldTriggerHalfTime() {
		t.Error("half-time triggered before threshold")
	}

	now.Advance(time.Minute)
	if !clock.ShouldTriggerHalfTime() {
		t.Fatal("half-time not triggered at minute 60")
	}
	if !clock.MarkHalfTime() {
		t.Fatal("MarkHalfTime failed")
	}
	if clock.Period() != PeriodSecondHalf {
		t.Errorf("period = %q, want 2H", clock.Period())
	}

	// Повторно не срабатывает: триггер одноразовый на сессию.
	if clock.ShouldTriggerHalfTime() {
		t.Error("half-time triggered twice")
	}
	if clock.MarkHalfTime() {
		t.Error("MarkHalfTime fired twice")
	}
}

func TestClockFullTimeTerminal(t *testing.T) {
	now := newFakeNow()
	clock := NewClock(now.Now)
	clock.Resume()
	now.Advance(60 * time.Minute)
	clock.MarkHalfTime()

	now.Advance(44 * time.Minute)
	if clock.ShouldTriggerFullTime() {
		t.Error("full-time triggered before threshold")
	}
	now.Advance(time.Minute)
	if !clock.ShouldTriggerFullTime() {
		t.Fatal("full-time not triggered at minute 105")
	}

	state, ok := clock.MarkFullTime()
	if !ok {
		t.Fatal("MarkFullTime failed")
	}
	if state.Running {
		t.Error("clock still running after full-time")
	}
	if !clock.Finished() || clock.Period() != PeriodFinished {
		t.Error("clock not terminal after full-time")
	}

	// Терминальность: никаких дальнейших переходов и управление недоступно.
	frozen := clock.ElapsedSeconds()
	now.Advance(time.Hour)
	if got := clock.ElapsedSeconds(); got != frozen {
		t.Errorf("elapsed moved after full-time: %d -> %d", frozen, got)
	}
	if _, ok := clock.Resume(); ok {
		t.Error("resume succeeded after full-time")
	}
	if _, ok := clock.Pause(); ok {
		t.Error("pause succeeded after full-time")
	}
	if clock.ShouldTriggerHalfTime() || clock.ShouldTriggerFullTime() {
		t.Error("automatic transitions after full-time")
	}
}

func TestClockNoFullTimeBeforeSecondHalf(t *testing.T) {
	// Во втором тайме порог держится на 105, а в первом full-time не
	// срабатывает даже при большом elapsed.
	now := newFakeNow()
	clock := NewClock(now.Now)
	clock.Resume()
	now.Advance(110 * time.Minute)
	if clock.ShouldTriggerFullTime() {
		t.Error("full-time triggered while still in first half")
	}
	if !clock.ShouldTriggerHalfTime() {
		t.Error("half-time not pending at minute 110 in 1H")
	}
}

func TestClockRestoreFromEvents(t *testing.T) {
	now := newFakeNow()
	clock := NewClock(now.Now)
	clock.Restore(&models.MatchClock{Running: false, Elapsed: 4000}, models.MatchStatusPaused, true, false)

	if clock.Period() != PeriodSecondHalf {
		t.Errorf("period = %q, want 2H after restoring with half_time marker", clock.Period())
	}
	if clock.ShouldTriggerHalfTime() {
		t.Error("half-time trigger armed despite existing marker")
	}
}

func TestClockSyncObservesFinished(t *testing.T) {
	now := newFakeNow()
	clock := NewClock(now.Now)
	clock.Resume()

	clock.Sync(&models.MatchClock{Running: false, Elapsed: 6300}, models.MatchStatusFinished)
	if !clock.Finished() {
		t.Fatal("persisted FINISHED not observed")
	}
	if clock.ElapsedSeconds() != 6300 {
		t.Errorf("elapsed = %d, want 6300", clock.ElapsedSeconds())
	}
}
