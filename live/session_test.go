package live

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/goalline/matchday/models"
)

func newTestManager(g *fakeGateway, now *fakeNow) *Manager {
	broker := NewBroker(now.Now)
	return NewManager(SessionConfig{
		Gateway:   g,
		Broker:    broker,
		Announcer: broker,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:       now.Now,
		// Циклы в тестах не тикают: переходы дёргаем напрямую через tick.
		TickInterval: time.Hour,
		PollInterval: time.Hour,
		RefetchDelay: time.Hour,
	})
}

func runningClock(now *fakeNow, elapsed int) *models.MatchClock {
	started := now.t
	return &models.MatchClock{Running: true, Elapsed: elapsed, StartedAt: &started}
}

func TestSessionSnapshotDerivesScore(t *testing.T) {
	g := newFakeGateway()
	g.events = []models.MatchEvent{
		{ID: "srv-1", Type: "goal", Team: models.SideHome, Player: "Salah", Minute: 10},
		{ID: "srv-2", Type: "owngoal", Team: models.SideHome, Player: "van Dijk", Minute: 25},
	}
	now := newFakeNow()
	m := newTestManager(g, now)
	defer m.Close()

	s, err := m.Attach(context.Background(), 7, AuthContext{Admin: true})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	snap := s.Snapshot()
	// Гол хозяев — хозяевам, автогол хозяев — гостям.
	if snap.Score.Home != 1 || snap.Score.Away != 1 {
		t.Errorf("score = %+v, want {1 1}", snap.Score)
	}
	if len(snap.Events) != 2 {
		t.Errorf("len(events) = %d", len(snap.Events))
	}
	if snap.HomeTeam != "Liverpool" || snap.AwayTeam != "Everton" {
		t.Errorf("team names = %q / %q", snap.HomeTeam, snap.AwayTeam)
	}
}

func TestSessionPauseSwallowsPersistFailure(t *testing.T) {
	g := newFakeGateway()
	g.match.Clock = runningClock(newFakeNow(), 600)
	now := newFakeNow()
	m := newTestManager(g, now)
	defer m.Close()

	s, err := m.Attach(context.Background(), 7, AuthContext{Admin: true})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	// Персист падает, но пауза локально применяется и ошибкой не считается:
	// часы advisory, сверка выровняет. Чтение тоже гасим, чтобы фоновая
	// сверка не успела восстановить состояние из хранилища до проверок.
	g.mu.Lock()
	g.updateErr = errors.New("store down")
	g.getErr = errors.New("store down")
	g.mu.Unlock()
	now.Advance(5 * time.Second)
	if err := s.Pause(context.Background()); err != nil {
		t.Fatalf("Pause returned error on persist failure: %v", err)
	}
	if s.clock.Running() {
		t.Error("clock still running after pause")
	}
	if got := s.clock.ElapsedSeconds(); got != 605 {
		t.Errorf("elapsed = %d, want 605", got)
	}

	// Повторная пауза — уже недопустимое действие.
	if err := s.Pause(context.Background()); !errors.Is(err, ErrInvalidClockAction) {
		t.Errorf("second pause: %v, want ErrInvalidClockAction", err)
	}
}

func TestSessionResumePersistsClock(t *testing.T) {
	g := newFakeGateway()
	g.match.Clock = &models.MatchClock{Running: false, Elapsed: 1200}
	g.match.Status = models.MatchStatusPaused
	now := newFakeNow()
	m := newTestManager(g, now)
	defer m.Close()

	s, err := m.Attach(context.Background(), 7, AuthContext{Admin: true})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := s.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	if len(g.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(g.updates))
	}
	update := g.updates[0]
	if update.Status == nil || *update.Status != models.MatchStatusInPlay {
		t.Errorf("status update = %v", update.Status)
	}
	if update.Clock == nil || !update.Clock.Running || update.Clock.Elapsed != 1200 || update.Clock.StartedAt == nil {
		t.Errorf("clock update = %+v", update.Clock)
	}
}

func TestSessionAutoHalfTimeOnce(t *testing.T) {
	g := newFakeGateway()
	now := newFakeNow()
	g.match.Clock = runningClock(now, 3660) // минута 61, первый тайм
	m := newTestManager(g, now)
	defer m.Close()

	s, err := m.Attach(context.Background(), 7, AuthContext{Admin: true})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	s.tick(context.Background())

	halfTimes := 0
	g.mu.Lock()
	for _, ev := range g.events {
		if CanonicalKind(ev.Type) == KindHalfTime {
			halfTimes++
		}
	}
	g.mu.Unlock()
	if halfTimes != 1 {
		t.Fatalf("half_time events = %d, want 1", halfTimes)
	}
	if s.clock.Period() != PeriodSecondHalf {
		t.Errorf("period = %q", s.clock.Period())
	}

	// Второй тик того же матча перерыв не дублирует.
	s.tick(context.Background())
	g.mu.Lock()
	count := len(g.events)
	g.mu.Unlock()
	if count != 1 {
		t.Errorf("events after second tick = %d, want 1", count)
	}
}

func TestSessionSpectatorAutoTriggersStayLocal(t *testing.T) {
	g := newFakeGateway()
	now := newFakeNow()
	g.match.Clock = runningClock(now, 3660) // минута 61, первый тайм
	m := newTestManager(g, now)
	defer m.Close()

	s, err := m.Attach(context.Background(), 7, AuthContext{})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	s.tick(context.Background())

	// Зрительская вьюха в хранилище не пишет: маркер перерыва ставит
	// админская, сюда он приедет сверкой.
	g.mu.Lock()
	appends, updates := g.appendCalls, len(g.updates)
	g.mu.Unlock()
	if appends != 0 || updates != 0 {
		t.Fatalf("spectator tick wrote to gateway: appends=%d updates=%d", appends, updates)
	}
	if s.clock.Period() != PeriodSecondHalf {
		t.Errorf("period = %q", s.clock.Period())
	}

	// Полное время — тоже только локальное переключение фазы.
	now.Advance((6320 - 3660) * time.Second)
	s.tick(context.Background())
	g.mu.Lock()
	appends, updates = g.appendCalls, len(g.updates)
	g.mu.Unlock()
	if appends != 0 || updates != 0 {
		t.Fatalf("spectator full time wrote to gateway: appends=%d updates=%d", appends, updates)
	}
	if !s.clock.Finished() {
		t.Error("clock still running after full time trigger")
	}
}

func TestSessionResyncUsesSessionClock(t *testing.T) {
	g := newFakeGateway()
	now := newFakeNow()
	m := newTestManager(g, now)
	defer m.Close()

	s, err := m.Attach(context.Background(), 7, AuthContext{Admin: true})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	now.Advance(42 * time.Second)
	s.resync(context.Background())

	// Метка сверки берётся из тех же часов, что и метки анонсов брокера,
	// иначе сравнение "были ли анонсы после сверки" теряет смысл.
	s.metaMu.Lock()
	last := s.lastSync
	s.metaMu.Unlock()
	if !last.Equal(now.Now()) {
		t.Errorf("lastSync = %v, want %v", last, now.Now())
	}
}

func TestSessionAutoFullTimeTerminal(t *testing.T) {
	g := newFakeGateway()
	now := newFakeNow()
	g.events = []models.MatchEvent{{ID: "srv-1", Type: "half_time", Minute: 58}}
	g.match.Clock = runningClock(now, 6320) // минута 105, второй тайм
	m := newTestManager(g, now)
	defer m.Close()

	s, err := m.Attach(context.Background(), 7, AuthContext{Admin: true})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	s.tick(context.Background())

	g.mu.Lock()
	var sawMatchEnd bool
	for _, ev := range g.events {
		if CanonicalKind(ev.Type) == KindMatchEnd {
			sawMatchEnd = true
		}
	}
	status := g.match.Status
	g.mu.Unlock()
	if !sawMatchEnd {
		t.Fatal("match_end event not created")
	}
	if status != models.MatchStatusFinished {
		t.Errorf("persisted status = %q", status)
	}

	snap := s.Snapshot()
	if snap.ControlsEnabled {
		t.Error("controls still enabled after full-time")
	}
	if snap.Status != models.MatchStatusFinished || snap.Period != PeriodFinished {
		t.Errorf("snapshot status/period = %q/%q", snap.Status, snap.Period)
	}

	// Терминальность: управление и добавление событий отключены.
	if err := s.Pause(context.Background()); !errors.Is(err, ErrMatchFinished) {
		t.Errorf("pause after full-time: %v", err)
	}
	if err := s.Resume(context.Background()); !errors.Is(err, ErrMatchFinished) {
		t.Errorf("resume after full-time: %v", err)
	}
	if _, err := s.AddEvent(context.Background(), models.EventDraft{Type: "goal", Team: models.SideHome, Player: "Salah"}); !errors.Is(err, ErrMatchFinished) {
		t.Errorf("add event after full-time: %v", err)
	}
}

func TestSessionManualHalfTimeSharesAutoPath(t *testing.T) {
	g := newFakeGateway()
	now := newFakeNow()
	g.match.Clock = runningClock(now, 2700) // минута 45: автопорог ещё не достигнут
	m := newTestManager(g, now)
	defer m.Close()

	s, err := m.Attach(context.Background(), 7, AuthContext{Admin: true})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := s.HalfTime(context.Background()); err != nil {
		t.Fatalf("manual half-time: %v", err)
	}
	if s.clock.Period() != PeriodSecondHalf {
		t.Errorf("period = %q", s.clock.Period())
	}
	// Кнопка второй раз — ошибка, не дубль события.
	if err := s.HalfTime(context.Background()); !errors.Is(err, ErrInvalidClockAction) {
		t.Errorf("second manual half-time: %v", err)
	}
}

func TestSessionAnnounceSyncsSiblingView(t *testing.T) {
	g := newFakeGateway()
	now := newFakeNow()
	m := newTestManager(g, now)
	defer m.Close()

	admin, err := m.Attach(context.Background(), 7, AuthContext{Admin: true})
	if err != nil {
		t.Fatalf("Attach admin: %v", err)
	}
	viewer, err := m.Attach(context.Background(), 7, AuthContext{})
	if err != nil {
		t.Fatalf("Attach viewer: %v", err)
	}

	if _, err := admin.AddEvent(context.Background(), models.EventDraft{Type: "goal", Team: models.SideHome, Player: "Salah"}); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	// Анонс будит цикл зрителя, тот перечитывает хранилище.
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := viewer.Snapshot()
		if snap.Score.Home == 1 && len(snap.Events) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sibling view never converged: %+v", snap)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionResyncKeepsLastGoodStateOnError(t *testing.T) {
	g := newFakeGateway()
	g.events = []models.MatchEvent{{ID: "srv-1", Type: "goal", Team: models.SideHome, Player: "Salah", Minute: 10}}
	now := newFakeNow()
	m := newTestManager(g, now)
	defer m.Close()

	s, err := m.Attach(context.Background(), 7, AuthContext{})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	g.mu.Lock()
	g.getErr = errors.New("store down")
	g.mu.Unlock()
	s.resync(context.Background())

	snap := s.Snapshot()
	if len(snap.Events) != 1 || snap.Score.Home != 1 {
		t.Errorf("last known good state lost on resync failure: %+v", snap)
	}
}

func TestManagerDetach(t *testing.T) {
	g := newFakeGateway()
	now := newFakeNow()
	m := newTestManager(g, now)

	s, err := m.Attach(context.Background(), 7, AuthContext{})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !s.Active() {
		t.Fatal("fresh session inactive")
	}

	m.Detach(s.ViewID)
	if s.Active() {
		t.Error("session active after detach")
	}
	if _, err := m.Get(s.ViewID); !errors.Is(err, ErrViewNotFound) {
		t.Errorf("Get after detach: %v", err)
	}
}

func TestManagerAttachUnknownMatch(t *testing.T) {
	g := newFakeGateway()
	g.getErr = ErrMatchNotFound
	now := newFakeNow()
	m := newTestManager(g, now)

	if _, err := m.Attach(context.Background(), 99, AuthContext{}); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("err = %v, want ErrMatchNotFound", err)
	}
}
