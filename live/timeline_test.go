package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goalline/matchday/models"
)

// fakeGateway — хранилище в памяти для тестов таймлайна и сессий.
type fakeGateway struct {
	mu     sync.Mutex
	match  models.Match
	events []models.MatchEvent
	nextID int

	getErr    error
	updateErr error
	appendErr error
	deleteErr error
	listErr   error

	appendCalls int
	deleteCalls int
	updates     []MatchUpdate
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		match: models.Match{
			ID:       7,
			HomeTeam: models.MatchSide{Name: "Liverpool"},
			AwayTeam: models.MatchSide{Name: "Everton"},
			Status:   models.MatchStatusInPlay,
		},
	}
}

func (g *fakeGateway) GetMatch(_ context.Context, id int) (*models.Match, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getErr != nil {
		return nil, g.getErr
	}
	m := g.match
	m.Events = make([]models.MatchEvent, len(g.events))
	copy(m.Events, g.events)
	return &m, nil
}

func (g *fakeGateway) UpdateMatch(_ context.Context, id int, update MatchUpdate, _ AuthContext) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.updateErr != nil {
		return g.updateErr
	}
	g.updates = append(g.updates, update)
	if update.Status != nil {
		g.match.Status = *update.Status
	}
	if update.Minute != nil {
		g.match.Minute = *update.Minute
	}
	if update.Clock != nil {
		clock := *update.Clock
		g.match.Clock = &clock
	}
	return nil
}

func (g *fakeGateway) AppendEvent(_ context.Context, id int, event models.MatchEvent, _ AuthContext) (*models.MatchEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.appendCalls++
	if g.appendErr != nil {
		return nil, g.appendErr
	}
	g.nextID++
	event.ID = fmt.Sprintf("srv-%d", g.nextID)
	event.Pending = false
	g.events = append(g.events, event)
	stored := event
	return &stored, nil
}

func (g *fakeGateway) DeleteEvent(_ context.Context, id int, eventID string, _ AuthContext) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteCalls++
	if g.deleteErr != nil {
		return g.deleteErr
	}
	for i := range g.events {
		if g.events[i].ID == eventID {
			g.events = append(g.events[:i], g.events[i+1:]...)
			break
		}
	}
	return nil
}

func (g *fakeGateway) ListEvents(_ context.Context, id int) ([]models.MatchEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := make([]models.MatchEvent, len(g.events))
	copy(out, g.events)
	return out, nil
}

func newTestTimeline(g *fakeGateway, alerts *[]string) *Timeline {
	return NewTimeline(TimelineConfig{
		MatchID:  7,
		HomeName: "Liverpool",
		AwayName: "Everton",
		Gateway:  g,
		Auth:     AuthContext{UserID: 1, Admin: true},
		Minute:   func() int { return 42 },
		Alert: func(msg string) {
			if alerts != nil {
				*alerts = append(*alerts, msg)
			}
		},
		RefetchDelay: time.Hour, // фоновую сверку в тестах не ждём
	})
}

func TestTimelineAddEventConfirmed(t *testing.T) {
	g := newFakeGateway()
	tl := newTestTimeline(g, nil)

	ev, err := tl.AddEvent(context.Background(), models.EventDraft{
		Type:   "goal",
		Team:   models.SideHome,
		Player: "Salah",
	})
	if err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	if ev.ID != "srv-1" {
		t.Errorf("confirmed id = %q", ev.ID)
	}

	events := tl.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d", len(events))
	}
	if events[0].ID != "srv-1" || events[0].Pending {
		t.Errorf("local copy not replaced by confirmed event: %+v", events[0])
	}
	if events[0].Minute != 42 {
		t.Errorf("minute = %d, want current clock minute 42", events[0].Minute)
	}
	if got := tl.Score(); got.Home != 1 || got.Away != 0 {
		t.Errorf("score = %+v", got)
	}
}

func TestTimelineAddEventValidation(t *testing.T) {
	g := newFakeGateway()
	tl := newTestTimeline(g, nil)

	// Гол без игрока: no-op, в сеть не ходим.
	if _, err := tl.AddEvent(context.Background(), models.EventDraft{Type: "goal", Team: models.SideHome}); !errors.Is(err, ErrDraftInvalid) {
		t.Errorf("err = %v, want ErrDraftInvalid", err)
	}
	// Замена с одним игроком из пары: тоже no-op.
	if _, err := tl.AddEvent(context.Background(), models.EventDraft{Type: "substitution", Team: models.SideHome, PlayerOut: "Firmino"}); !errors.Is(err, ErrDraftInvalid) {
		t.Errorf("err = %v, want ErrDraftInvalid", err)
	}

	if len(tl.Events()) != 0 {
		t.Errorf("events appended on invalid draft")
	}
	if g.appendCalls != 0 {
		t.Errorf("gateway called %d times on invalid drafts", g.appendCalls)
	}
}

func TestTimelineSubstitutionDescription(t *testing.T) {
	g := newFakeGateway()
	tl := newTestTimeline(g, nil)

	ev, err := tl.AddEvent(context.Background(), models.EventDraft{
		Type:      "substitution",
		Team:      models.SideHome,
		PlayerOut: "Firmino",
		PlayerIn:  "Jota",
	})
	if err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	want := "Substitution - Liverpool - Firmino → Jota"
	if ev.Description != want {
		t.Errorf("description = %q, want %q", ev.Description, want)
	}
}

func TestTimelineAddEventForbiddenKeepsOptimistic(t *testing.T) {
	g := newFakeGateway()
	g.appendErr = ErrForbidden
	var alerts []string
	tl := newTestTimeline(g, &alerts)

	ev, err := tl.AddEvent(context.Background(), models.EventDraft{Type: "goal", Team: models.SideAway, Player: "Calvert-Lewin"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if ev == nil || !ev.Pending {
		t.Errorf("optimistic event missing or not pending: %+v", ev)
	}
	events := tl.Events()
	if len(events) != 1 || !events[0].Pending {
		t.Errorf("optimistic copy not kept: %+v", events)
	}
	if len(alerts) != 1 {
		t.Fatalf("alerts = %v, want one", alerts)
	}
}

func TestTimelineAddEventTransientFailureWarns(t *testing.T) {
	g := newFakeGateway()
	g.appendErr = errors.New("connection reset")
	var alerts []string
	tl := newTestTimeline(g, &alerts)

	if _, err := tl.AddEvent(context.Background(), models.EventDraft{Type: "goal", Team: models.SideHome, Player: "Salah"}); err == nil {
		t.Fatal("expected error")
	}
	if len(tl.Events()) != 1 {
		t.Errorf("optimistic copy dropped on transient failure")
	}
	if len(alerts) != 1 {
		t.Errorf("alerts = %v", alerts)
	}
}

func TestTimelineRemoveEventNoRevert(t *testing.T) {
	g := newFakeGateway()
	g.events = []models.MatchEvent{{ID: "srv-1", Type: "goal", Team: models.SideHome, Player: "Salah"}}
	g.deleteErr = errors.New("boom")
	tl := newTestTimeline(g, nil)
	tl.Seed(g.events)

	tl.RemoveEvent(context.Background(), "srv-1")
	if len(tl.Events()) != 0 {
		t.Errorf("event resurrected after failed remote delete")
	}
	if g.deleteCalls != 1 {
		t.Errorf("deleteCalls = %d", g.deleteCalls)
	}
}

func TestTimelineFetchAndReplaceHealsDrift(t *testing.T) {
	g := newFakeGateway()
	g.appendErr = errors.New("down")
	tl := newTestTimeline(g, nil)

	// Оптимистичная запись при упавшей сети.
	tl.AddEvent(context.Background(), models.EventDraft{Type: "goal", Team: models.SideHome, Player: "Salah"})

	// Авторитетное хранилище знает другое (с легаси-типом).
	g.mu.Lock()
	g.events = []models.MatchEvent{{ID: "srv-9", Type: "yellowcard", Team: models.SideAway, Player: "Tarkowski", Minute: 12}}
	g.mu.Unlock()

	if err := tl.FetchAndReplace(context.Background()); err != nil {
		t.Fatalf("FetchAndReplace: %v", err)
	}
	events := tl.Events()
	if len(events) != 1 || events[0].ID != "srv-9" {
		t.Fatalf("local state not replaced: %+v", events)
	}
	if events[0].Type != string(KindYellowCard) {
		t.Errorf("legacy type not canonicalized: %q", events[0].Type)
	}
	if events[0].Pending {
		t.Errorf("pending marker survived reconciliation")
	}
}

func TestTimelineBackgroundRefetchAfterAppend(t *testing.T) {
	g := newFakeGateway()
	tl := NewTimeline(TimelineConfig{
		MatchID:      7,
		HomeName:     "Liverpool",
		AwayName:     "Everton",
		Gateway:      g,
		Minute:       func() int { return 10 },
		RefetchDelay: 5 * time.Millisecond,
	})

	if _, err := tl.AddEvent(context.Background(), models.EventDraft{Type: "goal", Team: models.SideHome, Player: "Salah"}); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	// Серверное дообогащение, которое должна подобрать фоновая сверка.
	g.mu.Lock()
	g.events[0].Description = "Goal - Liverpool - Salah (assist: Alexander-Arnold)"
	g.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for {
		events := tl.Events()
		if len(events) == 1 && events[0].Description == "Goal - Liverpool - Salah (assist: Alexander-Arnold)" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("background refetch did not absorb enrichment: %+v", events)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTimelineMinuteOverride(t *testing.T) {
	g := newFakeGateway()
	tl := newTestTimeline(g, nil)

	minute := 17
	ev, err := tl.AddEvent(context.Background(), models.EventDraft{Type: "goal", Team: models.SideHome, Player: "Salah", Minute: &minute})
	if err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	if ev.Minute != 17 {
		t.Errorf("minute = %d, want explicit 17", ev.Minute)
	}
}
