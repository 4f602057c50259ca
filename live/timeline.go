package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goalline/matchday/models"
)

// ErrDraftInvalid — форма не прошла локальную валидацию. Поход в хранилище
// при этом не делается вовсе.
var ErrDraftInvalid = errors.New("event draft is missing required fields")

const defaultRefetchDelay = 300 * time.Millisecond

// AlertFunc доводит до пользователя предупреждение о судьбе его мутации.
type AlertFunc func(message string)

// TimelineConfig — зависимости таймлайна одной вьюхи.
type TimelineConfig struct {
	MatchID  int
	HomeName string
	AwayName string
	Gateway  Gateway
	Auth     AuthContext
	// Minute отдаёт текущую производную минуту часов сессии.
	Minute func() int
	// Active — жива ли ещё вьюха. Результаты поздних сетевых вызовов
	// после teardown просто игнорируются, запросы не прерываются.
	Active func() bool
	Alert  AlertFunc
	Logger *slog.Logger
	// RefetchDelay — пауза перед фоновой сверкой после подтверждённого
	// добавления (сервер мог дообогатить событие).
	RefetchDelay time.Duration
}

// Timeline — событийный таймлайн матча глазами одной вьюхи: оптимистичные
// локальные правки поверх последнего авторитетного снимка. Никакого merge:
// последняя успешная сверка целиком побеждает (last-fetch-wins).
type Timeline struct {
	mu     sync.Mutex
	events []models.MatchEvent

	matchID  int
	homeName string
	awayName string
	gateway  Gateway
	auth     AuthContext
	minute   func() int
	active   func() bool
	alert    AlertFunc
	logger   *slog.Logger

	refetchDelay time.Duration
}

func NewTimeline(cfg TimelineConfig) *Timeline {
	if cfg.Minute == nil {
		cfg.Minute = func() int { return 0 }
	}
	if cfg.Active == nil {
		cfg.Active = func() bool { return true }
	}
	if cfg.Alert == nil {
		cfg.Alert = func(string) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RefetchDelay <= 0 {
		cfg.RefetchDelay = defaultRefetchDelay
	}
	return &Timeline{
		matchID:      cfg.MatchID,
		homeName:     cfg.HomeName,
		awayName:     cfg.AwayName,
		gateway:      cfg.Gateway,
		auth:         cfg.Auth,
		minute:       cfg.Minute,
		active:       cfg.Active,
		alert:        cfg.Alert,
		logger:       cfg.Logger,
		refetchDelay: cfg.RefetchDelay,
	}
}

// Seed заполняет таймлайн снимком, полученным при создании сессии.
func (t *Timeline) Seed(events []models.MatchEvent) {
	t.replace(events)
}

// Events — копия текущего списка в порядке вставки.
func (t *Timeline) Events() []models.MatchEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.MatchEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Score — производный счёт по текущему списку.
func (t *Timeline) Score() models.Score {
	t.mu.Lock()
	defer t.mu.Unlock()
	return DeriveScore(t.events)
}

// HasKind — есть ли в таймлайне событие данного канонического вида.
// Используется один раз при резюме сессии для восстановления триггеров.
func (t *Timeline) HasKind(k Kind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ev := range t.events {
		if CanonicalKind(ev.Type) == k {
			return true
		}
	}
	return false
}

func (t *Timeline) validate(kind Kind, draft models.EventDraft) error {
	if IsNeutralMarker(kind) {
		return nil
	}
	if kind == KindSubstitution {
		if draft.PlayerOut == "" || draft.PlayerIn == "" {
			return ErrDraftInvalid
		}
		return nil
	}
	if draft.Player == "" {
		return ErrDraftInvalid
	}
	return nil
}

// AddEvent применяет черновик оптимистично и отправляет его в хранилище.
//
// Немедленно: валидация (невалидный черновик — no-op без сетевого вызова),
// канонизация вида, подстановка текущей минуты и синтез описания, локальное
// добавление с маркером Pending. Затем AppendEvent; при успехе локальная
// копия заменяется серверной (id может смениться) и через RefetchDelay
// планируется фоновая сверка. При отказе оптимистичная копия остаётся, а
// пользователь получает alert: потеря события — вопрос целостности данных,
// в отличие от best-effort часов.
func (t *Timeline) AddEvent(ctx context.Context, draft models.EventDraft) (*models.MatchEvent, error) {
	kind := CanonicalKind(draft.Type)
	if err := t.validate(kind, draft); err != nil {
		return nil, err
	}

	minute := t.minute()
	if draft.Minute != nil {
		minute = *draft.Minute
	}

	event := models.MatchEvent{
		ID:          uuid.NewString(),
		MatchID:     t.matchID,
		Type:        string(kind),
		Team:        draft.Team,
		Player:      draft.Player,
		PlayerOut:   draft.PlayerOut,
		PlayerIn:    draft.PlayerIn,
		Minute:      minute,
		Time:        FormatEventTime(minute * 60),
		Description: draft.Description,
		Pending:     true,
	}
	if event.Description == "" {
		event.Description = SynthesizeDescription(kind, t.teamName(draft.Team), draft.Player, draft.PlayerOut, draft.PlayerIn)
	}

	t.mu.Lock()
	t.events = append(t.events, event)
	localID := event.ID
	t.mu.Unlock()

	confirmed, err := t.gateway.AppendEvent(ctx, t.matchID, event, t.auth)
	if err != nil {
		switch {
		case errors.Is(err, ErrBadRequest):
			t.alert("The server rejected this event as invalid. It is shown locally but was not saved.")
		case errors.Is(err, ErrForbidden):
			t.alert("The server rejected this event: admin not recognized. It is shown locally but was not saved.")
		default:
			t.alert("Saving this event may have failed. It will be reconciled on the next sync.")
		}
		t.logger.Warn("append event failed",
			slog.Int("match_id", t.matchID),
			slog.String("type", event.Type),
			slog.Any("error", err))
		return &event, fmt.Errorf("append event: %w", err)
	}

	t.mu.Lock()
	for i := range t.events {
		if t.events[i].ID == localID {
			c := CanonicalizeEvent(*confirmed, t.homeName, t.awayName)
			c.Pending = false
			t.events[i] = c
			break
		}
	}
	t.mu.Unlock()

	t.scheduleRefetch()
	return confirmed, nil
}

// RemoveEvent убирает событие локально сразу и best-effort удаляет его в
// хранилище. Отказ удаления не воскрешает событие: пользователь явно
// просил его убрать, расхождение вылечит очередная сверка.
func (t *Timeline) RemoveEvent(ctx context.Context, eventID string) {
	t.mu.Lock()
	for i := range t.events {
		if t.events[i].ID == eventID {
			t.events = append(t.events[:i], t.events[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	if err := t.gateway.DeleteEvent(ctx, t.matchID, eventID, t.auth); err != nil {
		t.logger.Warn("delete event failed, keeping local removal",
			slog.Int("match_id", t.matchID),
			slog.String("event_id", eventID),
			slog.Any("error", err))
		t.scheduleRefetch()
	}
}

// FetchAndReplace — точка сверки: авторитетный список целиком замещает
// локальное состояние, снимая дрейф от оптимистичных правок, конкурентных
// изменений и частичных отказов. Каждая запись канонизируется заново,
// потому что хранилище может держать легаси-строки типов.
func (t *Timeline) FetchAndReplace(ctx context.Context) error {
	events, err := t.gateway.ListEvents(ctx, t.matchID)
	if err != nil {
		return fmt.Errorf("list events for match %d: %w", t.matchID, err)
	}
	if !t.active() {
		return nil
	}
	t.replace(events)
	return nil
}

func (t *Timeline) replace(events []models.MatchEvent) {
	canon := make([]models.MatchEvent, 0, len(events))
	for _, ev := range events {
		canon = append(canon, CanonicalizeEvent(ev, t.homeName, t.awayName))
	}
	t.mu.Lock()
	t.events = canon
	t.mu.Unlock()
}

func (t *Timeline) scheduleRefetch() {
	time.AfterFunc(t.refetchDelay, func() {
		if !t.active() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.FetchAndReplace(ctx); err != nil {
			t.logger.Warn("background refetch failed", slog.Int("match_id", t.matchID), slog.Any("error", err))
		}
	})
}

func (t *Timeline) teamName(side models.TeamSide) string {
	switch side {
	case models.SideHome:
		return t.homeName
	case models.SideAway:
		return t.awayName
	}
	return ""
}
