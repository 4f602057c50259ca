package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/goalline/matchday/models"
)

// ErrInvalidClockAction — пауза стоящих или резюм идущих часов.
var ErrInvalidClockAction = errors.New("clock action not applicable in current state")

// ErrViewNotFound — обращение к несуществующей или закрытой вьюхе.
var ErrViewNotFound = errors.New("live view session not found")

const (
	defaultPollInterval = 15 * time.Second
	defaultTickInterval = time.Second
)

// SessionConfig — общие зависимости всех live-сессий процесса.
type SessionConfig struct {
	Gateway   Gateway
	Broker    *Broker
	Announcer Announcer // обычно MultiAnnouncer{Broker, HubAnnouncer}
	Logger    *slog.Logger
	Now       func() time.Time
	// Alert доводит предупреждения сессии до пользователя (например, кадром
	// LIVE_ALERT в комнату матча).
	Alert func(matchID int, message string)

	PollInterval time.Duration
	TickInterval time.Duration
	RefetchDelay time.Duration
}

// Session — одна открытая вьюха матча (консоль live-ввода или экран
// зрителя). Держит собственные часы и таймлайн, тикает локально между
// сверками, опрашивает хранилище и слушает анонсы соседних вьюх.
// Несколько сессий на матч — нормальный режим работы.
type Session struct {
	ViewID  string
	MatchID int

	auth      AuthContext
	clock     *Clock
	timeline  *Timeline
	gateway   Gateway
	broker    *Broker
	announcer Announcer
	logger    *slog.Logger
	alert     AlertFunc
	now       func() time.Time

	active atomic.Bool
	cancel context.CancelFunc

	metaMu   sync.Mutex
	status   models.MatchStatus
	homeName string
	awayName string
	lastSync time.Time
}

// LiveSnapshot — то, что видит клиент вьюхи: последний известный матч с
// производным счётом и состоянием часов.
type LiveSnapshot struct {
	ViewID          string              `json:"view_id"`
	MatchID         int                 `json:"match_id"`
	HomeTeam        string              `json:"home_team"`
	AwayTeam        string              `json:"away_team"`
	Status          models.MatchStatus  `json:"status"`
	Period          Period              `json:"period"`
	Running         bool                `json:"running"`
	ElapsedSeconds  int                 `json:"elapsed_seconds"`
	Minute          int                 `json:"minute"`
	DisplayTime     string              `json:"display_time"`
	Score           models.Score        `json:"score"`
	Events          []models.MatchEvent `json:"events"`
	ControlsEnabled bool                `json:"controls_enabled"`
}

// Manager владеет сессиями процесса, по ключу view id. Никакого состояния
// уровня пакета: два одновременных матча не делят ни часы, ни триггеры.
type Manager struct {
	cfg SessionConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg SessionConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.Announcer == nil {
		cfg.Announcer = cfg.Broker
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Attach открывает вьюху матча: читает снимок, восстанавливает часы
// (триггеры — по маркерам в логе событий, единственный раз), сеедит
// таймлайн и запускает циклы тика, опроса и прослушивания анонсов.
func (m *Manager) Attach(ctx context.Context, matchID int, auth AuthContext) (*Session, error) {
	match, err := m.cfg.Gateway.GetMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("attach view to match %d: %w", matchID, err)
	}

	s := &Session{
		ViewID:    uuid.NewString(),
		MatchID:   matchID,
		auth:      auth,
		gateway:   m.cfg.Gateway,
		broker:    m.cfg.Broker,
		announcer: m.cfg.Announcer,
		logger:    m.cfg.Logger,
		now:       m.cfg.Now,
		status:    match.Status,
		homeName:  match.HomeTeam.Name,
		awayName:  match.AwayTeam.Name,
	}
	s.active.Store(true)

	alert := func(string) {}
	if m.cfg.Alert != nil {
		alert = func(msg string) { m.cfg.Alert(matchID, msg) }
	}
	s.alert = alert

	hasHalfTime, hasFullTime := false, false
	for _, ev := range match.Events {
		switch CanonicalKind(ev.Type) {
		case KindHalfTime:
			hasHalfTime = true
		case KindMatchEnd:
			hasFullTime = true
		}
	}
	s.clock = NewClock(m.cfg.Now)
	s.clock.Restore(match.Clock, match.Status, hasHalfTime, hasFullTime)

	s.timeline = NewTimeline(TimelineConfig{
		MatchID:      matchID,
		HomeName:     match.HomeTeam.Name,
		AwayName:     match.AwayTeam.Name,
		Gateway:      m.cfg.Gateway,
		Auth:         auth,
		Minute:       s.clock.Minute,
		Active:       s.active.Load,
		Alert:        alert,
		Logger:       m.cfg.Logger,
		RefetchDelay: m.cfg.RefetchDelay,
	})
	s.timeline.Seed(match.Events)

	// Подписка на анонсы — до старта горутины: анонс, прилетевший сразу
	// после Attach, уже лежит в буфере канала, а не теряется в гонке.
	var announce <-chan struct{}
	cancelSub := func() {}
	if s.broker != nil {
		announce, cancelSub = s.broker.Subscribe(matchID)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(runCtx, m.cfg.TickInterval, m.cfg.PollInterval, announce, cancelSub)

	m.mu.Lock()
	m.sessions[s.ViewID] = s
	m.mu.Unlock()

	m.cfg.Logger.Info("live view attached",
		slog.String("view_id", s.ViewID),
		slog.Int("match_id", matchID),
		slog.Bool("admin", auth.Admin))
	return s, nil
}

// Get возвращает живую сессию по view id.
func (m *Manager) Get(viewID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[viewID]
	if !ok {
		return nil, ErrViewNotFound
	}
	return s, nil
}

// Detach закрывает вьюху: останавливает таймеры и отписывается от анонсов.
func (m *Manager) Detach(viewID string) {
	m.mu.Lock()
	s, ok := m.sessions[viewID]
	delete(m.sessions, viewID)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Close закрывает все сессии (shutdown процесса).
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

func (s *Session) run(ctx context.Context, tickInterval, pollInterval time.Duration, announce <-chan struct{}, cancelSub func()) {
	defer cancelSub()

	tick := time.NewTicker(tickInterval)
	defer tick.Stop()
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.tick(ctx)
		case <-poll.C:
			s.resync(ctx)
		case <-announce:
			s.resync(ctx)
		}
	}
}

// tick — локальный 1 Гц цикл: проверка автоматических переходов фаз и
// fallback-метки анонсов для вьюх, чей сигнал потерялся.
func (s *Session) tick(ctx context.Context) {
	// Автопереходы пишет в хранилище только админская вьюха: зрительская
	// лишь переключает локальную фазу, маркер ей всё равно запретит шлюз.
	switch {
	case s.clock.ShouldTriggerHalfTime():
		if s.auth.Admin {
			s.halfTime(ctx, true)
		} else {
			s.clock.MarkHalfTime()
		}
	case s.clock.ShouldTriggerFullTime():
		if s.auth.Admin {
			s.fullTime(ctx, true)
		} else {
			s.clock.MarkFullTime()
		}
	}

	if s.broker != nil {
		s.metaMu.Lock()
		stale := s.broker.LastAnnounce(s.MatchID).After(s.lastSync)
		s.metaMu.Unlock()
		if stale {
			s.resync(ctx)
		}
	}
}

// resync — точка сверки с хранилищем: авторитетный снимок целиком замещает
// локальное состояние часов и таймлайна (last-fetch-wins). Отказ чтения
// оставляет предыдущее известное состояние.
func (s *Session) resync(ctx context.Context) {
	match, err := s.gateway.GetMatch(ctx, s.MatchID)
	if err != nil {
		s.logger.Warn("live resync failed", slog.Int("match_id", s.MatchID), slog.Any("error", err))
		return
	}
	if !s.active.Load() {
		return
	}
	s.clock.Sync(match.Clock, match.Status)
	s.timeline.Seed(match.Events)

	s.metaMu.Lock()
	s.status = match.Status
	s.lastSync = s.now()
	s.metaMu.Unlock()
}

// Pause останавливает часы. Персист best-effort: локальное состояние не
// откатывается и алерта нет — часы advisory и самовылечатся на сверке.
func (s *Session) Pause(ctx context.Context) error {
	if s.clock.Finished() {
		return ErrMatchFinished
	}
	state, ok := s.clock.Pause()
	if !ok {
		return ErrInvalidClockAction
	}
	status := models.MatchStatusPaused
	s.persistClock(ctx, MatchUpdate{Status: &status, Clock: &state})
	s.setStatus(status)
	s.announce()
	return nil
}

// Resume запускает часы от текущей базы.
func (s *Session) Resume(ctx context.Context) error {
	if s.clock.Finished() {
		return ErrMatchFinished
	}
	state, ok := s.clock.Resume()
	if !ok {
		return ErrInvalidClockAction
	}
	status := models.MatchStatusInPlay
	s.persistClock(ctx, MatchUpdate{Status: &status, Clock: &state})
	s.setStatus(status)
	s.announce()
	return nil
}

// HalfTime — ручная кнопка перерыва; тот же путь, что и автопереход.
func (s *Session) HalfTime(ctx context.Context) error {
	if s.clock.Finished() {
		return ErrMatchFinished
	}
	return s.halfTime(ctx, false)
}

// FullTime — ручной финальный свисток.
func (s *Session) FullTime(ctx context.Context) error {
	if s.clock.Finished() {
		return ErrMatchFinished
	}
	return s.fullTime(ctx, false)
}

func (s *Session) halfTime(ctx context.Context, auto bool) error {
	if !s.clock.MarkHalfTime() {
		if auto {
			return nil
		}
		return ErrInvalidClockAction
	}
	minute := s.clock.Minute()
	if _, err := s.timeline.AddEvent(ctx, models.EventDraft{Type: string(KindHalfTime), Minute: &minute}); err != nil {
		s.logger.Warn("half-time marker not persisted", slog.Int("match_id", s.MatchID), slog.Any("error", err))
	}
	s.persistClock(ctx, MatchUpdate{Minute: &minute})
	s.logger.Info("half-time", slog.Int("match_id", s.MatchID), slog.Int("minute", minute), slog.Bool("auto", auto))
	s.announce()
	return nil
}

func (s *Session) fullTime(ctx context.Context, auto bool) error {
	state, ok := s.clock.MarkFullTime()
	if !ok {
		if auto {
			return nil
		}
		return ErrMatchFinished
	}
	minute := s.clock.Minute()
	if _, err := s.timeline.AddEvent(ctx, models.EventDraft{Type: string(KindMatchEnd), Minute: &minute}); err != nil {
		s.logger.Warn("full-time marker not persisted", slog.Int("match_id", s.MatchID), slog.Any("error", err))
	}
	status := models.MatchStatusFinished
	s.persistClock(ctx, MatchUpdate{Status: &status, Minute: &minute, Clock: &state})
	s.setStatus(status)
	s.logger.Info("full-time", slog.Int("match_id", s.MatchID), slog.Int("minute", minute), slog.Bool("auto", auto))
	s.announce()
	return nil
}

// AddEvent проводит черновик через таймлайн и анонсирует соседям при
// успешном коммите. Ошибка классификации возвращается наверх, чтобы HTTP-
// слой отдал честный статус; оптимистичная копия при этом уже на месте.
func (s *Session) AddEvent(ctx context.Context, draft models.EventDraft) (*models.MatchEvent, error) {
	if s.clock.Finished() {
		return nil, ErrMatchFinished
	}
	event, err := s.timeline.AddEvent(ctx, draft)
	if err != nil {
		return event, err
	}
	s.announce()
	return event, nil
}

// RemoveEvent — оптимистичное удаление без отката.
func (s *Session) RemoveEvent(ctx context.Context, eventID string) {
	s.timeline.RemoveEvent(ctx, eventID)
	s.announce()
}

// Refresh — внеплановая сверка по запросу клиента.
func (s *Session) Refresh(ctx context.Context) {
	s.resync(ctx)
}

// Snapshot — текущее представление вьюхи для клиента.
func (s *Session) Snapshot() LiveSnapshot {
	s.metaMu.Lock()
	status := s.status
	home, away := s.homeName, s.awayName
	s.metaMu.Unlock()

	elapsed := s.clock.ElapsedSeconds()
	finished := s.clock.Finished()
	if finished {
		status = models.MatchStatusFinished
	}
	return LiveSnapshot{
		ViewID:          s.ViewID,
		MatchID:         s.MatchID,
		HomeTeam:        home,
		AwayTeam:        away,
		Status:          status,
		Period:          s.clock.Period(),
		Running:         s.clock.Running(),
		ElapsedSeconds:  elapsed,
		Minute:          elapsed / 60,
		DisplayTime:     FormatEventTime(elapsed),
		Score:           s.timeline.Score(),
		Events:          s.timeline.Events(),
		ControlsEnabled: !finished,
	}
}

// Active — жива ли вьюха. После Close поздние сетевые результаты
// игнорируются, сами запросы не прерываются.
func (s *Session) Active() bool {
	return s.active.Load()
}

// Close останавливает циклы сессии и помечает вьюху неактивной.
func (s *Session) Close() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("live view detached", slog.String("view_id", s.ViewID), slog.Int("match_id", s.MatchID))
}

func (s *Session) persistClock(ctx context.Context, update MatchUpdate) {
	if err := s.gateway.UpdateMatch(ctx, s.MatchID, update, s.auth); err != nil {
		// Часы advisory: ошибку глотаем, следующая успешная сверка выровняет.
		s.logger.Warn("clock update not persisted", slog.Int("match_id", s.MatchID), slog.Any("error", err))
	}
}

func (s *Session) setStatus(status models.MatchStatus) {
	s.metaMu.Lock()
	s.status = status
	s.metaMu.Unlock()
}

func (s *Session) announce() {
	if s.announcer != nil {
		s.announcer.Announce(s.MatchID)
	}
}
