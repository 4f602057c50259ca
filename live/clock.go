package live

import (
	"sync"
	"time"

	"github.com/goalline/matchday/models"
)

// Period — фаза матча, производная от прошедших минут.
type Period string

const (
	PeriodFirstHalf  Period = "1H"
	PeriodSecondHalf Period = "2H"
	PeriodFinished   Period = "FINISHED"
)

// Пороги автоматических переходов: 45+15 и 90+15 минут. 15-минутный запас
// на добавленное время зашит в константы, совместимость с историческим
// поведением важнее конфигурируемости (см. DESIGN.md).
const (
	halfTimeTriggerMinute = 60
	fullTimeTriggerMinute = 105
)

// Clock — часы одной live-сессии. Авторитетное значение elapsed всегда
// считается от персистентной базы {elapsed, startedAt}, а не от локального
// тикания: тикание лишь сглаживает отображение между сверками.
//
// Флаги halfTimeFired/fullTimeFired живут на объекте сессии, не в состоянии
// пакета: параллельные матчи в одном процессе не должны делить триггеры.
type Clock struct {
	mu  sync.Mutex
	now func() time.Time

	running   bool
	elapsed   int // база в секундах на момент последнего старта/паузы
	startedAt time.Time

	period        Period
	halfTimeFired bool
	fullTimeFired bool
}

// NewClock создаёт часы с инжектируемым источником времени (nil — time.Now).
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now, period: PeriodFirstHalf}
}

// Restore инициализирует часы из персистентного снимка. hasHalfTime и
// hasFullTime — присутствуют ли маркеры в логе событий; после рестора
// триггеры больше не перечитываются из событий, только из флагов.
func (c *Clock) Restore(state *models.MatchClock, status models.MatchStatus, hasHalfTime, hasFullTime bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state != nil {
		c.elapsed = state.Elapsed
		c.running = state.Running
		if state.Running && state.StartedAt != nil {
			c.startedAt = *state.StartedAt
		} else {
			c.running = false
		}
	}

	if hasHalfTime {
		c.halfTimeFired = true
		c.period = PeriodSecondHalf
	}
	if status == models.MatchStatusFinished || hasFullTime {
		c.fullTimeFired = true
		c.period = PeriodFinished
		c.running = false
	}
}

// Sync обновляет базу от авторитетного снимка хранилища. Локальные
// once-флаги только взводятся, никогда не сбрасываются: локальный флаг
// может опережать сетевой round-trip.
func (c *Clock) Sync(state *models.MatchClock, status models.MatchStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state != nil && !c.fullTimeFired {
		c.elapsed = state.Elapsed
		c.running = state.Running
		if state.Running && state.StartedAt != nil {
			c.startedAt = *state.StartedAt
		} else {
			c.running = false
		}
	}
	if status == models.MatchStatusFinished {
		c.fullTimeFired = true
		c.period = PeriodFinished
		c.running = false
	}
}

func (c *Clock) elapsedLocked() int {
	if !c.running {
		return c.elapsed
	}
	delta := c.now().Sub(c.startedAt)
	if delta < 0 {
		delta = 0
	}
	return c.elapsed + int(delta/time.Second)
}

// ElapsedSeconds — текущее значение: база плюс wall-clock дельта, если идут.
// Монотонно неубывающее, пока часы не на паузе.
func (c *Clock) ElapsedSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

// Minute — производная минута для таймлайна и триггеров.
func (c *Clock) Minute() int {
	return c.ElapsedSeconds() / 60
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Clock) Period() Period {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.period
}

// Finished — терминальное состояние наблюдается либо по персистентному
// статусу (через Sync), либо по локальному флагу, что выставится раньше.
func (c *Clock) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fullTimeFired
}

// Pause фиксирует elapsed = база + дельта и останавливает часы.
// Возвращает состояние для персиста и false, если пауза неприменима.
func (c *Clock) Pause() (models.MatchClock, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.fullTimeFired {
		return models.MatchClock{}, false
	}
	c.elapsed = c.elapsedLocked()
	c.running = false
	return models.MatchClock{Running: false, Elapsed: c.elapsed}, true
}

// Resume запускает часы от текущей базы. Пауза и немедленный резюм
// оставляют elapsed неизменным (с точностью до округления секунды).
func (c *Clock) Resume() (models.MatchClock, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running || c.fullTimeFired {
		return models.MatchClock{}, false
	}
	now := c.now()
	c.running = true
	c.startedAt = now
	started := now
	return models.MatchClock{Running: true, Elapsed: c.elapsed, StartedAt: &started}, true
}

// ShouldTriggerHalfTime — пора ли автоматически давать перерыв: минута
// достигла порога, идёт первый тайм и триггер ещё не срабатывал.
func (c *Clock) ShouldTriggerHalfTime() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.halfTimeFired && !c.fullTimeFired &&
		c.period == PeriodFirstHalf &&
		c.elapsedLocked()/60 >= halfTimeTriggerMinute
}

// MarkHalfTime взводит триггер и переводит фазу. Срабатывает максимум один
// раз за сессию; ручная кнопка идёт через тот же путь.
func (c *Clock) MarkHalfTime() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.halfTimeFired || c.fullTimeFired {
		return false
	}
	c.halfTimeFired = true
	c.period = PeriodSecondHalf
	return true
}

// ShouldTriggerFullTime — симметрично перерыву, на пороге полного времени.
func (c *Clock) ShouldTriggerFullTime() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.fullTimeFired &&
		c.period == PeriodSecondHalf &&
		c.elapsedLocked()/60 >= fullTimeTriggerMinute
}

// MarkFullTime — терминальный переход: замораживает elapsed, гасит часы.
// Возвращает состояние для персиста.
func (c *Clock) MarkFullTime() (models.MatchClock, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fullTimeFired {
		return models.MatchClock{}, false
	}
	c.elapsed = c.elapsedLocked()
	c.running = false
	c.fullTimeFired = true
	c.period = PeriodFinished
	return models.MatchClock{Running: false, Elapsed: c.elapsed}, true
}

// Snapshot — текущее персистентное представление часов.
func (c *Clock) Snapshot() models.MatchClock {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := models.MatchClock{Running: c.running, Elapsed: c.elapsed}
	if c.running {
		started := c.startedAt
		state.StartedAt = &started
	}
	return state
}
