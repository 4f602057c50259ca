package live

import (
	"sync"
	"time"
)

// Announcer — уведомление "матч изменился, пересинхронизируйтесь" для всех
// остальных вьюх. Ядро не ветвится по активному транспорту: кто умеет —
// доставит, остальным остаётся метка времени (см. Broker.LastAnnounce).
type Announcer interface {
	Announce(matchID int)
}

// Broker — внутрипроцессный fan-out сигналов синхронизации между live-
// сессиями плюс общая метка последнего анонса на матч. Метка — fallback
// для вьюх без живой подписки: её проверяет цикл опроса.
//
// Отправка неблокирующая: медленный подписчик теряет сигнал, но его
// подберёт периодический опрос.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]map[int]chan struct{}
	marks  map[int]time.Time
	now    func() time.Time
}

func NewBroker(now func() time.Time) *Broker {
	if now == nil {
		now = time.Now
	}
	return &Broker{
		subs:  make(map[int]map[int]chan struct{}),
		marks: make(map[int]time.Time),
		now:   now,
	}
}

// Announce сигналит всем подписчикам матча и обновляет метку времени.
func (b *Broker) Announce(matchID int) {
	b.mu.Lock()
	b.marks[matchID] = b.now()
	subs := make([]chan struct{}, 0, len(b.subs[matchID]))
	for _, ch := range b.subs[matchID] {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default: // подписчик ещё не обработал прошлый сигнал
		}
	}
}

// Subscribe возвращает канал сигналов по матчу и функцию отписки.
func (b *Broker) Subscribe(matchID int) (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan struct{}, 1)
	if b.subs[matchID] == nil {
		b.subs[matchID] = make(map[int]chan struct{})
	}
	b.subs[matchID][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.subs[matchID]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(b.subs, matchID)
			}
		}
	}
	return ch, cancel
}

// LastAnnounce — время последнего анонса по матчу (zero, если не было).
func (b *Broker) LastAnnounce(matchID int) time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.marks[matchID]
}

// MultiAnnouncer доставляет анонс во все транспорты по очереди.
type MultiAnnouncer []Announcer

func (m MultiAnnouncer) Announce(matchID int) {
	for _, a := range m {
		if a != nil {
			a.Announce(matchID)
		}
	}
}
