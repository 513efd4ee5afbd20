package roomengine

import (
	"sync"
	"time"
)

// Назначения таймеров комнаты. Ключ таблицы — назначение (плюс суффикс
// для таймеров NPC), так что снос комнаты отменяет все отложенные
// переходы детерминированно.
const (
	timerCountdown = "countdown"
	timerQuestion  = "question"
	timerTick      = "tick"
	timerAdvance   = "advance"
	timerNpcPrefix = "npc:" // npc:<playerID>
	timerNpcChat   = "npc_chat"
)

// timerTable хранит отменяемые таймеры комнаты, по одному на назначение.
// Повторное планирование по тому же ключу заменяет прежний таймер.
type timerTable struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newTimerTable() *timerTable {
	return &timerTable{
		timers: make(map[string]*time.Timer),
	}
}

// Schedule планирует вызов fn через d, заменяя существующий таймер ключа.
// fn вызывается из горутины таймера: она обязана лишь поставить событие
// в очередь комнаты, не трогая состояние напрямую.
func (t *timerTable) Schedule(key string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.timers[key]; ok {
		prev.Stop()
	}
	t.timers[key] = time.AfterFunc(d, fn)
}

// Cancel останавливает и удаляет таймер по ключу
func (t *timerTable) Cancel(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[key]; ok {
		timer.Stop()
		delete(t.timers, key)
	}
}

// CancelPrefix останавливает все таймеры с ключами, начинающимися с prefix
func (t *timerTable) CancelPrefix(prefix string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, timer := range t.timers {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			timer.Stop()
			delete(t.timers, key)
		}
	}
}

// CancelAll останавливает все таймеры комнаты
func (t *timerTable) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}
