package roomengine

import (
	"time"

	"github.com/yourusername/civicquiz-api/internal/domain/repository"
	"github.com/yourusername/civicquiz-api/internal/gamemode"
)

// Константы значений по умолчанию
const (
	DefaultEventQueueSize = 64
	DefaultRoomCodeLength = 6
)

// Config содержит настройки движка комнат
type Config struct {
	// Таймауты и интервалы
	CountdownSeconds   int           // Продолжительность обратного отсчета, если режим не задал свою
	IdleTimeout        time.Duration // Снос комнаты без людей по бездействию
	JanitorInterval    time.Duration // Период проверки брошенных комнат
	TimerTickInterval  time.Duration // Период рассылки оставшегося времени вопроса
	NpcStagger         time.Duration // Разнос ответов NPC, чтобы не отвечали одновременно
	NpcChatIdleDelay   time.Duration // Пауза тишины до реплики NPC
	EventQueueSize     int           // Размер буфера очереди событий комнаты
	RoomCodeLength     int           // Длина кода комнаты
	ResultCacheTTL     time.Duration // Время жизни кешированной таблицы лидеров
	CodeReservationTTL time.Duration // Время резервирования кода комнаты в Redis
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		CountdownSeconds:   3,
		IdleTimeout:        5 * time.Minute,
		JanitorInterval:    30 * time.Second,
		TimerTickInterval:  time.Second,
		NpcStagger:         400 * time.Millisecond,
		NpcChatIdleDelay:   15 * time.Second,
		EventQueueSize:     DefaultEventQueueSize,
		RoomCodeLength:     DefaultRoomCodeLength,
		ResultCacheTTL:     24 * time.Hour,
		CodeReservationTTL: 12 * time.Hour,
	}
}

// Broadcaster определяет исходящий канал событий комнаты.
// Реализуется транспортным слоем (WebSocket-менеджером); движок не знает
// о соединениях и подписчиках.
type Broadcaster interface {
	// BroadcastToRoom отправляет событие всем участникам комнаты
	BroadcastToRoom(roomID string, eventType string, data map[string]interface{})
	// SendToPlayer отправляет событие конкретному игроку комнаты
	SendToPlayer(roomID string, playerID string, eventType string, data map[string]interface{})
}

// Dependencies содержит зависимости компонентов движка комнат
type Dependencies struct {
	QuestionRepo repository.QuestionRepository
	ResultRepo   repository.ResultRepository
	CacheRepo    repository.CacheRepository
	Registry     *gamemode.Registry
	Npc          *NpcEngine
	Broadcaster  Broadcaster
	Config       *Config
}
