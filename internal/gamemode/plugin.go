package gamemode

import (
	"time"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
)

// SpeedBucket описывает одну ступень бонуса за скорость: ответ с латентностью
// не выше MaxLatencyMs получает Bonus очков и множитель Multiplier.
type SpeedBucket struct {
	MaxLatencyMs int64   `json:"max_latency_ms"`
	Bonus        int     `json:"bonus"`
	Multiplier   float64 `json:"multiplier"`
}

// ScoringConfig содержит настройки подсчета очков.
// Пороговые значения — эмпирические константы исходного продукта,
// поэтому заданы как конфигурация и переопределяются каждым режимом.
type ScoringConfig struct {
	BasePoints    int           `json:"base_points"`
	SpeedBuckets  []SpeedBucket `json:"speed_buckets"`
	ComboStep     int           `json:"combo_step"`
	ComboCap      int           `json:"combo_cap"`
	MaxMultiplier float64       `json:"max_multiplier"`
}

// DefaultScoring возвращает эталонные настройки подсчета очков
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		BasePoints: 100,
		SpeedBuckets: []SpeedBucket{
			{MaxLatencyMs: 3000, Bonus: 50, Multiplier: 3.0},
			{MaxLatencyMs: 6000, Bonus: 30, Multiplier: 2.5},
			{MaxLatencyMs: 10000, Bonus: 20, Multiplier: 2.0},
			{MaxLatencyMs: 15000, Bonus: 10, Multiplier: 1.5},
		},
		ComboStep:     5,
		ComboCap:      25,
		MaxMultiplier: 4.0,
	}
}

// Config содержит настраиваемые параметры режима игры.
// Неизменяема после старта комнаты.
type Config struct {
	QuestionTimeLimit time.Duration `json:"question_time_limit"`
	CountdownDuration time.Duration `json:"countdown_duration"`
	AutoAdvanceDelay  time.Duration `json:"auto_advance_delay"`
	ShowHints         bool          `json:"show_hints"`
	ShowExplanations  bool          `json:"show_explanations"`
	AllowSkip         bool          `json:"allow_skip"`
	AllowBoost        bool          `json:"allow_boost"`
	SpeedBonus        bool          `json:"speed_bonus"`
	MinPlayers        int           `json:"min_players"`
	MaxPlayers        int           `json:"max_players"`
	QuestionCount     int           `json:"question_count"`
	Scoring           ScoringConfig `json:"scoring"`

	// Специфичные для режимов параметры
	ViolationLimit int `json:"violation_limit,omitempty"` // assessment: допустимые потери фокуса
	StartResources int `json:"start_resources,omitempty"` // scenario: стартовый запас очков ресурсов
	HintCost       int `json:"hint_cost,omitempty"`       // scenario: цена подсказки в ресурсах
	WrongCost      int `json:"wrong_cost,omitempty"`      // scenario: цена неверного ответа
	NpcHealth      int `json:"npc_health,omitempty"`      // npc_battle: стартовое здоровье противника
	BoostsPerGame  int `json:"boosts_per_game,omitempty"` // лимит усилений на игрока
}

// State - изменяемое состояние режима в рамках одной комнаты.
// Принадлежит машине состояний комнаты; мутируется ТОЛЬКО через Reduce
// активного плагина.
type State interface{}

// Типы событий для редьюсера состояния режима
const (
	EventAnswerScored     = "answer_scored"
	EventQuestionComplete = "question_complete"
	EventHintUsed         = "hint_used"
	EventBoostUsed        = "boost_used"
	EventFocusLost        = "focus_lost"
	EventSkip             = "skip"
)

// StateEvent - событие, которое движок подает в редьюсер режима
type StateEvent struct {
	Type     string
	PlayerID string
	Answer   *entity.Answer
	Question *entity.Question
}

// Context - снимок данных комнаты, доступный хукам плагина только для чтения.
// Фазу и индекс вопроса плагин менять не может; Emit публикует событие
// всем участникам комнаты через исходящий канал.
type Context struct {
	RoomID        string
	Players       []*entity.Player
	Questions     []entity.Question
	QuestionIndex int
	Config        *Config
	State         State
	Emit          func(eventType string, data map[string]interface{})
}

// Plugin определяет контракт режима игры: метаданные, конфигурация по
// умолчанию, фабрика состояния, редьюсер, правило подсчета итогового счета и
// хуки жизненного цикла, вызываемые машиной состояний комнаты.
// Представлен фиксированным интерфейсом: диспетчеризация статическая,
// без прощупывания опциональных свойств во время выполнения.
type Plugin interface {
	ID() string
	Name() string
	Description() string

	DefaultConfig() Config
	NewState() State
	Reduce(s State, ev StateEvent) State

	// CalculateScore возвращает авторитетный итоговый счет игрока по его
	// ответам. Вызывается при переходе комнаты в completed.
	CalculateScore(answers []entity.Answer, questions []entity.Question) int

	// TimeLimitFor позволяет режиму переопределить лимит времени вопроса
	// как функцию текущего состояния (например, npc_battle сокращает время
	// по мере падения здоровья противника).
	TimeLimitFor(s State, base time.Duration) time.Duration

	OnModeStart(rc *Context)
	OnQuestionStart(rc *Context, q *entity.Question)
	// OnAnswerSubmit может наложить вето: при false ответ записывается,
	// но оценивается в ноль.
	OnAnswerSubmit(rc *Context, ans *entity.Answer) bool
	OnQuestionComplete(rc *Context, answers []*entity.Answer)
	OnModeComplete(rc *Context)
	// OnModeExit вызывается при сносе комнаты из любого нетерминального
	// состояния и гарантирует очистку, специфичную для режима.
	OnModeExit(rc *Context)
}

// BaseMode предоставляет no-op реализации хуков и разумные умолчания.
// Конкретные режимы встраивают BaseMode и переопределяют нужное.
type BaseMode struct{}

// NewState по умолчанию — режим без собственного состояния
func (BaseMode) NewState() State { return nil }

// Reduce по умолчанию возвращает состояние без изменений
func (BaseMode) Reduce(s State, ev StateEvent) State { return s }

// CalculateScore по умолчанию суммирует начисленные за ответы очки
func (BaseMode) CalculateScore(answers []entity.Answer, questions []entity.Question) int {
	total := 0
	for _, a := range answers {
		total += a.Score
	}
	return total
}

// TimeLimitFor по умолчанию не меняет базовый лимит
func (BaseMode) TimeLimitFor(s State, base time.Duration) time.Duration { return base }

func (BaseMode) OnModeStart(rc *Context)                             {}
func (BaseMode) OnQuestionStart(rc *Context, q *entity.Question)     {}
func (BaseMode) OnAnswerSubmit(rc *Context, ans *entity.Answer) bool { return true }
func (BaseMode) OnQuestionComplete(rc *Context, answers []*entity.Answer) {
}
func (BaseMode) OnModeComplete(rc *Context) {}
func (BaseMode) OnModeExit(rc *Context)     {}
