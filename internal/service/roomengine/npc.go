package roomengine

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/civicquiz-api/internal/pkg/errors"
)

// SimulatedAnswer - результат симуляции ответа NPC
type SimulatedAnswer struct {
	SelectedOption int
	IsCorrect      bool
	ThinkTime      time.Duration
}

// NpcEngine порождает ответы и реплики симулируемых игроков по профилям
// личностей. Без состояния по отношению к данным комнат: принимает вопрос
// и профиль, возвращает производные значения, ничего не мутируя.
type NpcEngine struct {
	mu            sync.Mutex
	personalities map[string]*entity.NpcPersonality
	order         []string
	rng           *rand.Rand
}

// NewNpcEngine создает движок NPC с набором встроенных личностей.
// seed фиксирует генератор для воспроизводимых прогонов; 0 означает
// недетерминированный запуск.
func NewNpcEngine(seed int64) *NpcEngine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &NpcEngine{
		personalities: make(map[string]*entity.NpcPersonality),
		rng:           rand.New(rand.NewSource(seed)),
	}
	for _, p := range defaultPersonalities() {
		e.personalities[p.ID] = p
		e.order = append(e.order, p.ID)
	}
	return e
}

// Register добавляет профиль личности
func (e *NpcEngine) Register(p *entity.NpcPersonality) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.personalities[p.ID]; !exists {
		e.order = append(e.order, p.ID)
	}
	e.personalities[p.ID] = p
}

// Get возвращает профиль личности по идентификатору
func (e *NpcEngine) Get(id string) (*entity.NpcPersonality, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.personalities[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}

// Pick возвращает профиль по порядковому номеру (для автоподбора соперников)
func (e *NpcEngine) Pick(n int) *entity.NpcPersonality {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.order) == 0 {
		return nil
	}
	return e.personalities[e.order[n%len(e.order)]]
}

// SimulateAnswer строит симулированный ответ: время раздумий из
// распределения профиля, исход правильности из его точности и — при
// неверном исходе — правдоподобный неправильный вариант, отличный от
// правильного.
func (e *NpcEngine) SimulateAnswer(p *entity.NpcPersonality, q *entity.Question) SimulatedAnswer {
	e.mu.Lock()
	defer e.mu.Unlock()

	thinkRange := p.MaxThinkMs - p.MinThinkMs
	thinkMs := p.MinThinkMs
	if thinkRange > 0 {
		thinkMs += e.rng.Int63n(thinkRange)
	}

	isCorrect := e.rng.Float64() < p.Accuracy

	option := q.CorrectOption
	if !isCorrect {
		option = e.wrongOption(q)
	}

	return SimulatedAnswer{
		SelectedOption: option,
		IsCorrect:      isCorrect,
		ThinkTime:      time.Duration(thinkMs) * time.Millisecond,
	}
}

// ShouldChat решает, подаст ли NPC реплику на данный триггер
func (e *NpcEngine) ShouldChat(p *entity.NpcPersonality) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64() < p.Chattiness
}

// GenerateChatMessage возвращает реплику NPC для триггера.
// context подставляется в плейсхолдеры вида %s (имя комнаты, соперника и т.п.).
func (e *NpcEngine) GenerateChatMessage(npcID string, trigger string, context map[string]interface{}) string {
	e.mu.Lock()
	p, ok := e.personalities[npcID]
	if !ok {
		e.mu.Unlock()
		return ""
	}
	lines := p.ChatLines[trigger]
	if len(lines) == 0 {
		e.mu.Unlock()
		return ""
	}
	line := lines[e.rng.Intn(len(lines))]
	e.mu.Unlock()

	if name, ok := context["player_name"].(string); ok {
		return fmt.Sprintf(line, name)
	}
	return line
}

// wrongOption выбирает неправильный вариант, отличный от правильного.
// Вызывается под мьютексом.
func (e *NpcEngine) wrongOption(q *entity.Question) int {
	n := q.OptionsCount()
	if n <= 1 {
		return entity.TimeoutOption
	}
	option := e.rng.Intn(n - 1)
	if option >= q.CorrectOption {
		option++
	}
	return option
}

// defaultPersonalities возвращает встроенный набор профилей
func defaultPersonalities() []*entity.NpcPersonality {
	return []*entity.NpcPersonality{
		{
			ID:         "professor",
			Name:       "Профессор Сова",
			Avatar:     "🦉",
			Accuracy:   0.85,
			MinThinkMs: 4000,
			MaxThinkMs: 9000,
			Chattiness: 0.4,
			ChatLines: map[string][]string{
				entity.ChatTriggerJoin:      {"Приветствую, коллеги.", "Надеюсь на содержательную игру."},
				entity.ChatTriggerCorrect:   {"Элементарно.", "Это было в первой лекции."},
				entity.ChatTriggerIncorrect: {"Хм, надо перечитать конституцию...", "Любопытная формулировка."},
				entity.ChatTriggerIdle:      {"Все задумались? Хороший знак."},
				entity.ChatTriggerVictory:   {"Учение — свет."},
			},
		},
		{
			ID:         "rocket",
			Name:       "Ракета",
			Avatar:     "🚀",
			Accuracy:   0.55,
			MinThinkMs: 1200,
			MaxThinkMs: 3500,
			Chattiness: 0.7,
			ChatLines: map[string][]string{
				entity.ChatTriggerJoin:      {"Всем привет! Кто тут самый быстрый?", "Погнали!"},
				entity.ChatTriggerCorrect:   {"Скорость решает!", "Даже не думал!"},
				entity.ChatTriggerIncorrect: {"Ой. Зато быстро!", "Поспешишь — людей насмешишь..."},
				entity.ChatTriggerIdle:      {"Ну что вы там застряли?"},
				entity.ChatTriggerVictory:   {"Вжух — и победа!"},
			},
		},
		{
			ID:         "thinker",
			Name:       "Мыслитель",
			Avatar:     "🗿",
			Accuracy:   0.7,
			MinThinkMs: 6000,
			MaxThinkMs: 12000,
			Chattiness: 0.2,
			ChatLines: map[string][]string{
				entity.ChatTriggerJoin:      {"..."},
				entity.ChatTriggerCorrect:   {"Как я и предполагал."},
				entity.ChatTriggerIncorrect: {"Вариантов было несколько."},
				entity.ChatTriggerIdle:      {"Тишина способствует размышлению."},
				entity.ChatTriggerVictory:   {"Закономерно."},
			},
		},
		{
			ID:         "newbie",
			Name:       "Новичок",
			Avatar:     "🐣",
			Accuracy:   0.35,
			MinThinkMs: 2500,
			MaxThinkMs: 8000,
			Chattiness: 0.6,
			ChatLines: map[string][]string{
				entity.ChatTriggerJoin:      {"Привет! Я тут первый раз.", "А как тут играть?"},
				entity.ChatTriggerCorrect:   {"Ура, угадал!", "Неужели правильно?!"},
				entity.ChatTriggerIncorrect: {"Эх, опять мимо.", "Я запомню, честно."},
				entity.ChatTriggerIdle:      {"Сложный вопрос, да?"},
				entity.ChatTriggerVictory:   {"Новичкам везёт!"},
			},
		},
	}
}
