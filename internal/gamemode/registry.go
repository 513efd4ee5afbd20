package gamemode

import (
	"fmt"
	"log"
	"sort"
	"sync"

	apperrors "github.com/yourusername/civicquiz-api/internal/pkg/errors"
)

// Registry - каталог зарегистрированных режимов игры.
// Создается явно при старте процесса и передается по ссылке; после Freeze
// доступен только для чтения, плагины во время работы не мутируются.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	frozen  bool
}

// NewRegistry создает пустой реестр режимов
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
	}
}

// NewDefaultRegistry создает реестр со всеми встроенными режимами
// и замораживает его.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range []Plugin{
		NewStandardMode(),
		NewSpeedRoundMode(),
		NewAssessmentMode(),
		NewScenarioMode(),
		NewFlashcardMode(),
		NewNpcBattleMode(),
	} {
		if err := r.Register(p); err != nil {
			// Дубликат встроенного режима — ошибка программиста
			panic(err)
		}
	}
	r.Freeze()
	return r
}

// Register добавляет режим в реестр
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("mode registry is frozen, cannot register %q", p.ID())
	}
	if p.ID() == "" {
		return fmt.Errorf("mode plugin has empty id")
	}
	if _, exists := r.plugins[p.ID()]; exists {
		return fmt.Errorf("mode %q already registered", p.ID())
	}

	r.plugins[p.ID()] = p
	log.Printf("[GameModeRegistry] Зарегистрирован режим %q (%s)", p.ID(), p.Name())
	return nil
}

// Freeze запрещает дальнейшую регистрацию режимов
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Get возвращает режим по идентификатору
func (r *Registry) Get(modeID string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[modeID]
	if !ok {
		return nil, apperrors.ErrInvalidMode
	}
	return p, nil
}

// List возвращает все режимы, отсортированные по идентификатору
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
