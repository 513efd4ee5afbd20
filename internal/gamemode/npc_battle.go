package gamemode

import (
	"time"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
)

// npcBattleState хранит здоровье симулируемого противника и взведенные усиления
type npcBattleState struct {
	NpcHealth   int
	MaxHealth   int
	BoostArmed  map[string]bool
	BoostsUsed  map[string]int
	NpcDefeated bool
}

// NpcBattleMode - битва с NPC: правильные ответы людей наносят противнику
// урон, лимит времени на вопрос сокращается по мере падения его здоровья.
type NpcBattleMode struct {
	BaseMode
}

// NewNpcBattleMode создает режим битвы с NPC
func NewNpcBattleMode() *NpcBattleMode {
	return &NpcBattleMode{}
}

func (m *NpcBattleMode) ID() string   { return "npc_battle" }
func (m *NpcBattleMode) Name() string { return "Битва с NPC" }
func (m *NpcBattleMode) Description() string {
	return "Команда против симулируемого противника: отвечайте верно, чтобы победить"
}

// DefaultConfig возвращает конфигурацию битвы с NPC
func (m *NpcBattleMode) DefaultConfig() Config {
	return Config{
		QuestionTimeLimit: 15 * time.Second,
		CountdownDuration: 3 * time.Second,
		AutoAdvanceDelay:  4 * time.Second,
		ShowHints:         false,
		ShowExplanations:  true,
		AllowBoost:        true,
		SpeedBonus:        true,
		MinPlayers:        1,
		MaxPlayers:        6,
		QuestionCount:     12,
		NpcHealth:         100,
		BoostsPerGame:     2,
		Scoring:           DefaultScoring(),
	}
}

// NewState создает состояние битвы
func (m *NpcBattleMode) NewState() State {
	return &npcBattleState{
		NpcHealth:  100,
		MaxHealth:  100,
		BoostArmed: make(map[string]bool),
		BoostsUsed: make(map[string]int),
	}
}

// Reduce наносит противнику урон за правильные ответы людей.
// Взведенное усиление добавляет урон и сгорает.
func (m *NpcBattleMode) Reduce(s State, ev StateEvent) State {
	st, ok := s.(*npcBattleState)
	if !ok {
		return s
	}
	switch ev.Type {
	case EventAnswerScored:
		if ev.Answer == nil || !ev.Answer.IsCorrect {
			return st
		}
		damage := 8
		if ev.Question != nil {
			damage += ev.Question.Difficulty * 2
		}
		if st.BoostArmed[ev.Answer.PlayerID] {
			damage += 15
			st.BoostArmed[ev.Answer.PlayerID] = false
		}
		st.NpcHealth -= damage
		if st.NpcHealth <= 0 {
			st.NpcHealth = 0
			st.NpcDefeated = true
		}
	case EventBoostUsed:
		st.BoostsUsed[ev.PlayerID]++
		st.BoostArmed[ev.PlayerID] = true
	}
	return st
}

// OnModeStart фиксирует стартовое здоровье из конфигурации комнаты
func (m *NpcBattleMode) OnModeStart(rc *Context) {
	st, ok := rc.State.(*npcBattleState)
	if !ok {
		return
	}
	if rc.Config.NpcHealth > 0 {
		st.NpcHealth = rc.Config.NpcHealth
		st.MaxHealth = rc.Config.NpcHealth
	}
	rc.Emit("npc_battle_started", map[string]interface{}{
		"npc_health": st.NpcHealth,
	})
}

// TimeLimitFor сокращает лимит времени по мере падения здоровья противника:
// при полном здоровье действует базовый лимит, у победного порога — половина.
func (m *NpcBattleMode) TimeLimitFor(s State, base time.Duration) time.Duration {
	st, ok := s.(*npcBattleState)
	if !ok || st.MaxHealth == 0 {
		return base
	}
	ratio := float64(st.NpcHealth) / float64(st.MaxHealth)
	limit := time.Duration(float64(base) * (0.5 + 0.5*ratio))
	if limit < 3*time.Second {
		limit = 3 * time.Second
	}
	return limit
}

// OnQuestionComplete публикует оставшееся здоровье противника
func (m *NpcBattleMode) OnQuestionComplete(rc *Context, answers []*entity.Answer) {
	st, ok := rc.State.(*npcBattleState)
	if !ok {
		return
	}
	rc.Emit("npc_health_updated", map[string]interface{}{
		"npc_health": st.NpcHealth,
		"max_health": st.MaxHealth,
		"defeated":   st.NpcDefeated,
	})
}

// CalculateScore суммирует очки, начисленные за ответы по ходу битвы.
// Исход битвы на итог не влияет: урон уже отражен в очках ударов.
func (m *NpcBattleMode) CalculateScore(answers []entity.Answer, questions []entity.Question) int {
	total := 0
	for _, a := range answers {
		total += a.Score
	}
	return total
}

// OnModeComplete объявляет исход битвы
func (m *NpcBattleMode) OnModeComplete(rc *Context) {
	st, ok := rc.State.(*npcBattleState)
	if !ok {
		return
	}
	rc.Emit("npc_battle_result", map[string]interface{}{
		"defeated":   st.NpcDefeated,
		"npc_health": st.NpcHealth,
	})
}
