package gamemode

import (
	"time"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
)

// scenarioState хранит запас ресурсных очков каждого игрока.
// Цены фиксируются из конфигурации комнаты в OnModeStart, чтобы редьюсер
// оставался чистой функцией состояния и события.
type scenarioState struct {
	Resources  map[string]int
	BoostsUsed map[string]int
	HintCost   int
	WrongCost  int
}

// ScenarioMode - сюжетный режим: у каждого игрока есть запас ресурсных
// очков. Неверные ответы и подсказки тратят ресурсы; игрок с нулевым
// запасом больше не набирает очков.
type ScenarioMode struct {
	BaseMode
}

// NewScenarioMode создает сюжетный режим
func NewScenarioMode() *ScenarioMode {
	return &ScenarioMode{}
}

func (m *ScenarioMode) ID() string   { return "scenario" }
func (m *ScenarioMode) Name() string { return "Сценарий" }
func (m *ScenarioMode) Description() string {
	return "Гражданские дилеммы с запасом ресурсов на ошибки и подсказки"
}

// DefaultConfig возвращает конфигурацию сюжетного режима
func (m *ScenarioMode) DefaultConfig() Config {
	return Config{
		QuestionTimeLimit: 30 * time.Second,
		CountdownDuration: 3 * time.Second,
		AutoAdvanceDelay:  6 * time.Second,
		ShowHints:         true,
		ShowExplanations:  true,
		AllowBoost:        true,
		SpeedBonus:        false,
		MinPlayers:        1,
		MaxPlayers:        6,
		QuestionCount:     8,
		StartResources:    100,
		HintCost:          15,
		WrongCost:         10,
		BoostsPerGame:     1,
		Scoring:           DefaultScoring(),
	}
}

// NewState создает состояние сюжетного режима
func (m *ScenarioMode) NewState() State {
	return &scenarioState{
		Resources:  make(map[string]int),
		BoostsUsed: make(map[string]int),
		HintCost:   15,
		WrongCost:  10,
	}
}

// Reduce ведет учет ресурсов: неверный ответ и подсказка списывают,
// усиление пополняет запас.
func (m *ScenarioMode) Reduce(s State, ev StateEvent) State {
	st, ok := s.(*scenarioState)
	if !ok {
		return s
	}
	switch ev.Type {
	case EventAnswerScored:
		if ev.Answer != nil && !ev.Answer.IsCorrect && !ev.Answer.IsTimeout {
			st.spend(ev.Answer.PlayerID, st.WrongCost)
		}
	case EventHintUsed:
		st.spend(ev.PlayerID, st.HintCost)
	case EventBoostUsed:
		st.BoostsUsed[ev.PlayerID]++
		st.Resources[ev.PlayerID] += 25
	}
	return st
}

// OnModeStart выдает каждому игроку стартовый запас ресурсов
func (m *ScenarioMode) OnModeStart(rc *Context) {
	st, ok := rc.State.(*scenarioState)
	if !ok {
		return
	}
	st.HintCost = rc.Config.HintCost
	st.WrongCost = rc.Config.WrongCost
	for _, p := range rc.Players {
		st.Resources[p.ID] = rc.Config.StartResources
	}
	rc.Emit("scenario_resources", map[string]interface{}{
		"start_resources": rc.Config.StartResources,
	})
}

// OnAnswerSubmit вето для игроков с исчерпанным запасом ресурсов
func (m *ScenarioMode) OnAnswerSubmit(rc *Context, ans *entity.Answer) bool {
	st, ok := rc.State.(*scenarioState)
	if !ok {
		return true
	}
	return st.Resources[ans.PlayerID] > 0
}

// OnModeComplete публикует остатки ресурсов
func (m *ScenarioMode) OnModeComplete(rc *Context) {
	st, ok := rc.State.(*scenarioState)
	if !ok {
		return
	}
	rc.Emit("scenario_resources_final", map[string]interface{}{
		"resources": st.Resources,
	})
}

func (st *scenarioState) spend(playerID string, amount int) {
	st.Resources[playerID] -= amount
	if st.Resources[playerID] < 0 {
		st.Resources[playerID] = 0
	}
}
