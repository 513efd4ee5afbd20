package gamemode

import (
	"time"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
)

// assessmentState отслеживает нарушения режима контроля: потери фокуса
// вкладки, о которых сообщает клиент, и активность слушателя видимости.
type assessmentState struct {
	FocusLost        map[string]int // playerID -> количество потерь фокуса
	ProctoringActive bool
}

// AssessmentMode - режим аттестации: без подсказок и бонусов за скорость,
// длинный лимит времени, контроль переключения вкладок. Игрок, превысивший
// лимит нарушений, получает вето на дальнейшие ответы (записываются в ноль).
type AssessmentMode struct {
	BaseMode
}

// NewAssessmentMode создает режим аттестации
func NewAssessmentMode() *AssessmentMode {
	return &AssessmentMode{}
}

func (m *AssessmentMode) ID() string   { return "assessment" }
func (m *AssessmentMode) Name() string { return "Аттестация" }
func (m *AssessmentMode) Description() string {
	return "Контрольный тест без подсказок, с контролем фокуса вкладки"
}

// DefaultConfig возвращает конфигурацию режима аттестации
func (m *AssessmentMode) DefaultConfig() Config {
	scoring := DefaultScoring()
	scoring.SpeedBuckets = nil // Скорость не влияет на оценку
	scoring.ComboStep = 0
	scoring.ComboCap = 0
	return Config{
		QuestionTimeLimit: 60 * time.Second,
		CountdownDuration: 5 * time.Second,
		AutoAdvanceDelay:  3 * time.Second,
		ShowHints:         false,
		ShowExplanations:  false,
		SpeedBonus:        false,
		MinPlayers:        1,
		MaxPlayers:        30,
		QuestionCount:     20,
		ViolationLimit:    2,
		Scoring:           scoring,
	}
}

// NewState создает состояние аттестации
func (m *AssessmentMode) NewState() State {
	return &assessmentState{FocusLost: make(map[string]int)}
}

// Reduce учитывает потери фокуса, о которых сообщил клиент
func (m *AssessmentMode) Reduce(s State, ev StateEvent) State {
	st, ok := s.(*assessmentState)
	if !ok {
		return s
	}
	if ev.Type == EventFocusLost && ev.PlayerID != "" {
		st.FocusLost[ev.PlayerID]++
	}
	return st
}

// OnModeStart включает контроль видимости у клиентов
func (m *AssessmentMode) OnModeStart(rc *Context) {
	if st, ok := rc.State.(*assessmentState); ok {
		st.ProctoringActive = true
	}
	rc.Emit("proctoring_enabled", map[string]interface{}{
		"violation_limit": rc.Config.ViolationLimit,
	})
}

// OnAnswerSubmit вето для игроков, превысивших лимит нарушений
func (m *AssessmentMode) OnAnswerSubmit(rc *Context, ans *entity.Answer) bool {
	st, ok := rc.State.(*assessmentState)
	if !ok {
		return true
	}
	return st.FocusLost[ans.PlayerID] <= rc.Config.ViolationLimit
}

// CalculateScore - авторитетная оценка аттестации: только правильные
// ответы по базовой стоимости, без каких-либо бонусов. Ответы под вето
// (после превышения лимита нарушений) остаются в нуле.
func (m *AssessmentMode) CalculateScore(answers []entity.Answer, questions []entity.Question) int {
	cfg := m.DefaultConfig()
	total := 0
	for _, a := range answers {
		if a.IsCorrect && !a.IsVetoed {
			total += cfg.Scoring.BasePoints
		}
	}
	return total
}

// OnModeExit снимает слушатели видимости при любом сносе комнаты,
// включая отмену до завершения.
func (m *AssessmentMode) OnModeExit(rc *Context) {
	if st, ok := rc.State.(*assessmentState); ok {
		st.ProctoringActive = false
	}
	rc.Emit("proctoring_disabled", map[string]interface{}{})
}
