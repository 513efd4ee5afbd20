package gamemode

import "time"

// speedRoundState хранит лучшую латентность раунда для ленты результатов
type speedRoundState struct {
	FastestMs       int64
	FastestPlayerID string
}

// SpeedRoundMode - скоростной раунд: укороченный лимит времени,
// без подсказок, быстрый автопереход между вопросами.
type SpeedRoundMode struct {
	BaseMode
}

// NewSpeedRoundMode создает скоростной режим
func NewSpeedRoundMode() *SpeedRoundMode {
	return &SpeedRoundMode{}
}

func (m *SpeedRoundMode) ID() string   { return "speed_round" }
func (m *SpeedRoundMode) Name() string { return "Скоростной раунд" }
func (m *SpeedRoundMode) Description() string {
	return "Короткие вопросы без подсказок, всё решает скорость"
}

// DefaultConfig возвращает конфигурацию скоростного режима
func (m *SpeedRoundMode) DefaultConfig() Config {
	return Config{
		QuestionTimeLimit: 10 * time.Second,
		CountdownDuration: 3 * time.Second,
		AutoAdvanceDelay:  2 * time.Second,
		ShowHints:         false,
		ShowExplanations:  false,
		SpeedBonus:        true,
		MinPlayers:        1,
		MaxPlayers:        12,
		QuestionCount:     10,
		Scoring:           DefaultScoring(),
	}
}

// NewState создает состояние скоростного раунда
func (m *SpeedRoundMode) NewState() State {
	return &speedRoundState{}
}

// Reduce отслеживает самый быстрый правильный ответ комнаты
func (m *SpeedRoundMode) Reduce(s State, ev StateEvent) State {
	st, ok := s.(*speedRoundState)
	if !ok {
		return s
	}
	if ev.Type == EventAnswerScored && ev.Answer != nil && ev.Answer.IsCorrect {
		if st.FastestMs == 0 || ev.Answer.ResponseTimeMs < st.FastestMs {
			st.FastestMs = ev.Answer.ResponseTimeMs
			st.FastestPlayerID = ev.Answer.PlayerID
		}
	}
	return st
}

// OnModeComplete объявляет обладателя самого быстрого ответа
func (m *SpeedRoundMode) OnModeComplete(rc *Context) {
	st, ok := rc.State.(*speedRoundState)
	if !ok || st.FastestPlayerID == "" {
		return
	}
	rc.Emit("speed_round_fastest", map[string]interface{}{
		"player_id":  st.FastestPlayerID,
		"latency_ms": st.FastestMs,
	})
}
