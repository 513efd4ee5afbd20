package gamemode

import "time"

// StandardMode - обычная викторина: подсказки и пояснения включены,
// бонусы за скорость и серии действуют.
type StandardMode struct {
	BaseMode
}

// NewStandardMode создает стандартный режим
func NewStandardMode() *StandardMode {
	return &StandardMode{}
}

func (m *StandardMode) ID() string   { return "standard" }
func (m *StandardMode) Name() string { return "Классическая игра" }
func (m *StandardMode) Description() string {
	return "Викторина с подсказками, пояснениями и бонусами за скорость"
}

// DefaultConfig возвращает конфигурацию стандартного режима
func (m *StandardMode) DefaultConfig() Config {
	return Config{
		QuestionTimeLimit: 20 * time.Second,
		CountdownDuration: 3 * time.Second,
		AutoAdvanceDelay:  5 * time.Second,
		ShowHints:         true,
		ShowExplanations:  true,
		SpeedBonus:        true,
		MinPlayers:        1,
		MaxPlayers:        8,
		QuestionCount:     10,
		Scoring:           DefaultScoring(),
	}
}
