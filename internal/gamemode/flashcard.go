package gamemode

import (
	"time"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
)

// FlashcardMode - режим карточек для совместного повторения: пропуск
// разрешен, скорость не учитывается, очки не начисляются — итоговый счет
// равен числу правильных ответов.
type FlashcardMode struct {
	BaseMode
}

// NewFlashcardMode создает режим карточек
func NewFlashcardMode() *FlashcardMode {
	return &FlashcardMode{}
}

func (m *FlashcardMode) ID() string   { return "flashcard" }
func (m *FlashcardMode) Name() string { return "Карточки" }
func (m *FlashcardMode) Description() string {
	return "Совместное повторение без очков и таймера гонки"
}

// DefaultConfig возвращает конфигурацию режима карточек
func (m *FlashcardMode) DefaultConfig() Config {
	scoring := DefaultScoring()
	scoring.BasePoints = 1 // Счет = количество правильных ответов
	scoring.SpeedBuckets = nil
	scoring.ComboStep = 0
	scoring.ComboCap = 0
	scoring.MaxMultiplier = 1.0
	return Config{
		QuestionTimeLimit: 45 * time.Second,
		CountdownDuration: 2 * time.Second,
		AutoAdvanceDelay:  1 * time.Second,
		ShowHints:         true,
		ShowExplanations:  true,
		AllowSkip:         true,
		SpeedBonus:        false,
		MinPlayers:        1,
		MaxPlayers:        10,
		QuestionCount:     15,
		Scoring:           scoring,
	}
}

// CalculateScore считает правильные ответы
func (m *FlashcardMode) CalculateScore(answers []entity.Answer, questions []entity.Question) int {
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	return correct
}
