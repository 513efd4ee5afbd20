package roomengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/civicquiz-api/internal/pkg/errors"
)

func testQuestion() *entity.Question {
	return &entity.Question{
		ID:            1,
		Prompt:        "Сколько уровней власти в федерации?",
		Options:       entity.StringArray{"Один", "Два", "Три", "Четыре"},
		CorrectOption: 2,
	}
}

func TestNpcEngine_DefaultPersonalities(t *testing.T) {
	engine := NewNpcEngine(1)

	for _, id := range []string{"professor", "rocket", "thinker", "newbie"} {
		p, err := engine.Get(id)
		require.NoError(t, err, "встроенный профиль %s", id)
		assert.Greater(t, p.Accuracy, 0.0)
		assert.LessOrEqual(t, p.Accuracy, 1.0)
		assert.Greater(t, p.MaxThinkMs, p.MinThinkMs)
	}

	_, err := engine.Get("stranger")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNpcEngine_SimulateAnswer_ThinkTimeWithinProfile(t *testing.T) {
	// Arrange
	engine := NewNpcEngine(42)
	p, err := engine.Get("rocket")
	require.NoError(t, err)
	q := testQuestion()

	// Act & Assert
	for i := 0; i < 200; i++ {
		sim := engine.SimulateAnswer(p, q)
		assert.GreaterOrEqual(t, sim.ThinkTime, time.Duration(p.MinThinkMs)*time.Millisecond)
		assert.Less(t, sim.ThinkTime, time.Duration(p.MaxThinkMs)*time.Millisecond)
		assert.True(t, q.IsValidOption(sim.SelectedOption))
		if sim.IsCorrect {
			assert.Equal(t, q.CorrectOption, sim.SelectedOption)
		} else {
			assert.NotEqual(t, q.CorrectOption, sim.SelectedOption,
				"Неверный исход обязан выбрать вариант, отличный от правильного")
		}
	}
}

func TestNpcEngine_AccuracyExtremes(t *testing.T) {
	engine := NewNpcEngine(7)
	q := testQuestion()

	always := &entity.NpcPersonality{ID: "oracle", Accuracy: 1.0, MinThinkMs: 100, MaxThinkMs: 200}
	never := &entity.NpcPersonality{ID: "confused", Accuracy: 0.0, MinThinkMs: 100, MaxThinkMs: 200}

	for i := 0; i < 50; i++ {
		assert.True(t, engine.SimulateAnswer(always, q).IsCorrect)
		assert.False(t, engine.SimulateAnswer(never, q).IsCorrect)
	}
}

func TestNpcEngine_DeterministicWithSeed(t *testing.T) {
	// Arrange: два движка с одинаковым зерном
	a := NewNpcEngine(12345)
	b := NewNpcEngine(12345)
	pa, _ := a.Get("professor")
	pb, _ := b.Get("professor")
	q := testQuestion()

	// Act & Assert: одинаковые последовательности симуляций
	for i := 0; i < 20; i++ {
		simA := a.SimulateAnswer(pa, q)
		simB := b.SimulateAnswer(pb, q)
		assert.Equal(t, simA, simB, "Фиксированное зерно даёт воспроизводимый прогон")
	}
}

func TestNpcEngine_ChatMessages(t *testing.T) {
	engine := NewNpcEngine(3)

	// Разговорчивость 1.0 всегда говорит, 0.0 — всегда молчит
	chatty := &entity.NpcPersonality{ID: "chatty", Chattiness: 1.0}
	silent := &entity.NpcPersonality{ID: "silent", Chattiness: 0.0}
	assert.True(t, engine.ShouldChat(chatty))
	assert.False(t, engine.ShouldChat(silent))

	// Реплика берется из строк профиля по триггеру
	msg := engine.GenerateChatMessage("rocket", entity.ChatTriggerJoin, map[string]interface{}{})
	p, _ := engine.Get("rocket")
	assert.Contains(t, p.ChatLines[entity.ChatTriggerJoin], msg)

	// Неизвестный профиль и пустой триггер дают пустую реплику
	assert.Empty(t, engine.GenerateChatMessage("stranger", entity.ChatTriggerJoin, nil))
	assert.Empty(t, engine.GenerateChatMessage("rocket", "unknown_trigger", nil))
}

func TestNpcEngine_WrongOptionNeverCorrect(t *testing.T) {
	engine := NewNpcEngine(99)
	never := &entity.NpcPersonality{ID: "wrong", Accuracy: 0.0, MinThinkMs: 10, MaxThinkMs: 20}

	// Вопрос с двумя вариантами: единственный неверный должен выбираться всегда
	q := &entity.Question{
		Options:       entity.StringArray{"Да", "Нет"},
		CorrectOption: 0,
	}
	for i := 0; i < 30; i++ {
		sim := engine.SimulateAnswer(never, q)
		assert.Equal(t, 1, sim.SelectedOption)
	}
}

func TestNpcEngine_Pick_CyclesProfiles(t *testing.T) {
	engine := NewNpcEngine(1)

	first := engine.Pick(0)
	require.NotNil(t, first)
	again := engine.Pick(4)
	assert.Equal(t, first.ID, again.ID, "Pick циклически обходит встроенные профили")
}
