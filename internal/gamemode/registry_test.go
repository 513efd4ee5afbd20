package gamemode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/civicquiz-api/internal/pkg/errors"
)

func TestNewDefaultRegistry_AllModesRegistered(t *testing.T) {
	// Arrange & Act
	registry := NewDefaultRegistry()

	// Assert
	expected := []string{"assessment", "flashcard", "npc_battle", "scenario", "speed_round", "standard"}
	plugins := registry.List()
	require.Len(t, plugins, len(expected), "Должны быть зарегистрированы все встроенные режимы")

	// List отсортирован по идентификатору
	for i, p := range plugins {
		assert.Equal(t, expected[i], p.ID())
	}
}

func TestRegistry_Get_UnknownMode(t *testing.T) {
	// Arrange
	registry := NewDefaultRegistry()

	// Act
	plugin, err := registry.Get("battle_royale")

	// Assert
	assert.Nil(t, plugin)
	assert.ErrorIs(t, err, apperrors.ErrInvalidMode, "Незарегистрированный режим должен давать ErrInvalidMode")
}

func TestRegistry_Register_AfterFreeze(t *testing.T) {
	// Arrange
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewStandardMode()))
	registry.Freeze()

	// Act
	err := registry.Register(NewSpeedRoundMode())

	// Assert
	assert.Error(t, err, "Регистрация после Freeze должна быть запрещена")
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	// Arrange
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewStandardMode()))

	// Act
	err := registry.Register(NewStandardMode())

	// Assert
	assert.Error(t, err, "Повторная регистрация того же ID должна быть ошибкой")
}

func TestDefaultConfigs_Sane(t *testing.T) {
	registry := NewDefaultRegistry()

	for _, p := range registry.List() {
		cfg := p.DefaultConfig()
		assert.Greater(t, int(cfg.QuestionTimeLimit), 0, "режим %s: лимит времени вопроса", p.ID())
		assert.Greater(t, cfg.QuestionCount, 0, "режим %s: количество вопросов", p.ID())
		assert.GreaterOrEqual(t, cfg.MinPlayers, 1, "режим %s: минимум игроков", p.ID())
		assert.GreaterOrEqual(t, cfg.MaxPlayers, cfg.MinPlayers, "режим %s: максимум не меньше минимума", p.ID())
		assert.Greater(t, cfg.Scoring.BasePoints, 0, "режим %s: базовые очки", p.ID())
	}
}
