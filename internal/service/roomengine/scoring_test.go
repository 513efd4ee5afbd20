package roomengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
	"github.com/yourusername/civicquiz-api/internal/gamemode"
)

func TestCalculateScore_FirstFastCorrectAnswer(t *testing.T) {
	// Arrange
	cfg := gamemode.DefaultScoring()

	// Act: первый правильный ответ за 2 секунды, серии ещё нет
	breakdown := CalculateScore(cfg, true, true, 2000, 0)

	// Assert: 100 базовых + 50 за скорость, комбо нет
	assert.Equal(t, 100, breakdown.Base)
	assert.Equal(t, 50, breakdown.SpeedBonus)
	assert.Equal(t, 0, breakdown.ComboBonus)
	assert.Equal(t, 150, breakdown.Total)
	assert.InDelta(t, 3.0, breakdown.Multiplier, 0.001)
}

func TestCalculateScore_SecondConsecutiveCorrect(t *testing.T) {
	// Arrange
	cfg := gamemode.DefaultScoring()

	// Act: второй подряд правильный ответ за 2 секунды, серия = 1
	breakdown := CalculateScore(cfg, true, true, 2000, 1)

	// Assert: 100 + 50 + комбо 1*5
	assert.Equal(t, 155, breakdown.Total)
	assert.Equal(t, 5, breakdown.ComboBonus)
	assert.InDelta(t, 3.25, breakdown.Multiplier, 0.001)
}

func TestCalculateScore_IncorrectAlwaysZero(t *testing.T) {
	cfg := gamemode.DefaultScoring()

	// Неправильный ответ даёт ноль при любой латентности и серии
	breakdown := CalculateScore(cfg, true, false, 100, 7)
	assert.Equal(t, 0, breakdown.Total)
	assert.Equal(t, 0, breakdown.Base)
	assert.InDelta(t, 1.0, breakdown.Multiplier, 0.001)
}

func TestCalculateScore_SpeedBuckets(t *testing.T) {
	cfg := gamemode.DefaultScoring()

	cases := []struct {
		latencyMs int64
		bonus     int
	}{
		{1000, 50},
		{3000, 50}, // граница корзины включительно
		{3001, 30},
		{6000, 30},
		{9999, 20},
		{15000, 10},
		{15001, 0}, // медленнее всех корзин
	}
	for _, tc := range cases {
		breakdown := CalculateScore(cfg, true, true, tc.latencyMs, 0)
		assert.Equal(t, tc.bonus, breakdown.SpeedBonus, "латентность %d мс", tc.latencyMs)
	}

	// Монотонность: быстрее - не меньше
	prev := CalculateScore(cfg, true, true, 0, 0).Total
	for _, latency := range []int64{2000, 5000, 8000, 12000, 20000} {
		cur := CalculateScore(cfg, true, true, latency, 0).Total
		assert.LessOrEqual(t, cur, prev, "бонус не растет с латентностью")
		prev = cur
	}
}

func TestCalculateScore_SpeedDisabled(t *testing.T) {
	cfg := gamemode.DefaultScoring()

	breakdown := CalculateScore(cfg, false, true, 500, 0)
	assert.Equal(t, 0, breakdown.SpeedBonus, "С выключенным бонусом скорость не учитывается")
	assert.Equal(t, 100, breakdown.Total)
}

func TestCalculateScore_ComboCapAndMultiplierCap(t *testing.T) {
	cfg := gamemode.DefaultScoring()

	// Длинная серия упирается в потолки
	breakdown := CalculateScore(cfg, true, true, 2000, 10)
	assert.Equal(t, 25, breakdown.ComboBonus, "Комбо зажато потолком 25")
	assert.InDelta(t, 4.0, breakdown.Multiplier, 0.001, "Множитель зажат потолком 4.0")
	assert.Equal(t, 175, breakdown.Total)
}

func TestBuildLeaderboard_Ordering(t *testing.T) {
	// Arrange: равный счет у p2 и p3 разрешается числом ошибок,
	// равенство у p3 и p4 — порядком входа
	players := []*entity.Player{
		{ID: "p1", Score: 50, WrongCount: 0, JoinOrder: 0},
		{ID: "p2", Score: 300, WrongCount: 3, JoinOrder: 1},
		{ID: "p3", Score: 300, WrongCount: 1, JoinOrder: 3},
		{ID: "p4", Score: 300, WrongCount: 1, JoinOrder: 2},
	}

	// Act
	board := BuildLeaderboard(players)

	// Assert
	require.Len(t, board, 4)
	assert.Equal(t, "p4", board[0].ID, "При равных счете и ошибках выше вошедший раньше")
	assert.Equal(t, "p3", board[1].ID)
	assert.Equal(t, "p2", board[2].ID, "Больше ошибок - ниже при равном счете")
	assert.Equal(t, "p1", board[3].ID)

	for i, p := range board {
		assert.Equal(t, i+1, p.Rank, "Ранги 1-базные и плотные")
	}
}

func TestBuildLeaderboard_DoesNotReorderInput(t *testing.T) {
	players := []*entity.Player{
		{ID: "a", Score: 1, JoinOrder: 0},
		{ID: "b", Score: 2, JoinOrder: 1},
	}

	_ = BuildLeaderboard(players)

	assert.Equal(t, "a", players[0].ID, "Исходный срез игроков не переупорядочивается")
	assert.Equal(t, "b", players[1].ID)
}
