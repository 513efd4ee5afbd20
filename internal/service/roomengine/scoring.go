package roomengine

import (
	"sort"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
	"github.com/yourusername/civicquiz-api/internal/gamemode"
)

// ScoreBreakdown - разбивка начисленных за ответ очков
type ScoreBreakdown struct {
	Base       int     `json:"base"`
	SpeedBonus int     `json:"speed_bonus"`
	ComboBonus int     `json:"combo_bonus"`
	Multiplier float64 `json:"multiplier"`
	Total      int     `json:"total"`
}

// CalculateScore - чистая функция подсчета очков за один ответ.
// streak — длина серии правильных ответов ПЕРЕД этим ответом.
// Неправильный ответ всегда дает 0 независимо от латентности.
func CalculateScore(cfg gamemode.ScoringConfig, speedEnabled bool, isCorrect bool, latencyMs int64, streak int) ScoreBreakdown {
	if !isCorrect {
		return ScoreBreakdown{Multiplier: 1.0}
	}

	breakdown := ScoreBreakdown{
		Base:       cfg.BasePoints,
		Multiplier: 1.0,
	}

	// Бонус за скорость по дискретным корзинам латентности
	if speedEnabled {
		for _, bucket := range cfg.SpeedBuckets {
			if latencyMs <= bucket.MaxLatencyMs {
				breakdown.SpeedBonus = bucket.Bonus
				breakdown.Multiplier = bucket.Multiplier
				break
			}
		}
	}

	// Комбо-бонус за серию правильных ответов, с потолком
	if streak > 0 && cfg.ComboStep > 0 {
		combo := streak * cfg.ComboStep
		if cfg.ComboCap > 0 && combo > cfg.ComboCap {
			combo = cfg.ComboCap
		}
		breakdown.ComboBonus = combo

		// Серия дополнительно поднимает множитель до потолка
		breakdown.Multiplier += 0.25 * float64(streak)
		if cfg.MaxMultiplier > 0 && breakdown.Multiplier > cfg.MaxMultiplier {
			breakdown.Multiplier = cfg.MaxMultiplier
		}
	}

	breakdown.Total = breakdown.Base + breakdown.SpeedBonus + breakdown.ComboBonus
	return breakdown
}

// BuildLeaderboard возвращает игроков в порядке таблицы лидеров и
// проставляет 1-базные ранги. Полный порядок: счет по убыванию, затем
// меньше неверных ответов, затем более ранний порядок входа в комнату.
func BuildLeaderboard(players []*entity.Player) []*entity.Player {
	board := make([]*entity.Player, len(players))
	copy(board, players)

	sort.SliceStable(board, func(i, j int) bool {
		if board[i].Score != board[j].Score {
			return board[i].Score > board[j].Score
		}
		if board[i].WrongCount != board[j].WrongCount {
			return board[i].WrongCount < board[j].WrongCount
		}
		return board[i].JoinOrder < board[j].JoinOrder
	})

	for i, p := range board {
		p.Rank = i + 1
	}
	return board
}
