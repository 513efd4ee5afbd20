package roomengine

import (
	"github.com/yourusername/civicquiz-api/internal/domain/entity"
)

// Типы исходящих событий комнаты
const (
	EventRoomUpdated        = "room_updated"
	EventQuestionStarted    = "question_started"
	EventQuestionTimer      = "question_timer"
	EventAnswerFeedback     = "answer_feedback"
	EventLeaderboardUpdated = "leaderboard_updated"
	EventRoomCompleted      = "room_completed"
	EventRoomClosed         = "room_closed"
	EventCountdown          = "countdown"
	EventNpcChat            = "npc_chat"
	EventHintRevealed       = "hint_revealed"
)

// Snapshot - полный снимок комнаты для рассылки и ресинхронизации клиентов
type Snapshot struct {
	RoomID        string           `json:"room_id"`
	Code          string           `json:"code"`
	TopicID       uint             `json:"topic_id"`
	ModeID        string           `json:"mode_id"`
	Phase         string           `json:"phase"`
	MaxPlayers    int              `json:"max_players"`
	QuestionIndex int              `json:"question_index"`
	QuestionCount int              `json:"question_count"`
	TimeRemaining int              `json:"time_remaining_sec"`
	Players       []*entity.Player `json:"players"`
	CreatedAt     int64            `json:"created_at"`
}

// SnapshotData упаковывает снимок в данные события
func SnapshotData(s Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"room_id":            s.RoomID,
		"code":               s.Code,
		"topic_id":           s.TopicID,
		"mode_id":            s.ModeID,
		"phase":              s.Phase,
		"max_players":        s.MaxPlayers,
		"question_index":     s.QuestionIndex,
		"question_count":     s.QuestionCount,
		"time_remaining_sec": s.TimeRemaining,
		"players":            s.Players,
		"created_at":         s.CreatedAt,
	}
}

// questionData строит полезную нагрузку question_started.
// Правильный вариант и пояснение наружу не уходят.
func questionData(q *entity.Question, number, total int, timeLimitSec int, startTimeMs int64, showHints bool) map[string]interface{} {
	options := make([]map[string]interface{}, len(q.Options))
	for i, opt := range q.Options {
		options[i] = map[string]interface{}{"id": i, "text": opt}
	}
	return map[string]interface{}{
		"question_id":      q.ID,
		"number":           number,
		"total_questions":  total,
		"prompt":           q.Prompt,
		"options":          options,
		"difficulty":       q.Difficulty,
		"time_limit_sec":   timeLimitSec,
		"hint_available":   showHints && q.Hint != "",
		"start_time":       startTimeMs,
		"server_timestamp": startTimeMs,
	}
}

// leaderboardData строит полезную нагрузку leaderboard_updated
func leaderboardData(board []*entity.Player) map[string]interface{} {
	rows := make([]map[string]interface{}, len(board))
	for i, p := range board {
		rows[i] = map[string]interface{}{
			"rank":         p.Rank,
			"player_id":    p.ID,
			"display_name": p.DisplayName,
			"avatar":       p.Avatar,
			"is_npc":       p.IsNPC,
			"score":        p.Score,
			"correct":      p.CorrectCount,
			"wrong":        p.WrongCount,
			"streak":       p.Streak,
		}
	}
	return map[string]interface{}{"leaderboard": rows}
}
