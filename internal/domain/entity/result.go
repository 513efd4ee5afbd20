package entity

import "time"

// RoomResult представляет итоговый результат участия игрока в комнате.
// Записывается приёмником персистентности, когда комната достигает фазы completed.
type RoomResult struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RoomID         string    `gorm:"size:36;not null;index;uniqueIndex:idx_room_player" json:"room_id"`
	PlayerID       string    `gorm:"size:36;not null;uniqueIndex:idx_room_player" json:"player_id"`
	DisplayName    string    `gorm:"size:50;not null" json:"display_name"`
	IsNPC          bool      `gorm:"not null;default:false" json:"is_npc"`
	ModeID         string    `gorm:"size:30;not null" json:"mode_id"`
	TopicID        uint      `gorm:"not null;index" json:"topic_id"`
	Score          int       `gorm:"not null;default:0" json:"score"`
	CorrectAnswers int       `gorm:"not null;default:0" json:"correct_answers"`
	WrongAnswers   int       `gorm:"not null;default:0" json:"wrong_answers"`
	TotalQuestions int       `gorm:"not null;default:0" json:"total_questions"`
	Rank           int       `gorm:"not null;default:0;index:idx_room_rank" json:"rank"`
	CompletedAt    time.Time `gorm:"not null" json:"completed_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (RoomResult) TableName() string {
	return "room_results"
}
