package entity

import "time"

// Answer представляет ответ одного игрока на один вопрос.
// Создается ровно один раз на пару (игрок, вопрос): повторная отправка
// отклоняется, а не перезаписывается. Уникальный индекс в БД дублирует
// эту гарантию на слое персистентности.
type Answer struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RoomID         string    `gorm:"size:36;not null;index;uniqueIndex:idx_room_player_question" json:"room_id"`
	PlayerID       string    `gorm:"size:36;not null;uniqueIndex:idx_room_player_question" json:"player_id"`
	QuestionID     uint      `gorm:"not null;uniqueIndex:idx_room_player_question" json:"question_id"`
	SelectedOption int       `gorm:"not null;default:-1" json:"selected_option"`
	IsCorrect      bool      `gorm:"not null" json:"is_correct"`
	ResponseTimeMs int64     `gorm:"not null" json:"response_time_ms"`
	Score          int       `gorm:"not null;default:0" json:"score"`
	IsTimeout      bool      `gorm:"not null;default:false" json:"is_timeout"`
	IsVetoed       bool      `gorm:"not null;default:false" json:"is_vetoed"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Answer) TableName() string {
	return "answers"
}
