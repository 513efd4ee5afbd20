package repository

import (
	"github.com/yourusername/civicquiz-api/internal/domain/entity"
)

// ResultRepository определяет методы приёмника персистентности.
// Запись происходит один раз, когда комната достигает фазы completed.
type ResultRepository interface {
	SaveResults(results []entity.RoomResult) error
	SaveAnswers(answers []entity.Answer) error
	GetRoomResults(roomID string) ([]entity.RoomResult, error)
	GetPlayerHistory(playerID string, limit int) ([]entity.RoomResult, error)
}
