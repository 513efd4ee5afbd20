package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/civicquiz-api/internal/pkg/errors"
)

// ResultRepo реализует repository.ResultRepository
type ResultRepo struct {
	db *gorm.DB
}

// NewResultRepo создает новый репозиторий результатов
func NewResultRepo(db *gorm.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// SaveResults сохраняет итоговые результаты всех игроков комнаты одной транзакцией
func (r *ResultRepo) SaveResults(results []entity.RoomResult) error {
	if len(results) == 0 {
		return nil
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&results).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to save room results: %w", err)
	}
	return nil
}

// SaveAnswers сохраняет историю ответов комнаты.
// Уникальный индекс (room_id, player_id, question_id) дублирует инвариант
// "один ответ на пару (игрок, вопрос)" на уровне БД.
func (r *ResultRepo) SaveAnswers(answers []entity.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	if err := r.db.Create(&answers).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to save answers: %w", err)
	}
	return nil
}

// GetRoomResults возвращает результаты комнаты, упорядоченные по рангу
func (r *ResultRepo) GetRoomResults(roomID string) ([]entity.RoomResult, error) {
	var results []entity.RoomResult
	err := r.db.Where("room_id = ?", roomID).Order("rank").Find(&results).Error
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return results, nil
}

// GetPlayerHistory возвращает последние результаты игрока
func (r *ResultRepo) GetPlayerHistory(playerID string, limit int) ([]entity.RoomResult, error) {
	var results []entity.RoomResult
	query := r.db.Where("player_id = ?", playerID).Order("completed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// isUniqueViolation проверяет ошибку уникального ключа PostgreSQL (23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
