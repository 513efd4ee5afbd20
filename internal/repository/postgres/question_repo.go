package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/civicquiz-api/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// GetByID возвращает вопрос по ID
func (r *QuestionRepo) GetByID(id uint) (*entity.Question, error) {
	var question entity.Question
	err := r.db.First(&question, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

// GetByTopic возвращает упорядоченный список вопросов темы.
// limit <= 0 означает "все вопросы темы".
func (r *QuestionRepo) GetByTopic(topicID uint, limit int) ([]entity.Question, error) {
	var questions []entity.Question
	query := r.db.Where("topic_id = ?", topicID).Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&questions).Error; err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return questions, nil
}

// GetTopics возвращает список доступных тем
func (r *QuestionRepo) GetTopics() ([]entity.Topic, error) {
	var topics []entity.Topic
	if err := r.db.Order("id").Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}
