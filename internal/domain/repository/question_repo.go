package repository

import (
	"github.com/yourusername/civicquiz-api/internal/domain/entity"
)

// QuestionRepository определяет методы хранилища контента.
// Движок читает вопросы один раз при создании комнаты и больше к хранилищу
// не обращается.
type QuestionRepository interface {
	GetByTopic(topicID uint, limit int) ([]entity.Question, error)
	GetByID(id uint) (*entity.Question, error)
	GetTopics() ([]entity.Topic, error)
}
