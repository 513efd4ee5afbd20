package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/civicquiz-api/internal/pkg/errors"
	"github.com/yourusername/civicquiz-api/internal/service"
)

// RoomHandler обрабатывает REST-запросы, связанные с комнатами
type RoomHandler struct {
	roomManager *service.RoomManager
}

// NewRoomHandler создает новый обработчик комнат
func NewRoomHandler(roomManager *service.RoomManager) *RoomHandler {
	return &RoomHandler{roomManager: roomManager}
}

// ListModes возвращает зарегистрированные режимы игры
func (h *RoomHandler) ListModes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modes": h.roomManager.ListModes()})
}

// ListTopics возвращает темы контента
func (h *RoomHandler) ListTopics(c *gin.Context) {
	topics, err := h.roomManager.GetTopics()
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

// PlayerRequest - профиль игрока в теле запроса
type PlayerRequest struct {
	ID          string `json:"id" binding:"required,min=1,max=36"`
	DisplayName string `json:"display_name" binding:"required,min=1,max=50"`
	Avatar      string `json:"avatar" binding:"omitempty,max=100"`
}

func (p PlayerRequest) toProfile() entity.PlayerProfile {
	return entity.PlayerProfile{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Avatar:      p.Avatar,
	}
}

// CreateRoomRequest представляет запрос на создание комнаты
type CreateRoomRequest struct {
	ModeID     string        `json:"mode_id" binding:"required"`
	TopicID    uint          `json:"topic_id" binding:"required"`
	MaxPlayers int           `json:"max_players" binding:"omitempty,min=1,max=16"`
	Player     PlayerRequest `json:"player" binding:"required"`
}

// CreateRoom обрабатывает запрос на создание комнаты.
// Создатель входит первым и становится хостом.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, player, err := h.roomManager.CreateRoom(req.ModeID, req.TopicID, req.MaxPlayers, req.Player.toProfile())
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	snap, err := room.GetSnapshot()
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": snap, "player": player})
}

// JoinRoomRequest представляет запрос на вход в комнату по коду.
// Длину кода не проверяем здесь: она задается конфигурацией движка,
// а регистр и пробелы нормализует менеджер комнат.
type JoinRoomRequest struct {
	Code   string        `json:"code" binding:"required"`
	Player PlayerRequest `json:"player" binding:"required"`
}

// JoinRoom обрабатывает вход игрока в комнату по её публичному коду
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, player, err := h.roomManager.JoinRoom(req.Code, req.Player.toProfile())
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	snap, err := room.GetSnapshot()
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": snap, "player": player})
}

// GetRoomState возвращает снимок комнаты для ресинхронизации
func (h *RoomHandler) GetRoomState(c *gin.Context) {
	snap, err := h.roomManager.GetRoomState(c.Param("id"))
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// PlayerActionRequest - запрос действия от имени игрока
type PlayerActionRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

// StartRoom запускает игру по команде хоста
func (h *RoomHandler) StartRoom(c *gin.Context) {
	var req PlayerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.roomManager.StartRoom(c.Param("id"), req.PlayerID); err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

// MarkReady отмечает готовность игрока в зале ожидания
func (h *RoomHandler) MarkReady(c *gin.Context) {
	var req PlayerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.roomManager.MarkReady(c.Param("id"), req.PlayerID); err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// LeaveRoom убирает игрока из комнаты
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	var req PlayerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.roomManager.LeaveRoom(c.Param("id"), req.PlayerID); err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// SubmitAnswerRequest представляет запрос отправки ответа
type SubmitAnswerRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
	Option   int    `json:"option"`
}

// SubmitAnswer принимает ответ игрока на текущий вопрос
func (h *RoomHandler) SubmitAnswer(c *gin.Context) {
	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.roomManager.SubmitAnswer(c.Param("id"), req.PlayerID, req.Option); err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

// RequestHint возвращает подсказку текущего вопроса
func (h *RoomHandler) RequestHint(c *gin.Context) {
	var req PlayerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hint, err := h.roomManager.RequestHint(c.Param("id"), req.PlayerID)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hint": hint})
}

// UseBoost активирует усиление игрока
func (h *RoomHandler) UseBoost(c *gin.Context) {
	var req PlayerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.roomManager.UseBoost(c.Param("id"), req.PlayerID); err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "boost_activated"})
}

// AddNpcRequest представляет запрос на добавление NPC
type AddNpcRequest struct {
	PersonalityID string `json:"personality_id"` // пусто = автоподбор
}

// AddNpc добавляет в комнату симулируемого игрока
func (h *RoomHandler) AddNpc(c *gin.Context) {
	var req AddNpcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	player, err := h.roomManager.AddNpc(c.Param("id"), req.PersonalityID)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"player": player})
}

// GetRoomResults возвращает итоги завершенной комнаты
func (h *RoomHandler) GetRoomResults(c *gin.Context) {
	results, err := h.roomManager.GetRoomResults(c.Param("id"))
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GetPlayerHistory возвращает историю игр игрока
func (h *RoomHandler) GetPlayerHistory(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	history, err := h.roomManager.GetPlayerHistory(c.Param("id"), limit)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// handleRoomError переводит ошибки движка в HTTP-статусы
func (h *RoomHandler) handleRoomError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrRoomNotFound), errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrPlayerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrRoomFull), errors.Is(err, apperrors.ErrRoomAlreadyStarted), errors.Is(err, apperrors.ErrDuplicateAnswer), errors.Is(err, apperrors.ErrPhaseMismatch), errors.Is(err, apperrors.ErrRoomClosed), errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidMode), errors.Is(err, apperrors.ErrCapacity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotHost):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrHintsDisabled), errors.Is(err, apperrors.ErrBoostUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("[RoomHandler] Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
