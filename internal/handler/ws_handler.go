package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/civicquiz-api/internal/service"
	"github.com/yourusername/civicquiz-api/internal/service/roomengine"
	"github.com/yourusername/civicquiz-api/internal/websocket"
)

// WSHandler обрабатывает WebSocket-соединения игроков с комнатами
type WSHandler struct {
	wsManager   *websocket.Manager
	roomManager *service.RoomManager
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(wsManager *websocket.Manager, roomManager *service.RoomManager) *WSHandler {
	handler := &WSHandler{
		wsManager:   wsManager,
		roomManager: roomManager,
	}

	// Регистрируем обработчики сообщений один раз при создании обработчика
	handler.registerMessageHandlers()
	return handler
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Пустой Origin - не браузерный клиент (мобильное приложение, curl)
		if origin == "" {
			return true
		}

		// Список разрешенных origin (синхронизирован с CORS в main.go)
		allowedOrigins := []string{
			"http://localhost:5173",
			"http://localhost:3000",
			"http://localhost:8000",
		}
		for _, allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}

		log.Printf("WebSocket: отклонен неразрешенный origin: %s", origin)
		return false
	},
	EnableCompression: true,
}

// HandleConnection обрабатывает входящее WebSocket-соединение.
// Игрок обязан уже состоять в комнате (вход через REST), иначе
// соединение отклоняется.
func (h *WSHandler) HandleConnection(c *gin.Context) {
	roomID := c.Query("room_id")
	playerID := c.Query("player_id")
	if roomID == "" || playerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id and player_id are required"})
		return
	}

	// Снимок заодно подтверждает, что комната жива и игрок в ней состоит
	snap, err := h.roomManager.GetRoomState(roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	member := false
	for _, p := range snap.Players {
		if p.ID == playerID {
			member = true
			break
		}
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "player is not a member of this room"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WSHandler] Ошибка апгрейда соединения игрока %s: %v", playerID, err)
		return
	}

	client := websocket.NewClient(h.wsManager.Hub(), conn, roomID, playerID)
	h.wsManager.Hub().Register(client)
	client.StartPumps(h.wsManager.HandleMessage)

	// Снимок сразу после подключения: клиент синхронизируется без
	// дополнительного запроса
	h.wsManager.SendToPlayer(roomID, playerID, roomengine.EventRoomUpdated, roomengine.SnapshotData(snap))
}

// answerMessage - полезная нагрузка сообщения room:answer
type answerMessage struct {
	Option int `json:"option"`
}

// registerMessageHandlers привязывает команды игроков к менеджеру комнат.
// Ошибки команд возвращаются отправителю событием server:error,
// соединение при этом не закрывается.
func (h *WSHandler) registerMessageHandlers() {
	h.wsManager.RegisterHandler("room:answer", func(data json.RawMessage, client *websocket.Client) error {
		var msg answerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		return h.roomManager.SubmitAnswer(client.RoomID, client.PlayerID, msg.Option)
	})

	h.wsManager.RegisterHandler("room:ready", func(data json.RawMessage, client *websocket.Client) error {
		return h.roomManager.MarkReady(client.RoomID, client.PlayerID)
	})

	h.wsManager.RegisterHandler("room:start", func(data json.RawMessage, client *websocket.Client) error {
		return h.roomManager.StartRoom(client.RoomID, client.PlayerID)
	})

	h.wsManager.RegisterHandler("room:leave", func(data json.RawMessage, client *websocket.Client) error {
		return h.roomManager.LeaveRoom(client.RoomID, client.PlayerID)
	})

	h.wsManager.RegisterHandler("room:hint", func(data json.RawMessage, client *websocket.Client) error {
		_, err := h.roomManager.RequestHint(client.RoomID, client.PlayerID)
		return err
	})

	h.wsManager.RegisterHandler("room:boost", func(data json.RawMessage, client *websocket.Client) error {
		return h.roomManager.UseBoost(client.RoomID, client.PlayerID)
	})

	h.wsManager.RegisterHandler("room:focus_lost", func(data json.RawMessage, client *websocket.Client) error {
		return h.roomManager.ReportFocusLost(client.RoomID, client.PlayerID)
	})

	h.wsManager.RegisterHandler("room:sync", func(data json.RawMessage, client *websocket.Client) error {
		snap, err := h.roomManager.GetRoomState(client.RoomID)
		if err != nil {
			return err
		}
		h.wsManager.SendToPlayer(client.RoomID, client.PlayerID, roomengine.EventRoomUpdated, roomengine.SnapshotData(snap))
		return nil
	})
}
