package websocket

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	// Короткий pongWait для быстрого обнаружения отключений
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 1024

	// Размер буфера канала исходящих сообщений клиента
	clientBufferSize = 128
)

// Client является посредником между WebSocket-соединением и hub.
// Один клиент — один игрок в одной комнате.
type Client struct {
	// ID игрока
	PlayerID string

	// ID комнаты, к которой привязан клиент
	RoomID string

	// Уникальный ID соединения (переподключение дает новый)
	ConnectionID string

	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал исходящих сообщений
	send chan []byte
}

// NewClient создает клиента для соединения игрока с комнатой
func NewClient(hub *Hub, conn *websocket.Conn, roomID, playerID string) *Client {
	return &Client{
		PlayerID:     playerID,
		RoomID:       roomID,
		ConnectionID: uuid.New().String(),
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, clientBufferSize),
	}
}

// StartPumps запускает насосы чтения и записи клиента
func (c *Client) StartPumps(onMessage func(message []byte, client *Client) error) {
	go c.writePump()
	go c.readPump(onMessage)
}

// readPump читает сообщения из соединения и передает их обработчику.
// Единственный читатель соединения; завершение насоса снимает клиента
// с регистрации в hub.
func (c *Client) readPump(onMessage func(message []byte, client *Client) error) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] Неожиданное закрытие соединения игрока %s: %v", c.PlayerID, err)
			}
			return
		}
		if err := onMessage(message, c); err != nil {
			log.Printf("[WebSocket] Фатальная ошибка обработки сообщения игрока %s: %v", c.PlayerID, err)
			return
		}
	}
}

// writePump пишет сообщения из канала send в соединение и пингует клиента.
// Единственный писатель соединения.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
