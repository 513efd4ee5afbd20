package websocket

import (
	"encoding/json"
	"fmt"
	"log"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// HandlerFunc обрабатывает входящее сообщение клиента
type HandlerFunc func(data json.RawMessage, client *Client) error

// Manager сериализует исходящие события комнат и маршрутизирует входящие
// сообщения клиентов по зарегистрированным обработчикам. Реализует
// исходящий канал движка комнат.
type Manager struct {
	hub            *Hub
	messageHandler map[string]HandlerFunc
}

// NewManager создает менеджер WebSocket поверх hub
func NewManager(hub *Hub) *Manager {
	return &Manager{
		hub:            hub,
		messageHandler: make(map[string]HandlerFunc),
	}
}

// Hub возвращает hub соединений
func (m *Manager) Hub() *Hub {
	return m.hub
}

// RegisterHandler регистрирует обработчик для типа входящих сообщений
func (m *Manager) RegisterHandler(eventType string, handler HandlerFunc) {
	m.messageHandler[eventType] = handler
	log.Printf("[WebSocketManager] Зарегистрирован обработчик для сообщений типа: %s", eventType)
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, если обработка не удалась и соединение нужно закрыть.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event Event
	if err := json.Unmarshal(message, &event); err != nil {
		log.Printf("[WebSocketManager] Нечитаемое сообщение от игрока %s: %v", client.PlayerID, err)
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err
	}

	handler, ok := m.messageHandler[event.Type]
	if !ok {
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}

	rawData, _ := json.Marshal(event.Data)
	if err := handler(rawData, client); err != nil {
		// Ошибка уровня команды уходит отправителю, соединение живет дальше
		m.SendErrorToClient(client, "command_failed", err.Error())
	}
	return nil
}

// SendErrorToClient отправляет стандартизированное сообщение об ошибке клиенту
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	payload, err := json.Marshal(Event{
		Type: "server:error",
		Data: map[string]string{"code": code, "message": message},
	})
	if err != nil {
		return
	}
	m.hub.Send(client.RoomID, client.PlayerID, payload)
}

// BroadcastToRoom отправляет событие всем участникам комнаты
func (m *Manager) BroadcastToRoom(roomID string, eventType string, data map[string]interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("[WebSocketManager] Ошибка сериализации события %s: %v", eventType, err)
		return
	}
	m.hub.Broadcast(roomID, payload)
}

// SendToPlayer отправляет событие конкретному игроку комнаты
func (m *Manager) SendToPlayer(roomID string, playerID string, eventType string, data map[string]interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("[WebSocketManager] Ошибка сериализации события %s: %v", eventType, err)
		return
	}
	m.hub.Send(roomID, playerID, payload)
}
