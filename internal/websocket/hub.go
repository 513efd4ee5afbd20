package websocket

import (
	"log"
	"sync"
)

// roomMessage - исходящее сообщение с адресацией
type roomMessage struct {
	roomID   string
	playerID string // пусто = всем участникам комнаты
	payload  []byte
}

// Hub ведет реестр живых соединений, сгруппированных по комнатам, и
// рассылает им сообщения. Регистрация, снятие и рассылка сериализуются
// одной горутиной Run; карта клиентов дополнительно защищена мьютексом
// для синхронных запросов числа подключенных.
type Hub struct {
	mu sync.RWMutex

	// roomID -> playerID -> клиент. Повторная регистрация того же игрока
	// (reconnect) вытесняет прежнее соединение.
	rooms map[string]map[string]*Client

	register   chan *Client
	unregister chan *Client
	outbound   chan roomMessage
	done       chan struct{}
}

// NewHub создает hub соединений
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client, 32),
		unregister: make(chan *Client, 32),
		outbound:   make(chan roomMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run - цикл обслуживания hub. Запускается одной горутиной при старте.
func (h *Hub) Run() {
	log.Println("[Hub] Hub запущен")
	for {
		select {
		case <-h.done:
			h.closeAll()
			log.Println("[Hub] Hub остановлен")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.outbound:
			h.deliver(msg)
		}
	}
}

// Stop останавливает hub и закрывает все соединения
func (h *Hub) Stop() {
	close(h.done)
}

// Register ставит клиента в очередь на регистрацию
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Broadcast отправляет сообщение всем участникам комнаты
func (h *Hub) Broadcast(roomID string, payload []byte) {
	h.enqueue(roomMessage{roomID: roomID, payload: payload})
}

// Send отправляет сообщение одному игроку комнаты
func (h *Hub) Send(roomID, playerID string, payload []byte) {
	h.enqueue(roomMessage{roomID: roomID, playerID: playerID, payload: payload})
}

func (h *Hub) enqueue(msg roomMessage) {
	select {
	case h.outbound <- msg:
	case <-h.done:
	}
}

// SubscriberCount возвращает число подключенных к комнате клиентов
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.RoomID]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[client.RoomID] = room
	}
	prev := room[client.PlayerID]
	room[client.PlayerID] = client
	h.mu.Unlock()

	// Reconnect: прежнее соединение игрока вытесняется новым
	if prev != nil {
		close(prev.send)
	}
	log.Printf("[Hub] Игрок %s подключен к комнате %s (conn=%s)", client.PlayerID, client.RoomID, client.ConnectionID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.RoomID]
	if ok {
		// Снимаем только если это актуальное соединение игрока:
		// при reconnect старый readPump не должен снять новое
		if current, exists := room[client.PlayerID]; exists && current.ConnectionID == client.ConnectionID {
			delete(room, client.PlayerID)
			if len(room) == 0 {
				delete(h.rooms, client.RoomID)
			}
			h.mu.Unlock()
			close(client.send)
			log.Printf("[Hub] Игрок %s отключен от комнаты %s", client.PlayerID, client.RoomID)
			return
		}
	}
	h.mu.Unlock()
}

// deliver доставляет сообщение адресатам; клиент с переполненным буфером
// отключается, чтобы не тормозить всю комнату
func (h *Hub) deliver(msg roomMessage) {
	h.mu.RLock()
	room, ok := h.rooms[msg.roomID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	var slow []*Client
	if msg.playerID != "" {
		if client, exists := room[msg.playerID]; exists {
			if !trySend(client, msg.payload) {
				slow = append(slow, client)
			}
		}
	} else {
		for _, client := range room {
			if !trySend(client, msg.payload) {
				slow = append(slow, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		log.Printf("[Hub] Буфер игрока %s переполнен, соединение закрывается", client.PlayerID)
		h.removeClient(client)
	}
}

func trySend(client *Client, payload []byte) bool {
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID, room := range h.rooms {
		for _, client := range room {
			close(client.send)
		}
		delete(h.rooms, roomID)
	}
}
