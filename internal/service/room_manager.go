package service

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
	"github.com/yourusername/civicquiz-api/internal/domain/repository"
	"github.com/yourusername/civicquiz-api/internal/gamemode"
	apperrors "github.com/yourusername/civicquiz-api/internal/pkg/errors"
	"github.com/yourusername/civicquiz-api/internal/service/roomengine"
)

// Алфавит кодов комнат: без нулей, единиц и похожих на них букв,
// чтобы код диктовался по телефону без ошибок
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const roomCodeMaxAttempts = 10

// RoomManager владеет реестром живых комнат: создание с уникальным кодом,
// маршрутизация команд клиентов в акторы комнат, уборка брошенных комнат
// и передача результатов в хранилище после завершения игры.
type RoomManager struct {
	// Компоненты системы
	registry *gamemode.Registry
	npc      *roomengine.NpcEngine

	// Репозитории для прямого доступа
	questionRepo repository.QuestionRepository
	resultRepo   repository.ResultRepository
	cacheRepo    repository.CacheRepository
	broadcaster  roomengine.Broadcaster

	config *roomengine.Config

	// Реестр комнат
	mu         sync.RWMutex
	rooms      map[string]*roomengine.Room // roomID -> комната
	codes      map[string]string           // код -> roomID
	emptySince map[string]time.Time        // roomID -> момент ухода последнего человека
	doneSince  map[string]time.Time        // roomID -> момент завершения игры

	codeRng *rand.Rand

	// Контекст для управления жизненным циклом
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRoomManager создает менеджер комнат и запускает уборщика
func NewRoomManager(
	questionRepo repository.QuestionRepository,
	resultRepo repository.ResultRepository,
	cacheRepo repository.CacheRepository,
	registry *gamemode.Registry,
	npc *roomengine.NpcEngine,
	broadcaster roomengine.Broadcaster,
	config *roomengine.Config,
) *RoomManager {
	if config == nil {
		config = roomengine.DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())

	rm := &RoomManager{
		registry:     registry,
		npc:          npc,
		questionRepo: questionRepo,
		resultRepo:   resultRepo,
		cacheRepo:    cacheRepo,
		broadcaster:  broadcaster,
		config:       config,
		rooms:        make(map[string]*roomengine.Room),
		codes:        make(map[string]string),
		emptySince:   make(map[string]time.Time),
		doneSince:    make(map[string]time.Time),
		codeRng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		ctx:          ctx,
		cancel:       cancel,
	}

	go rm.runJanitor()

	log.Println("[RoomManager] Менеджер комнат успешно инициализирован")
	return rm
}

// ModeInfo - метаданные режима для списка в лобби
type ModeInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MinPlayers  int    `json:"min_players"`
	MaxPlayers  int    `json:"max_players"`
}

// ListModes возвращает зарегистрированные режимы игры
func (rm *RoomManager) ListModes() []ModeInfo {
	plugins := rm.registry.List()
	modes := make([]ModeInfo, 0, len(plugins))
	for _, p := range plugins {
		cfg := p.DefaultConfig()
		modes = append(modes, ModeInfo{
			ID:          p.ID(),
			Name:        p.Name(),
			Description: p.Description(),
			MinPlayers:  cfg.MinPlayers,
			MaxPlayers:  cfg.MaxPlayers,
		})
	}
	return modes
}

// GetTopics возвращает список тем контента
func (rm *RoomManager) GetTopics() ([]entity.Topic, error) {
	return rm.questionRepo.GetTopics()
}

// CreateRoom создает комнату: режим из реестра, вопросы из хранилища,
// уникальный код с резервированием в Redis. Создатель входит первым
// и становится хостом.
func (rm *RoomManager) CreateRoom(modeID string, topicID uint, maxPlayers int, host entity.PlayerProfile) (*roomengine.Room, *entity.Player, error) {
	plugin, err := rm.registry.Get(modeID)
	if err != nil {
		return nil, nil, err
	}

	config := plugin.DefaultConfig()
	if maxPlayers == 0 {
		maxPlayers = config.MaxPlayers
	}
	if maxPlayers < config.MinPlayers || maxPlayers > config.MaxPlayers {
		return nil, nil, apperrors.ErrCapacity
	}

	questions, err := rm.questionRepo.GetByTopic(topicID, config.QuestionCount)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load questions for topic %d: %w", topicID, err)
	}

	roomID := uuid.New().String()
	code, err := rm.reserveCode(roomID)
	if err != nil {
		return nil, nil, err
	}

	deps := &roomengine.Dependencies{
		QuestionRepo: rm.questionRepo,
		ResultRepo:   rm.resultRepo,
		CacheRepo:    rm.cacheRepo,
		Registry:     rm.registry,
		Npc:          rm.npc,
		Broadcaster:  rm.broadcaster,
		Config:       rm.config,
	}
	hooks := roomengine.Hooks{
		OnCompleted: rm.onRoomCompleted,
		OnEmpty:     rm.onRoomEmpty,
	}

	room := roomengine.NewRoom(roomID, code, topicID, maxPlayers, plugin, config, questions, deps, hooks)

	rm.mu.Lock()
	rm.rooms[roomID] = room
	rm.codes[code] = roomID
	// Пустая комната без единого входа тоже подлежит уборке
	rm.emptySince[roomID] = time.Now()
	rm.mu.Unlock()

	player, err := room.Join(host)
	if err != nil {
		rm.closeRoom(roomID, "host admission failed")
		return nil, nil, err
	}
	rm.clearEmpty(roomID)

	log.Printf("[RoomManager] Комната %s создана: режим %s, тема %d, вопросов %d, до %d игроков",
		code, modeID, topicID, len(questions), maxPlayers)
	return room, player, nil
}

// reserveCode генерирует код комнаты и резервирует его в Redis через SetNX,
// чтобы коды не пересекались между экземплярами сервиса
func (rm *RoomManager) reserveCode(roomID string) (string, error) {
	for attempt := 0; attempt < roomCodeMaxAttempts; attempt++ {
		code := rm.randomCode()

		rm.mu.RLock()
		_, taken := rm.codes[code]
		rm.mu.RUnlock()
		if taken {
			continue
		}

		ok, err := rm.cacheRepo.SetNX(roomCodeKey(code), roomID, rm.config.CodeReservationTTL)
		if err != nil {
			// Redis недоступен: локальной проверки достаточно для одного экземпляра
			log.Printf("[RoomManager] Резервирование кода %s в Redis не удалось: %v", code, err)
			return code, nil
		}
		if ok {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to allocate unique room code after %d attempts", roomCodeMaxAttempts)
}

func (rm *RoomManager) randomCode() string {
	length := rm.config.RoomCodeLength
	if length <= 0 {
		length = roomengine.DefaultRoomCodeLength
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = roomCodeAlphabet[rm.codeRng.Intn(len(roomCodeAlphabet))]
	}
	return string(buf)
}

// GetRoom возвращает комнату по идентификатору
func (rm *RoomManager) GetRoom(roomID string) (*roomengine.Room, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room, ok := rm.rooms[roomID]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	return room, nil
}

// GetRoomByCode возвращает комнату по её публичному коду.
// Коды нечувствительны к регистру: клиент может набрать abc234.
func (rm *RoomManager) GetRoomByCode(code string) (*roomengine.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	rm.mu.RLock()
	defer rm.mu.RUnlock()
	roomID, ok := rm.codes[code]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	room, ok := rm.rooms[roomID]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	return room, nil
}

// JoinRoom допускает игрока в комнату по коду
func (rm *RoomManager) JoinRoom(code string, profile entity.PlayerProfile) (*roomengine.Room, *entity.Player, error) {
	room, err := rm.GetRoomByCode(code)
	if err != nil {
		return nil, nil, err
	}
	player, err := room.Join(profile)
	if err != nil {
		return nil, nil, err
	}
	rm.clearEmpty(room.ID)
	return room, player, nil
}

// AddNpc добавляет в комнату симулируемого игрока. Пустой personalityID
// означает автоподбор профиля по числу уже сидящих NPC.
func (rm *RoomManager) AddNpc(roomID string, personalityID string) (*entity.Player, error) {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return nil, err
	}

	if personalityID == "" {
		snap, err := room.GetSnapshot()
		if err != nil {
			return nil, err
		}
		npcCount := 0
		for _, p := range snap.Players {
			if p.IsNPC {
				npcCount++
			}
		}
		personality := rm.npc.Pick(npcCount)
		if personality == nil {
			return nil, apperrors.ErrNotFound
		}
		personalityID = personality.ID
	}
	return room.JoinNpc(personalityID)
}

// LeaveRoom убирает игрока из комнаты
func (rm *RoomManager) LeaveRoom(roomID, playerID string) error {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return err
	}
	return room.Leave(playerID)
}

// StartRoom запускает игру по команде хоста
func (rm *RoomManager) StartRoom(roomID, playerID string) error {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return err
	}
	return room.Start(playerID)
}

// MarkReady отмечает готовность игрока
func (rm *RoomManager) MarkReady(roomID, playerID string) error {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return err
	}
	return room.MarkReady(playerID)
}

// SubmitAnswer маршрутизирует ответ игрока в актор комнаты
func (rm *RoomManager) SubmitAnswer(roomID, playerID string, option int) error {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return err
	}
	return room.SubmitAnswer(playerID, option)
}

// RequestHint запрашивает подсказку текущего вопроса
func (rm *RoomManager) RequestHint(roomID, playerID string) (string, error) {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return "", err
	}
	return room.RequestHint(playerID)
}

// UseBoost активирует усиление игрока
func (rm *RoomManager) UseBoost(roomID, playerID string) error {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return err
	}
	return room.UseBoost(playerID)
}

// ReportFocusLost фиксирует потерю фокуса вкладки игрока
func (rm *RoomManager) ReportFocusLost(roomID, playerID string) error {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return err
	}
	return room.ReportFocusLost(playerID)
}

// GetRoomState возвращает снимок комнаты для ресинхронизации после reconnect
func (rm *RoomManager) GetRoomState(roomID string) (roomengine.Snapshot, error) {
	room, err := rm.GetRoom(roomID)
	if err != nil {
		return roomengine.Snapshot{}, err
	}
	return room.GetSnapshot()
}

// GetRoomResults возвращает итоги завершенной комнаты: сперва из кеша,
// при промахе из базы
func (rm *RoomManager) GetRoomResults(roomID string) ([]entity.RoomResult, error) {
	var cached []entity.RoomResult
	if err := rm.cacheRepo.GetJSON(roomResultsKey(roomID), &cached); err == nil && len(cached) > 0 {
		return cached, nil
	}
	return rm.resultRepo.GetRoomResults(roomID)
}

// GetPlayerHistory возвращает историю игр игрока
func (rm *RoomManager) GetPlayerHistory(playerID string, limit int) ([]entity.RoomResult, error) {
	return rm.resultRepo.GetPlayerHistory(playerID, limit)
}

// onRoomCompleted - приёмник персистентности. Вызывается из горутины
// комнаты, поэтому запись в базу уходит в отдельную горутину: сбой
// хранилища не трогает уже разосланную игрокам финальную таблицу.
func (rm *RoomManager) onRoomCompleted(roomID string, results []entity.RoomResult, answers []entity.Answer) {
	rm.mu.Lock()
	rm.doneSince[roomID] = time.Now()
	rm.mu.Unlock()

	go func() {
		if err := rm.resultRepo.SaveResults(results); err != nil {
			log.Printf("[RoomManager] Ошибка сохранения результатов комнаты %s: %v", roomID, err)
		}
		if err := rm.resultRepo.SaveAnswers(answers); err != nil {
			log.Printf("[RoomManager] Ошибка сохранения ответов комнаты %s: %v", roomID, err)
		}
		if err := rm.cacheRepo.SetJSON(roomResultsKey(roomID), results, rm.config.ResultCacheTTL); err != nil {
			log.Printf("[RoomManager] Ошибка кеширования результатов комнаты %s: %v", roomID, err)
		}
		log.Printf("[RoomManager] Результаты комнаты %s сохранены: %d игроков, %d ответов",
			roomID, len(results), len(answers))
	}()
}

// onRoomEmpty помечает комнату для уборки по простою
func (rm *RoomManager) onRoomEmpty(roomID string) {
	rm.mu.Lock()
	rm.emptySince[roomID] = time.Now()
	rm.mu.Unlock()
}

func (rm *RoomManager) clearEmpty(roomID string) {
	rm.mu.Lock()
	delete(rm.emptySince, roomID)
	rm.mu.Unlock()
}

// runJanitor периодически сносит брошенные и давно завершенные комнаты
func (rm *RoomManager) runJanitor() {
	ticker := time.NewTicker(rm.config.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rm.ctx.Done():
			log.Println("[RoomManager] Завершение работы уборщика комнат")
			return
		case <-ticker.C:
			rm.sweep()
		}
	}
}

// sweep собирает комнаты, простоявшие дольше IdleTimeout, и закрывает их
func (rm *RoomManager) sweep() {
	now := time.Now()
	var stale []string

	rm.mu.RLock()
	for roomID, since := range rm.emptySince {
		if now.Sub(since) >= rm.config.IdleTimeout {
			stale = append(stale, roomID)
		}
	}
	for roomID, since := range rm.doneSince {
		if now.Sub(since) >= rm.config.IdleTimeout {
			stale = append(stale, roomID)
		}
	}
	rm.mu.RUnlock()

	for _, roomID := range stale {
		rm.closeRoom(roomID, "idle timeout")
	}
}

// closeRoom сносит комнату и освобождает её код
func (rm *RoomManager) closeRoom(roomID, reason string) {
	rm.mu.Lock()
	room, ok := rm.rooms[roomID]
	if !ok {
		rm.mu.Unlock()
		return
	}
	delete(rm.rooms, roomID)
	delete(rm.emptySince, roomID)
	delete(rm.doneSince, roomID)
	code := room.Code
	delete(rm.codes, code)
	rm.mu.Unlock()

	room.Close(reason)
	if err := rm.cacheRepo.Delete(roomCodeKey(code)); err != nil {
		log.Printf("[RoomManager] Ошибка освобождения кода %s: %v", code, err)
	}
	log.Printf("[RoomManager] Комната %s (%s) снесена: %s", code, roomID, reason)
}

// CloseRoom сносит комнату по явной команде
func (rm *RoomManager) CloseRoom(roomID, reason string) error {
	rm.mu.RLock()
	_, ok := rm.rooms[roomID]
	rm.mu.RUnlock()
	if !ok {
		return apperrors.ErrRoomNotFound
	}
	rm.closeRoom(roomID, reason)
	return nil
}

// RoomCount возвращает число живых комнат
func (rm *RoomManager) RoomCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// Shutdown корректно завершает работу менеджера: останавливает уборщика
// и сносит все живые комнаты
func (rm *RoomManager) Shutdown() {
	log.Println("[RoomManager] Завершение работы менеджера комнат...")
	rm.cancel()

	rm.mu.RLock()
	ids := make([]string, 0, len(rm.rooms))
	for roomID := range rm.rooms {
		ids = append(ids, roomID)
	}
	rm.mu.RUnlock()

	for _, roomID := range ids {
		rm.closeRoom(roomID, "server shutdown")
	}
	log.Println("[RoomManager] Менеджер комнат остановлен")
}

func roomCodeKey(code string) string {
	return "room:code:" + code
}

func roomResultsKey(roomID string) string {
	return "room:" + roomID + ":results"
}
