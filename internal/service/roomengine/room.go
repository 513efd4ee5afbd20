package roomengine

import (
	"log"
	"time"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
	"github.com/yourusername/civicquiz-api/internal/gamemode"
	apperrors "github.com/yourusername/civicquiz-api/internal/pkg/errors"
)

// Виды событий очереди комнаты
type eventKind int

const (
	evtJoin eventKind = iota
	evtLeave
	evtStart
	evtReady
	evtCountdownDone
	evtSubmitAnswer
	evtQuestionExpired
	evtTick
	evtAdvance
	evtHint
	evtBoost
	evtFocusLost
	evtSnapshot
	evtClose
)

// joinReply - ответ на событие допуска игрока
type joinReply struct {
	player *entity.Player
	err    error
}

// hintReply - ответ на запрос подсказки
type hintReply struct {
	hint string
	err  error
}

// roomEvent - одно мутирующее событие комнаты. Таймерные события
// штампуются индексом вопроса, под который взводился таймер: устаревший
// сигнал не проходит проверку фазы/индекса и не применяется.
type roomEvent struct {
	kind        eventKind
	playerID    string
	profile     entity.PlayerProfile
	personality string
	option      int
	isNpc       bool
	questionIdx int
	reason      string
	replyErr    chan error
	replyJoin   chan joinReply
	replyHint   chan hintReply
	replySnap   chan Snapshot
}

// Hooks - обратные вызовы комнаты к менеджеру. Вызываются из горутины
// комнаты, поэтому обязаны не блокироваться.
type Hooks struct {
	// OnCompleted вызывается после перехода в completed с итоговыми
	// результатами и историей ответов для приёмника персистентности.
	OnCompleted func(roomID string, results []entity.RoomResult, answers []entity.Answer)
	// OnEmpty вызывается, когда в комнате не осталось людей.
	OnEmpty func(roomID string)
}

// Room - одна живая игровая сессия: независимый, последовательно
// согласованный актор. Все мутирующие события обрабатываются по одному в
// порядке поступления единственной горутиной-потребителем; это и дает
// гарантии "один ответ на пару (игрок, вопрос)" и отсутствия двойного
// продвижения. Комнаты между собой ничего не разделяют.
type Room struct {
	ID         string
	Code       string
	TopicID    uint
	ModeID     string
	MaxPlayers int
	CreatedAt  time.Time

	// Неизменяемые после старта
	config    gamemode.Config
	plugin    gamemode.Plugin
	questions []entity.Question

	// Состояние, принадлежащее актору. Меняется только функциями переходов.
	phase           string
	questionIndex   int
	questionStartAt time.Time
	questionLimit   time.Duration
	players         []*entity.Player
	answers         []map[string]*entity.Answer // индекс вопроса -> playerID -> ответ
	modeState       gamemode.State
	boostsUsed      map[string]int
	closing         bool

	timers *timerTable
	deps   *Dependencies
	hooks  Hooks
	now    func() time.Time

	events chan roomEvent
	done   chan struct{}
}

// NewRoom создает комнату в фазе waiting и запускает её горутину-потребитель
func NewRoom(id, code string, topicID uint, maxPlayers int, plugin gamemode.Plugin, config gamemode.Config, questions []entity.Question, deps *Dependencies, hooks Hooks) *Room {
	queueSize := deps.Config.EventQueueSize
	if queueSize <= 0 {
		queueSize = DefaultEventQueueSize
	}

	r := &Room{
		ID:         id,
		Code:       code,
		TopicID:    topicID,
		ModeID:     plugin.ID(),
		MaxPlayers: maxPlayers,
		CreatedAt:  time.Now(),
		config:     config,
		plugin:     plugin,
		questions:  questions,
		phase:      entity.PhaseWaiting,
		answers:    make([]map[string]*entity.Answer, len(questions)),
		modeState:  plugin.NewState(),
		boostsUsed: make(map[string]int),
		timers:     newTimerTable(),
		deps:       deps,
		hooks:      hooks,
		now:        time.Now,
		events:     make(chan roomEvent, queueSize),
		done:       make(chan struct{}),
	}

	go r.run()
	return r
}

// run - единственный потребитель очереди событий комнаты
func (r *Room) run() {
	for ev := range r.events {
		r.safeHandle(ev)
		if r.closing {
			r.drain()
			return
		}
	}
}

// safeHandle ограждает процесс от паники в переходе: сбой фатален для
// одной комнаты, но не для сервера. Комната с паникой сносится, её
// участники получают room_closed.
func (r *Room) safeHandle(ev roomEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[Room %s] Паника в обработке события (kind=%d): %v", r.Code, ev.kind, rec)
			r.reject(ev, apperrors.ErrRoomClosed)
			r.emergencyClose()
		}
	}()
	r.handle(ev)
}

// emergencyClose доводит снос до конца, даже если хук выхода режима
// сам паникует: канал done обязан закрыться ровно один раз.
func (r *Room) emergencyClose() {
	if r.closing {
		return
	}
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[Room %s] Повторная паника при аварийном сносе: %v", r.Code, rec)
			}
		}()
		r.handleClose("internal fault")
	}()
	if !r.closing {
		r.closing = true
		close(r.done)
	}
}

// drain отвечает отказом на события, оставшиеся в буфере после закрытия
func (r *Room) drain() {
	for {
		select {
		case ev := <-r.events:
			r.reject(ev, apperrors.ErrRoomClosed)
		default:
			return
		}
	}
}

// reject возвращает ошибку отправителю события, если тот ждет ответа
func (r *Room) reject(ev roomEvent, err error) {
	if ev.replyErr != nil {
		ev.replyErr <- err
	}
	if ev.replyJoin != nil {
		ev.replyJoin <- joinReply{err: err}
	}
	if ev.replyHint != nil {
		ev.replyHint <- hintReply{err: err}
	}
	if ev.replySnap != nil {
		ev.replySnap <- Snapshot{}
	}
}

// handle диспетчеризует событие соответствующему переходу
func (r *Room) handle(ev roomEvent) {
	switch ev.kind {
	case evtJoin:
		ev.replyJoin <- r.handleJoin(ev)
	case evtLeave:
		ev.replyErr <- r.handleLeave(ev.playerID)
	case evtStart:
		ev.replyErr <- r.handleStart(ev.playerID)
	case evtReady:
		ev.replyErr <- r.handleReady(ev.playerID)
	case evtCountdownDone:
		r.handleCountdownDone()
	case evtSubmitAnswer:
		err := r.handleSubmit(ev)
		if ev.replyErr != nil {
			ev.replyErr <- err
		}
	case evtQuestionExpired:
		r.handleQuestionExpired(ev.questionIdx)
	case evtTick:
		r.handleTick(ev.questionIdx)
	case evtAdvance:
		r.handleAdvance(ev.questionIdx)
	case evtHint:
		ev.replyHint <- r.handleHint(ev.playerID)
	case evtBoost:
		ev.replyErr <- r.handleBoost(ev.playerID)
	case evtFocusLost:
		ev.replyErr <- r.handleFocusLost(ev.playerID)
	case evtSnapshot:
		ev.replySnap <- r.buildSnapshot()
	case evtClose:
		r.handleClose(ev.reason)
	}
}

// post ставит событие в очередь комнаты
func (r *Room) post(ev roomEvent) error {
	select {
	case r.events <- ev:
		return nil
	case <-r.done:
		return apperrors.ErrRoomClosed
	}
}

// awaitErr ждет ответа актора. Постановка в буфер могла успеть в гонке с
// закрытием комнаты, когда потребитель уже не работает: ожидание только
// ответа повесило бы вызывающего навсегда.
func (r *Room) awaitErr(reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-r.done:
		return apperrors.ErrRoomClosed
	}
}

func (r *Room) awaitJoin(reply chan joinReply) (*entity.Player, error) {
	select {
	case res := <-reply:
		return res.player, res.err
	case <-r.done:
		return nil, apperrors.ErrRoomClosed
	}
}

func (r *Room) awaitHint(reply chan hintReply) (string, error) {
	select {
	case res := <-reply:
		return res.hint, res.err
	case <-r.done:
		return "", apperrors.ErrRoomClosed
	}
}

// ---------------------------------------------------------------------------
// Публичный API: каждый вызов превращается в событие очереди и ждет ответа
// ---------------------------------------------------------------------------

// Join допускает человека в комнату
func (r *Room) Join(profile entity.PlayerProfile) (*entity.Player, error) {
	reply := make(chan joinReply, 1)
	if err := r.post(roomEvent{kind: evtJoin, profile: profile, replyJoin: reply}); err != nil {
		return nil, err
	}
	return r.awaitJoin(reply)
}

// JoinNpc допускает симулируемого игрока с указанным профилем личности
func (r *Room) JoinNpc(personalityID string) (*entity.Player, error) {
	reply := make(chan joinReply, 1)
	ev := roomEvent{kind: evtJoin, isNpc: true, personality: personalityID, replyJoin: reply}
	if err := r.post(ev); err != nil {
		return nil, err
	}
	return r.awaitJoin(reply)
}

// Leave убирает игрока из комнаты
func (r *Room) Leave(playerID string) error {
	reply := make(chan error, 1)
	if err := r.post(roomEvent{kind: evtLeave, playerID: playerID, replyErr: reply}); err != nil {
		return err
	}
	return r.awaitErr(reply)
}

// Start запускает игру. Доступно только хосту.
func (r *Room) Start(playerID string) error {
	reply := make(chan error, 1)
	if err := r.post(roomEvent{kind: evtStart, playerID: playerID, replyErr: reply}); err != nil {
		return err
	}
	return r.awaitErr(reply)
}

// MarkReady отмечает готовность игрока в зале ожидания
func (r *Room) MarkReady(playerID string) error {
	reply := make(chan error, 1)
	if err := r.post(roomEvent{kind: evtReady, playerID: playerID, replyErr: reply}); err != nil {
		return err
	}
	return r.awaitErr(reply)
}

// SubmitAnswer принимает ответ игрока на текущий вопрос
func (r *Room) SubmitAnswer(playerID string, option int) error {
	reply := make(chan error, 1)
	ev := roomEvent{kind: evtSubmitAnswer, playerID: playerID, option: option, questionIdx: -1, replyErr: reply}
	if err := r.post(ev); err != nil {
		return err
	}
	return r.awaitErr(reply)
}

// RequestHint возвращает подсказку текущего вопроса, если режим разрешает
func (r *Room) RequestHint(playerID string) (string, error) {
	reply := make(chan hintReply, 1)
	if err := r.post(roomEvent{kind: evtHint, playerID: playerID, replyHint: reply}); err != nil {
		return "", err
	}
	return r.awaitHint(reply)
}

// UseBoost активирует усиление игрока, если режим разрешает
func (r *Room) UseBoost(playerID string) error {
	reply := make(chan error, 1)
	if err := r.post(roomEvent{kind: evtBoost, playerID: playerID, replyErr: reply}); err != nil {
		return err
	}
	return r.awaitErr(reply)
}

// ReportFocusLost фиксирует потерю фокуса вкладки (режим аттестации)
func (r *Room) ReportFocusLost(playerID string) error {
	reply := make(chan error, 1)
	if err := r.post(roomEvent{kind: evtFocusLost, playerID: playerID, replyErr: reply}); err != nil {
		return err
	}
	return r.awaitErr(reply)
}

// GetSnapshot возвращает снимок комнаты для ресинхронизации клиента
func (r *Room) GetSnapshot() (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := r.post(roomEvent{kind: evtSnapshot, replySnap: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-r.done:
		return Snapshot{}, apperrors.ErrRoomClosed
	}
}

// Close сносит комнату: хуки очистки, отмена всех таймеров, уведомление участников
func (r *Room) Close(reason string) {
	_ = r.post(roomEvent{kind: evtClose, reason: reason})
}

// Done возвращает канал, закрываемый при сносе комнаты
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// ---------------------------------------------------------------------------
// Допуск и выход
// ---------------------------------------------------------------------------

// handleJoin допускает игрока. Вход разрешен только в фазе waiting;
// присоединение посреди вопроса отклоняется.
func (r *Room) handleJoin(ev roomEvent) joinReply {
	if r.phase != entity.PhaseWaiting {
		return joinReply{err: apperrors.ErrRoomAlreadyStarted}
	}
	if len(r.players) >= r.MaxPlayers {
		return joinReply{err: apperrors.ErrRoomFull}
	}

	player, err := r.buildPlayer(ev)
	if err != nil {
		return joinReply{err: err}
	}
	for _, p := range r.players {
		if p.ID == player.ID {
			return joinReply{err: apperrors.ErrConflict}
		}
	}

	player.JoinOrder = len(r.players)
	player.JoinedAt = r.now()
	player.Multiplier = 1.0
	// Хостом становится первый человек
	if !player.IsNPC && r.hostID() == "" {
		player.IsHost = true
	}
	r.players = append(r.players, player)

	log.Printf("[Room %s] Игрок %q (%s) вошел в комнату, всего игроков: %d",
		r.Code, player.DisplayName, player.ID, len(r.players))

	r.broadcastSnapshot()
	if player.IsNPC {
		r.emitNpcChat(player, entity.ChatTriggerJoin)
	}
	return joinReply{player: player}
}

// buildPlayer строит игрока из профиля человека или личности NPC
func (r *Room) buildPlayer(ev roomEvent) (*entity.Player, error) {
	if !ev.isNpc {
		return &entity.Player{
			ID:          ev.profile.ID,
			DisplayName: ev.profile.DisplayName,
			Avatar:      ev.profile.Avatar,
		}, nil
	}

	personality, err := r.deps.Npc.Get(ev.personality)
	if err != nil {
		return nil, err
	}
	suffix := r.ID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return &entity.Player{
		ID:            "npc-" + personality.ID + "-" + suffix,
		DisplayName:   personality.Name,
		Avatar:        personality.Avatar,
		IsNPC:         true,
		PersonalityID: personality.ID,
		IsReady:       true,
	}, nil
}

// handleLeave убирает игрока; статус хоста переходит следующему по порядку
// входа человеку. Таймеры других игроков не затрагиваются.
func (r *Room) handleLeave(playerID string) error {
	idx := -1
	for i, p := range r.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return apperrors.ErrPlayerNotFound
	}

	wasHost := r.players[idx].IsHost
	r.timers.Cancel(timerNpcPrefix + playerID)
	r.players = append(r.players[:idx], r.players[idx+1:]...)

	if wasHost {
		for _, p := range r.players {
			if !p.IsNPC {
				p.IsHost = true
				log.Printf("[Room %s] Статус хоста перешел к игроку %q", r.Code, p.DisplayName)
				break
			}
		}
	}

	if r.humanCount() == 0 {
		log.Printf("[Room %s] В комнате не осталось людей, помечена для сноса по простою", r.Code)
		if r.hooks.OnEmpty != nil {
			r.hooks.OnEmpty(r.ID)
		}
	}

	r.broadcastSnapshot()

	// Уход последнего не ответившего человека завершает раунд досрочно
	if r.phase == entity.PhaseQuestion && r.humanCount() > 0 && r.allHumansAnswered() {
		r.toFeedback()
	}
	return nil
}

// handleReady отмечает готовность; все готовы при достаточном составе — автостарт
func (r *Room) handleReady(playerID string) error {
	if r.phase != entity.PhaseWaiting {
		return apperrors.ErrPhaseMismatch
	}
	player := r.findPlayer(playerID)
	if player == nil {
		return apperrors.ErrPlayerNotFound
	}
	player.IsReady = true
	r.broadcastSnapshot()

	if r.readyForAutoStart() {
		log.Printf("[Room %s] Все игроки готовы, автостарт", r.Code)
		r.toCountdown()
	}
	return nil
}

// readyForAutoStart: комната заполнена, либо все люди готовы при составе
// не меньше минимума режима
func (r *Room) readyForAutoStart() bool {
	if len(r.players) >= r.MaxPlayers {
		return true
	}
	if len(r.players) < r.config.MinPlayers || len(r.players) < 2 {
		return false
	}
	for _, p := range r.players {
		if !p.IsNPC && !p.IsReady {
			return false
		}
	}
	return true
}

// handleStart - явный запуск игры хостом
func (r *Room) handleStart(playerID string) error {
	if r.phase != entity.PhaseWaiting {
		return apperrors.ErrPhaseMismatch
	}
	player := r.findPlayer(playerID)
	if player == nil {
		return apperrors.ErrPlayerNotFound
	}
	if !player.IsHost {
		return apperrors.ErrNotHost
	}
	if len(r.players) < r.config.MinPlayers {
		return apperrors.ErrCapacity
	}
	if len(r.questions) == 0 {
		return apperrors.ErrNotFound
	}
	r.toCountdown()
	return nil
}

// ---------------------------------------------------------------------------
// Вспомогательные методы актора
// ---------------------------------------------------------------------------

func (r *Room) findPlayer(playerID string) *entity.Player {
	for _, p := range r.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (r *Room) hostID() string {
	for _, p := range r.players {
		if p.IsHost {
			return p.ID
		}
	}
	return ""
}

func (r *Room) humanCount() int {
	n := 0
	for _, p := range r.players {
		if !p.IsNPC {
			n++
		}
	}
	return n
}

// allHumansAnswered проверяет, есть ли ответ текущего раунда у каждого человека
func (r *Room) allHumansAnswered() bool {
	round := r.answers[r.questionIndex]
	for _, p := range r.players {
		if p.IsNPC {
			continue
		}
		if _, ok := round[p.ID]; !ok {
			return false
		}
	}
	return true
}

// modeCtx строит снимок комнаты для хуков плагина
func (r *Room) modeCtx() *gamemode.Context {
	return &gamemode.Context{
		RoomID:        r.ID,
		Players:       r.players,
		Questions:     r.questions,
		QuestionIndex: r.questionIndex,
		Config:        &r.config,
		State:         r.modeState,
		Emit:          r.broadcast,
	}
}

func (r *Room) broadcast(eventType string, data map[string]interface{}) {
	r.deps.Broadcaster.BroadcastToRoom(r.ID, eventType, data)
}

func (r *Room) sendTo(playerID, eventType string, data map[string]interface{}) {
	r.deps.Broadcaster.SendToPlayer(r.ID, playerID, eventType, data)
}

// broadcastSnapshot рассылает полный снимок комнаты всем участникам.
// Каждая успешная мутация состава или фазы заканчивается этим вызовом.
func (r *Room) broadcastSnapshot() {
	r.broadcast(EventRoomUpdated, SnapshotData(r.buildSnapshot()))
}

// buildSnapshot собирает снимок комнаты для рассылки и ресинхронизации
func (r *Room) buildSnapshot() Snapshot {
	remaining := 0
	if r.phase == entity.PhaseQuestion {
		elapsed := r.now().Sub(r.questionStartAt)
		if left := r.questionLimit - elapsed; left > 0 {
			remaining = int(left.Seconds())
		}
	}
	return Snapshot{
		RoomID:        r.ID,
		Code:          r.Code,
		TopicID:       r.TopicID,
		ModeID:        r.ModeID,
		Phase:         r.phase,
		MaxPlayers:    r.MaxPlayers,
		QuestionIndex: r.questionIndex,
		QuestionCount: len(r.questions),
		TimeRemaining: remaining,
		Players:       r.players,
		CreatedAt:     r.CreatedAt.UnixMilli(),
	}
}

// emitNpcChat публикует реплику NPC по триггеру с учетом его разговорчивости
func (r *Room) emitNpcChat(player *entity.Player, trigger string) {
	personality, err := r.deps.Npc.Get(player.PersonalityID)
	if err != nil {
		return
	}
	if !r.deps.Npc.ShouldChat(personality) {
		return
	}
	text := r.deps.Npc.GenerateChatMessage(personality.ID, trigger, map[string]interface{}{})
	if text == "" {
		return
	}
	r.broadcast(EventNpcChat, map[string]interface{}{
		"player_id":    player.ID,
		"display_name": player.DisplayName,
		"text":         text,
	})
}
