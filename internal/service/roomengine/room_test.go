package roomengine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
	"github.com/yourusername/civicquiz-api/internal/gamemode"
	apperrors "github.com/yourusername/civicquiz-api/internal/pkg/errors"
)

// ============================================================================
// Заглушки и сборка тестовой комнаты
// ============================================================================

type recordedEvent struct {
	PlayerID  string // пусто = рассылка всем
	EventType string
	Data      map[string]interface{}
}

// stubBroadcaster записывает исходящие события комнаты
type stubBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *stubBroadcaster) BroadcastToRoom(roomID, eventType string, data map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{EventType: eventType, Data: data})
}

func (b *stubBroadcaster) SendToPlayer(roomID, playerID, eventType string, data map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{PlayerID: playerID, EventType: eventType, Data: data})
}

func (b *stubBroadcaster) count(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, ev := range b.events {
		if ev.EventType == eventType {
			n++
		}
	}
	return n
}

// find возвращает первое событие типа eventType, адресованное playerID
// (пустой playerID означает рассылку всем)
func (b *stubBroadcaster) find(eventType, playerID string) (recordedEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ev := range b.events {
		if ev.EventType == eventType && ev.PlayerID == playerID {
			return ev, true
		}
	}
	return recordedEvent{}, false
}

// completionSink собирает результаты, переданные приёмнику персистентности
type completionSink struct {
	mu      sync.Mutex
	results []entity.RoomResult
	answers []entity.Answer
	fired   bool
}

func (s *completionSink) onCompleted(roomID string, results []entity.RoomResult, answers []entity.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
	s.answers = answers
	s.fired = true
}

func (s *completionSink) completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

func fastModeConfig() gamemode.Config {
	cfg := gamemode.NewStandardMode().DefaultConfig()
	cfg.QuestionTimeLimit = 150 * time.Millisecond
	cfg.CountdownDuration = 30 * time.Millisecond
	cfg.AutoAdvanceDelay = 40 * time.Millisecond
	cfg.MaxPlayers = 4
	return cfg
}

func fastEngineConfig() *Config {
	cfg := DefaultConfig()
	cfg.TimerTickInterval = 50 * time.Millisecond
	cfg.NpcStagger = time.Millisecond
	cfg.NpcChatIdleDelay = time.Hour // реплики тишины в тестах не нужны
	return cfg
}

func testQuestions(n int) []entity.Question {
	questions := make([]entity.Question, n)
	for i := range questions {
		questions[i] = entity.Question{
			ID:            uint(i + 1),
			Prompt:        "Вопрос",
			Options:       entity.StringArray{"А", "Б", "В", "Г"},
			CorrectOption: i % 4,
			Hint:          "Подсказка",
			Explanation:   "Пояснение",
			Difficulty:    1,
		}
	}
	return questions
}

type testRoom struct {
	room *Room
	bc   *stubBroadcaster
	sink *completionSink
}

func newTestRoom(t *testing.T, modeCfg gamemode.Config, questionCount int) *testRoom {
	t.Helper()
	bc := &stubBroadcaster{}
	sink := &completionSink{}
	deps := &Dependencies{
		Npc:         NewNpcEngine(1),
		Broadcaster: bc,
		Config:      fastEngineConfig(),
	}
	hooks := Hooks{OnCompleted: sink.onCompleted}
	room := NewRoom("room-0001-test", "ABC234", 1, modeCfg.MaxPlayers,
		gamemode.NewStandardMode(), modeCfg, testQuestions(questionCount), deps, hooks)
	t.Cleanup(func() { room.Close("test cleanup") })
	return &testRoom{room: room, bc: bc, sink: sink}
}

func (tr *testRoom) waitPhase(t *testing.T, phase string, questionIndex int) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		s, err := tr.room.GetSnapshot()
		if err != nil {
			return false
		}
		snap = s
		return s.Phase == phase && s.QuestionIndex == questionIndex
	}, 2*time.Second, 5*time.Millisecond, "ожидалась фаза %s на вопросе %d", phase, questionIndex)
	return snap
}

// ============================================================================
// Допуск и состав
// ============================================================================

func TestRoom_Join_HostAndCapacity(t *testing.T) {
	tr := newTestRoom(t, fastModeConfig(), 2)

	// Первый человек становится хостом
	host, err := tr.room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)
	assert.True(t, host.IsHost)
	assert.Equal(t, 0, host.JoinOrder)

	second, err := tr.room.Join(entity.PlayerProfile{ID: "u2", DisplayName: "Борис"})
	require.NoError(t, err)
	assert.False(t, second.IsHost)
	assert.Equal(t, 1, second.JoinOrder)

	// Повторный вход того же игрока отклоняется
	_, err = tr.room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// Переполнение
	_, err = tr.room.Join(entity.PlayerProfile{ID: "u3", DisplayName: "В"})
	require.NoError(t, err)
	_, err = tr.room.Join(entity.PlayerProfile{ID: "u4", DisplayName: "Г"})
	require.NoError(t, err)
	_, err = tr.room.Join(entity.PlayerProfile{ID: "u5", DisplayName: "Д"})
	assert.ErrorIs(t, err, apperrors.ErrRoomFull)
}

func TestRoom_Join_AfterStartRejected(t *testing.T) {
	tr := newTestRoom(t, fastModeConfig(), 2)

	_, err := tr.room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)
	require.NoError(t, tr.room.Start("u1"))

	_, err = tr.room.Join(entity.PlayerProfile{ID: "u2", DisplayName: "Борис"})
	assert.ErrorIs(t, err, apperrors.ErrRoomAlreadyStarted)
}

func TestRoom_Leave_HostTransferAndEmptyHook(t *testing.T) {
	bc := &stubBroadcaster{}
	var emptyFired bool
	var mu sync.Mutex
	deps := &Dependencies{Npc: NewNpcEngine(1), Broadcaster: bc, Config: fastEngineConfig()}
	hooks := Hooks{OnEmpty: func(roomID string) {
		mu.Lock()
		emptyFired = true
		mu.Unlock()
	}}
	cfg := fastModeConfig()
	room := NewRoom("room-0002-test", "ABD234", 1, cfg.MaxPlayers,
		gamemode.NewStandardMode(), cfg, testQuestions(2), deps, hooks)
	defer room.Close("test cleanup")

	_, err := room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)
	_, err = room.Join(entity.PlayerProfile{ID: "u2", DisplayName: "Борис"})
	require.NoError(t, err)

	// Уход хоста передает статус следующему человеку
	require.NoError(t, room.Leave("u1"))
	snap, err := room.GetSnapshot()
	require.NoError(t, err)
	require.Len(t, snap.Players, 1)
	assert.True(t, snap.Players[0].IsHost, "Статус хоста переходит следующему по порядку входа")

	// Уход неизвестного игрока
	assert.ErrorIs(t, room.Leave("ghost"), apperrors.ErrPlayerNotFound)

	// Последний человек ушел - комната помечается пустой
	require.NoError(t, room.Leave("u2"))
	mu.Lock()
	assert.True(t, emptyFired)
	mu.Unlock()
}

func TestRoom_Start_Permissions(t *testing.T) {
	tr := newTestRoom(t, fastModeConfig(), 2)

	_, err := tr.room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)
	_, err = tr.room.Join(entity.PlayerProfile{ID: "u2", DisplayName: "Борис"})
	require.NoError(t, err)

	assert.ErrorIs(t, tr.room.Start("u2"), apperrors.ErrNotHost)
	assert.ErrorIs(t, tr.room.Start("ghost"), apperrors.ErrPlayerNotFound)

	require.NoError(t, tr.room.Start("u1"))

	// Повторный старт
	assert.ErrorIs(t, tr.room.Start("u1"), apperrors.ErrPhaseMismatch)
}

// ============================================================================
// Ответы
// ============================================================================

func TestRoom_SubmitAnswer_PhaseAndDuplicates(t *testing.T) {
	tr := newTestRoom(t, fastModeConfig(), 2)

	_, err := tr.room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)
	_, err = tr.room.Join(entity.PlayerProfile{ID: "u2", DisplayName: "Борис"})
	require.NoError(t, err)

	// До старта ответы не принимаются
	assert.ErrorIs(t, tr.room.SubmitAnswer("u1", 0), apperrors.ErrPhaseMismatch)

	require.NoError(t, tr.room.Start("u1"))
	tr.waitPhase(t, entity.PhaseQuestion, 0)

	require.NoError(t, tr.room.SubmitAnswer("u1", 0))

	// Повторная подача на тот же вопрос отклоняется, состояние не меняется
	assert.ErrorIs(t, tr.room.SubmitAnswer("u1", 1), apperrors.ErrDuplicateAnswer)

	// Личная обратная связь ушла только отправителю
	ev, ok := tr.bc.find(EventAnswerFeedback, "u1")
	require.True(t, ok, "Отправитель получает личную оценку ответа")
	assert.Equal(t, true, ev.Data["is_correct"], "Первый вопрос: правильный вариант 0")
	_, leaked := tr.bc.find(EventAnswerFeedback, "u2")
	assert.False(t, leaked, "Чужая оценка другим игрокам не уходит")
}

func TestRoom_FullGame_EarlyAdvanceAndResults(t *testing.T) {
	cfg := fastModeConfig()
	tr := newTestRoom(t, cfg, 2)

	_, err := tr.room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)
	_, err = tr.room.Join(entity.PlayerProfile{ID: "u2", DisplayName: "Борис"})
	require.NoError(t, err)
	require.NoError(t, tr.room.Start("u1"))

	// Правильные варианты: вопрос 0 -> 0, вопрос 1 -> 1
	for i := 0; i < 2; i++ {
		tr.waitPhase(t, entity.PhaseQuestion, i)
		require.NoError(t, tr.room.SubmitAnswer("u1", i)) // всегда верно
		require.NoError(t, tr.room.SubmitAnswer("u2", 3)) // всегда мимо
	}

	// Все ответили - комната завершается без ожидания полного лимита
	require.Eventually(t, tr.sink.completed, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, tr.bc.count(EventRoomCompleted))

	snap, err := tr.room.GetSnapshot()
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseCompleted, snap.Phase)

	// Итоги: у победителя два верных ответа, ранги 1-базные
	require.Len(t, tr.sink.results, 2)
	winner := tr.sink.results[0]
	assert.Equal(t, "u1", winner.PlayerID)
	assert.Equal(t, 1, winner.Rank)
	assert.Equal(t, 2, winner.CorrectAnswers)
	assert.Greater(t, winner.Score, 0)

	loser := tr.sink.results[1]
	assert.Equal(t, "u2", loser.PlayerID)
	assert.Equal(t, 2, loser.Rank)
	assert.Equal(t, 0, loser.CorrectAnswers)
	assert.Equal(t, 2, loser.WrongAnswers)

	// История полна: по ответу на каждую пару (игрок, вопрос)
	assert.Len(t, tr.sink.answers, 4)
}

func TestRoom_AllTimeoutRound(t *testing.T) {
	cfg := fastModeConfig()
	tr := newTestRoom(t, cfg, 1)

	_, err := tr.room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)
	_, err = tr.room.Join(entity.PlayerProfile{ID: "u2", DisplayName: "Борис"})
	require.NoError(t, err)
	require.NoError(t, tr.room.Start("u1"))
	tr.waitPhase(t, entity.PhaseQuestion, 0)

	// Никто не отвечает: раунд закрывается по таймеру
	require.Eventually(t, tr.sink.completed, 2*time.Second, 5*time.Millisecond)

	// Каждому не ответившему принудительно записан таймаут
	require.Len(t, tr.sink.answers, 2)
	for _, a := range tr.sink.answers {
		assert.Equal(t, entity.TimeoutOption, a.SelectedOption)
		assert.True(t, a.IsTimeout)
		assert.False(t, a.IsCorrect)
		assert.Equal(t, 0, a.Score)
	}
	for _, r := range tr.sink.results {
		assert.Equal(t, 0, r.Score)
		assert.Equal(t, 1, r.WrongAnswers)
	}
}

func TestRoom_NpcPlaysAndScores(t *testing.T) {
	bc := &stubBroadcaster{}
	sink := &completionSink{}
	npc := NewNpcEngine(1)
	// Детерминированный профиль: всегда верно и быстрее лимита
	npc.Register(&entity.NpcPersonality{
		ID: "oracle", Name: "Оракул", Accuracy: 1.0, MinThinkMs: 1, MaxThinkMs: 5,
	})
	deps := &Dependencies{Npc: npc, Broadcaster: bc, Config: fastEngineConfig()}
	cfg := fastModeConfig()
	room := NewRoom("room-0003-test", "ABE234", 1, cfg.MaxPlayers,
		gamemode.NewStandardMode(), cfg, testQuestions(2), deps, Hooks{OnCompleted: sink.onCompleted})
	defer room.Close("test cleanup")

	_, err := room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)
	npcPlayer, err := room.JoinNpc("oracle")
	require.NoError(t, err)
	assert.True(t, npcPlayer.IsNPC)
	assert.Equal(t, "Оракул", npcPlayer.DisplayName)

	require.NoError(t, room.Start("u1"))

	for i := 0; i < 2; i++ {
		require.Eventually(t, func() bool {
			s, err := room.GetSnapshot()
			return err == nil && s.Phase == entity.PhaseQuestion && s.QuestionIndex == i
		}, 2*time.Second, 5*time.Millisecond)

		// Ответ человека закрывает раунд, поэтому сперва дожидаемся подачи
		// NPC: каждый оцененный ответ дает рассылку таблицы лидеров
		npcAnswered := 3*i + 1
		require.Eventually(t, func() bool {
			return bc.count(EventLeaderboardUpdated) >= npcAnswered
		}, 2*time.Second, 2*time.Millisecond)

		require.NoError(t, room.SubmitAnswer("u1", 3))
	}

	require.Eventually(t, sink.completed, 2*time.Second, 5*time.Millisecond)

	// NPC ответил на оба вопроса верно и набрал очки
	require.Len(t, sink.results, 2)
	assert.Equal(t, npcPlayer.ID, sink.results[0].PlayerID, "NPC с верными ответами возглавляет таблицу")
	assert.True(t, sink.results[0].IsNPC)
	assert.Equal(t, 2, sink.results[0].CorrectAnswers)
}

// ============================================================================
// Подсказки и снос
// ============================================================================

func TestRoom_Hint(t *testing.T) {
	cfg := fastModeConfig()
	tr := newTestRoom(t, cfg, 1)

	_, err := tr.room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)

	// Вне фазы вопроса подсказка недоступна
	_, err = tr.room.RequestHint("u1")
	assert.ErrorIs(t, err, apperrors.ErrPhaseMismatch)

	require.NoError(t, tr.room.Start("u1"))
	tr.waitPhase(t, entity.PhaseQuestion, 0)

	hint, err := tr.room.RequestHint("u1")
	require.NoError(t, err)
	assert.Equal(t, "Подсказка", hint)

	// Подсказка уходит лично запросившему
	ev, ok := tr.bc.find(EventHintRevealed, "u1")
	require.True(t, ok)
	assert.Equal(t, "Подсказка", ev.Data["hint"])
}

func TestRoom_HintsDisabledByMode(t *testing.T) {
	cfg := fastModeConfig()
	cfg.ShowHints = false
	tr := newTestRoom(t, cfg, 1)

	_, err := tr.room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)
	require.NoError(t, tr.room.Start("u1"))
	tr.waitPhase(t, entity.PhaseQuestion, 0)

	_, err = tr.room.RequestHint("u1")
	assert.ErrorIs(t, err, apperrors.ErrHintsDisabled)
}

func TestRoom_AllPlayersLeaveMidGame_RoomClosesItself(t *testing.T) {
	// Arrange: единственный человек уходит посреди вопроса
	tr := newTestRoom(t, fastModeConfig(), 2)
	_, err := tr.room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)
	require.NoError(t, tr.room.Start("u1"))
	tr.waitPhase(t, entity.PhaseQuestion, 0)

	// Act
	require.NoError(t, tr.room.Leave("u1"))

	// Assert: таймеры дожимают опустевшую комнату до конца игры, и вместо
	// подведения итогов она сносится, не роняя процесс
	select {
	case <-tr.room.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("Опустевшая комната не снеслась после прогона таймеров")
	}
	assert.Equal(t, 0, tr.bc.count(EventRoomCompleted), "Итоги пустой комнаты не подводятся")
	assert.Equal(t, 1, tr.bc.count(EventRoomClosed))
	assert.False(t, tr.sink.completed())
}

func TestRoom_Close_LateCallersNeverBlock(t *testing.T) {
	tr := newTestRoom(t, fastModeConfig(), 1)
	_, err := tr.room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)

	tr.room.Close("manual teardown")
	<-tr.room.Done()

	// Постановка в буфер может выиграть гонку у проверки done, когда
	// потребитель уже не работает; вызывающий все равно обязан вернуться
	for i := 0; i < 40; i++ {
		errCh := make(chan error, 1)
		go func() { errCh <- tr.room.SubmitAnswer("u1", 0) }()
		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, apperrors.ErrRoomClosed)
		case <-time.After(time.Second):
			t.Fatal("Вызов SubmitAnswer завис после закрытия комнаты")
		}
	}

	_, err = tr.room.GetSnapshot()
	assert.ErrorIs(t, err, apperrors.ErrRoomClosed, "Снимок закрытой комнаты тоже не виснет")
}

func TestRoom_SlowNpcDoesNotDelayRound(t *testing.T) {
	// Arrange: NPC думает дольше лимита вопроса и не отвечает вовсе
	bc := &stubBroadcaster{}
	sink := &completionSink{}
	npc := NewNpcEngine(1)
	npc.Register(&entity.NpcPersonality{
		ID: "snail", Name: "Улитка", Accuracy: 1.0, MinThinkMs: 60000, MaxThinkMs: 61000,
	})
	deps := &Dependencies{Npc: npc, Broadcaster: bc, Config: fastEngineConfig()}
	cfg := fastModeConfig()
	cfg.QuestionTimeLimit = 5 * time.Second
	room := NewRoom("room-0004-test", "ABF234", 1, cfg.MaxPlayers,
		gamemode.NewStandardMode(), cfg, testQuestions(1), deps, Hooks{OnCompleted: sink.onCompleted})
	defer room.Close("test cleanup")

	_, err := room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)
	npcPlayer, err := room.JoinNpc("snail")
	require.NoError(t, err)
	require.NoError(t, room.Start("u1"))

	require.Eventually(t, func() bool {
		s, err := room.GetSnapshot()
		return err == nil && s.Phase == entity.PhaseQuestion
	}, 2*time.Second, 5*time.Millisecond)

	// Act: единственный человек отвечает
	require.NoError(t, room.SubmitAnswer("u1", 0))

	// Assert: раунд закрывается по ответам людей, не дожидаясь NPC;
	// полный пятисекундный лимит не выжидается
	require.Eventually(t, sink.completed, 2*time.Second, 5*time.Millisecond)

	require.Len(t, sink.answers, 2)
	var npcAnswer *entity.Answer
	for i := range sink.answers {
		if sink.answers[i].PlayerID == npcPlayer.ID {
			npcAnswer = &sink.answers[i]
		}
	}
	require.NotNil(t, npcAnswer)
	assert.True(t, npcAnswer.IsTimeout, "Не успевший NPC получает принудительный таймаут")
}

// fakeClock - управляемые часы комнаты
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestRoom_LateRacingSubmit_LatencyClamped(t *testing.T) {
	// Arrange
	cfg := fastModeConfig()
	cfg.QuestionTimeLimit = 10 * time.Second
	tr := newTestRoom(t, cfg, 1)

	// Часы подменяются до первой команды: горутина комнаты еще не
	// трогала состояние, синхронизацию дает канал событий
	clock := &fakeClock{t: time.Now()}
	tr.room.now = clock.Now

	_, err := tr.room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)
	require.NoError(t, tr.room.Start("u1"))
	tr.waitPhase(t, entity.PhaseQuestion, 0)

	// Act: подача успевает раньше события истечения, но по часам позже лимита
	clock.Advance(11 * time.Second)
	require.NoError(t, tr.room.SubmitAnswer("u1", 0))

	// Assert: латентность зажата лимитом вопроса
	ev, ok := tr.bc.find(EventAnswerFeedback, "u1")
	require.True(t, ok)
	assert.Equal(t, int64(10000), ev.Data["response_time_ms"])

	require.Eventually(t, tr.sink.completed, 2*time.Second, 5*time.Millisecond)
	require.Len(t, tr.sink.answers, 1)
	assert.Equal(t, int64(10000), tr.sink.answers[0].ResponseTimeMs)
}

func TestRoom_Close_RejectsFurtherCommands(t *testing.T) {
	tr := newTestRoom(t, fastModeConfig(), 1)

	_, err := tr.room.Join(entity.PlayerProfile{ID: "u1", DisplayName: "Аня"})
	require.NoError(t, err)

	tr.room.Close("manual teardown")

	<-tr.room.Done()

	_, err = tr.room.Join(entity.PlayerProfile{ID: "u2", DisplayName: "Борис"})
	assert.ErrorIs(t, err, apperrors.ErrRoomClosed)
	assert.ErrorIs(t, tr.room.SubmitAnswer("u1", 0), apperrors.ErrRoomClosed)

	// Участники уведомлены о сносе
	assert.Equal(t, 1, tr.bc.count(EventRoomClosed))
}
