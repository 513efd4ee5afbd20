package roomengine

import (
	"log"
	"time"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
	"github.com/yourusername/civicquiz-api/internal/gamemode"
)

// Переходы фаз комнаты. Каждый переход выполняется только горутиной
// комнаты; таймерные обработчики проверяют фазу и индекс вопроса, под
// которые взводились, и молча выходят, если комната уже ушла дальше.

// toCountdown переводит комнату waiting -> countdown
func (r *Room) toCountdown() {
	r.phase = entity.PhaseCountdown

	countdown := r.config.CountdownDuration
	if countdown <= 0 {
		countdown = time.Duration(r.deps.Config.CountdownSeconds) * time.Second
	}

	log.Printf("[Room %s] Старт игры: режим %s, вопросов %d, игроков %d, отсчет %v",
		r.Code, r.ModeID, len(r.questions), len(r.players), countdown)

	r.plugin.OnModeStart(r.modeCtx())

	r.broadcast(EventCountdown, map[string]interface{}{
		"duration_sec": int(countdown.Seconds()),
		"start_time":   r.now().UnixMilli(),
	})
	r.broadcastSnapshot()

	r.timers.Schedule(timerCountdown, countdown, func() {
		_ = r.post(roomEvent{kind: evtCountdownDone})
	})
}

// handleCountdownDone завершает отсчет и открывает первый вопрос
func (r *Room) handleCountdownDone() {
	if r.phase != entity.PhaseCountdown {
		return
	}
	r.toQuestion(0)
}

// toQuestion открывает вопрос idx: фиксирует время старта, рассылает
// вопрос без правильного варианта, взводит таймеры истечения и тика и
// планирует ответы NPC.
func (r *Room) toQuestion(idx int) {
	r.phase = entity.PhaseQuestion
	r.questionIndex = idx
	r.questionStartAt = r.now()
	r.answers[idx] = make(map[string]*entity.Answer)

	q := &r.questions[idx]
	r.questionLimit = r.plugin.TimeLimitFor(r.modeState, r.config.QuestionTimeLimit)

	log.Printf("[Room %s] Вопрос %d/%d (id=%d), лимит %v",
		r.Code, idx+1, len(r.questions), q.ID, r.questionLimit)

	r.plugin.OnQuestionStart(r.modeCtx(), q)

	r.broadcast(EventQuestionStarted, questionData(
		q, idx+1, len(r.questions),
		int(r.questionLimit.Seconds()),
		r.questionStartAt.UnixMilli(),
		r.config.ShowHints,
	))

	r.timers.Schedule(timerQuestion, r.questionLimit, func() {
		_ = r.post(roomEvent{kind: evtQuestionExpired, questionIdx: idx})
	})
	r.timers.Schedule(timerTick, r.deps.Config.TimerTickInterval, func() {
		_ = r.post(roomEvent{kind: evtTick, questionIdx: idx})
	})

	r.scheduleNpcAnswers(idx, q)
	r.scheduleNpcIdleChat(idx)
}

// scheduleNpcAnswers симулирует ответ каждого NPC и взводит таймер его
// подачи. Ответы разнесены по времени, чтобы NPC не отвечали хором.
// NPC, чье время раздумий превышает лимит вопроса, не отвечает вовсе и
// получает таймаут наравне с людьми.
func (r *Room) scheduleNpcAnswers(idx int, q *entity.Question) {
	npcIndex := 0
	for _, p := range r.players {
		if !p.IsNPC {
			continue
		}

		personality, err := r.deps.Npc.Get(p.PersonalityID)
		if err != nil {
			log.Printf("[Room %s] Профиль NPC %q не найден, игрок %s получит таймаут", r.Code, p.PersonalityID, p.ID)
			continue
		}

		sim, ok := r.simulateSafely(personality, q)
		if !ok {
			continue
		}

		delay := sim.ThinkTime + time.Duration(npcIndex)*r.deps.Config.NpcStagger
		npcIndex++
		if delay >= r.questionLimit {
			continue
		}

		playerID := p.ID
		option := sim.SelectedOption
		r.timers.Schedule(timerNpcPrefix+playerID, delay, func() {
			_ = r.post(roomEvent{
				kind:        evtSubmitAnswer,
				playerID:    playerID,
				option:      option,
				isNpc:       true,
				questionIdx: idx,
			})
		})
	}
}

// simulateSafely ограждает комнату от паники в генерации ответа NPC:
// сбойная симуляция превращается в таймаут этого NPC, раунд продолжается.
func (r *Room) simulateSafely(p *entity.NpcPersonality, q *entity.Question) (sim SimulatedAnswer, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[Room %s] Паника в симуляции NPC %q: %v", r.Code, p.ID, rec)
			ok = false
		}
	}()
	return r.deps.Npc.SimulateAnswer(p, q), true
}

// scheduleNpcIdleChat взводит реплику случайного NPC после паузы тишины.
// Реплика не трогает состояние комнаты, поэтому уходит прямо из таймера.
func (r *Room) scheduleNpcIdleChat(idx int) {
	type npcRef struct {
		playerID      string
		displayName   string
		personalityID string
	}
	var npcs []npcRef
	for _, p := range r.players {
		if p.IsNPC {
			npcs = append(npcs, npcRef{p.ID, p.DisplayName, p.PersonalityID})
		}
	}
	if len(npcs) == 0 {
		return
	}

	pick := npcs[idx%len(npcs)]
	r.timers.Schedule(timerNpcChat, r.deps.Config.NpcChatIdleDelay, func() {
		personality, err := r.deps.Npc.Get(pick.personalityID)
		if err != nil || !r.deps.Npc.ShouldChat(personality) {
			return
		}
		text := r.deps.Npc.GenerateChatMessage(pick.personalityID, entity.ChatTriggerIdle, map[string]interface{}{})
		if text == "" {
			return
		}
		r.broadcast(EventNpcChat, map[string]interface{}{
			"player_id":    pick.playerID,
			"display_name": pick.displayName,
			"text":         text,
		})
	})
}

// handleTick рассылает оставшееся время вопроса раз в интервал
func (r *Room) handleTick(idx int) {
	if r.phase != entity.PhaseQuestion || r.questionIndex != idx {
		return
	}

	elapsed := r.now().Sub(r.questionStartAt)
	remaining := r.questionLimit - elapsed
	if remaining < 0 {
		remaining = 0
	}

	r.broadcast(EventQuestionTimer, map[string]interface{}{
		"question_index":   idx,
		"remaining_sec":    int(remaining.Seconds()),
		"server_timestamp": r.now().UnixMilli(),
	})

	if remaining > 0 {
		r.timers.Schedule(timerTick, r.deps.Config.TimerTickInterval, func() {
			_ = r.post(roomEvent{kind: evtTick, questionIdx: idx})
		})
	}
}

// handleQuestionExpired обрабатывает истечение лимита времени вопроса
func (r *Room) handleQuestionExpired(idx int) {
	if r.phase != entity.PhaseQuestion || r.questionIndex != idx {
		return
	}
	r.toFeedback()
}

// toFeedback закрывает раунд: не ответившим принудительно записывается
// таймаут, раскрывается правильный вариант, рассылается таблица лидеров
// и взводится таймер продвижения.
func (r *Room) toFeedback() {
	idx := r.questionIndex
	r.timers.Cancel(timerQuestion)
	r.timers.Cancel(timerTick)
	r.timers.Cancel(timerNpcChat)
	r.timers.CancelPrefix(timerNpcPrefix)

	q := &r.questions[idx]
	round := r.answers[idx]

	// Принудительные таймауты: участник без ответа получает запись с
	// SelectedOption = -1, это считается неверным ответом и рвет серию
	for _, p := range r.players {
		if _, answered := round[p.ID]; answered {
			continue
		}
		ans := &entity.Answer{
			RoomID:         r.ID,
			PlayerID:       p.ID,
			QuestionID:     q.ID,
			SelectedOption: entity.TimeoutOption,
			IsCorrect:      false,
			ResponseTimeMs: r.questionLimit.Milliseconds(),
			IsTimeout:      true,
			CreatedAt:      r.now(),
		}
		round[p.ID] = ans
		p.WrongCount++
		p.Streak = 0
		p.Multiplier = 1.0
	}

	r.phase = entity.PhaseFeedback

	roundAnswers := make([]*entity.Answer, 0, len(round))
	for _, p := range r.players {
		if a, ok := round[p.ID]; ok {
			roundAnswers = append(roundAnswers, a)
		}
	}

	r.modeState = r.plugin.Reduce(r.modeState, gamemode.StateEvent{
		Type:     gamemode.EventQuestionComplete,
		Question: q,
	})
	r.plugin.OnQuestionComplete(r.modeCtx(), roundAnswers)

	feedback := map[string]interface{}{
		"question_id":    q.ID,
		"question_index": idx,
		"correct_option": q.CorrectOption,
	}
	if r.config.ShowExplanations && q.Explanation != "" {
		feedback["explanation"] = q.Explanation
	}
	r.broadcast(EventAnswerFeedback, feedback)
	r.broadcast(EventLeaderboardUpdated, leaderboardData(BuildLeaderboard(r.players)))
	r.broadcastSnapshot()

	advance := r.config.AutoAdvanceDelay
	if advance <= 0 {
		advance = 3 * time.Second
	}
	r.timers.Schedule(timerAdvance, advance, func() {
		_ = r.post(roomEvent{kind: evtAdvance, questionIdx: idx})
	})
}

// handleAdvance продвигает комнату после фазы feedback: либо следующий
// вопрос, либо завершение игры. Повторное продвижение того же раунда
// отбрасывается проверкой фазы и индекса.
func (r *Room) handleAdvance(idx int) {
	if r.phase != entity.PhaseFeedback || r.questionIndex != idx {
		return
	}
	if idx+1 < len(r.questions) {
		r.toQuestion(idx + 1)
		return
	}
	r.complete()
}

// complete переводит комнату в терминальную фазу completed: авторитетный
// пересчет итоговых счетов правилом режима, финальная таблица лидеров,
// передача результатов приёмнику персистентности.
func (r *Room) complete() {
	// Таймеры могли дожать опустевшую комнату до конца игры:
	// подводить итоги некому, комната сносится
	if len(r.players) == 0 {
		r.handleClose("all players left")
		return
	}

	r.phase = entity.PhaseCompleted
	r.timers.CancelAll()

	// Авторитетный итог: счет игрока - функция его ответов по правилу
	// режима, а не накопленная по ходу игры сумма
	for _, p := range r.players {
		p.Score = r.plugin.CalculateScore(r.playerAnswers(p.ID), r.questions)
	}

	board := BuildLeaderboard(r.players)
	r.plugin.OnModeComplete(r.modeCtx())

	log.Printf("[Room %s] Игра завершена: %d игроков, победитель %q (%d очков)",
		r.Code, len(board), board[0].DisplayName, board[0].Score)

	completed := map[string]interface{}{
		"room_id":        r.ID,
		"mode_id":        r.ModeID,
		"topic_id":       r.TopicID,
		"question_count": len(r.questions),
	}
	for k, v := range leaderboardData(board) {
		completed[k] = v
	}
	r.broadcast(EventRoomCompleted, completed)
	r.broadcastSnapshot()

	if board[0].IsNPC {
		r.emitNpcChat(board[0], entity.ChatTriggerVictory)
	}

	if r.hooks.OnCompleted != nil {
		r.hooks.OnCompleted(r.ID, r.buildResults(board), r.flatAnswers())
	}
}

// playerAnswers собирает ответы игрока в порядке вопросов
func (r *Room) playerAnswers(playerID string) []entity.Answer {
	answers := make([]entity.Answer, 0, len(r.questions))
	for _, round := range r.answers {
		if round == nil {
			continue
		}
		if a, ok := round[playerID]; ok {
			answers = append(answers, *a)
		}
	}
	return answers
}

// flatAnswers собирает все ответы комнаты для записи истории
func (r *Room) flatAnswers() []entity.Answer {
	var all []entity.Answer
	for _, round := range r.answers {
		if round == nil {
			continue
		}
		for _, p := range r.players {
			if a, ok := round[p.ID]; ok {
				all = append(all, *a)
			}
		}
	}
	return all
}

// buildResults строит итоговые записи результатов по таблице лидеров
func (r *Room) buildResults(board []*entity.Player) []entity.RoomResult {
	now := r.now()
	results := make([]entity.RoomResult, 0, len(board))
	for _, p := range board {
		results = append(results, entity.RoomResult{
			RoomID:         r.ID,
			PlayerID:       p.ID,
			DisplayName:    p.DisplayName,
			IsNPC:          p.IsNPC,
			ModeID:         r.ModeID,
			TopicID:        r.TopicID,
			Score:          p.Score,
			CorrectAnswers: p.CorrectCount,
			WrongAnswers:   p.WrongCount,
			TotalQuestions: len(r.questions),
			Rank:           p.Rank,
			CompletedAt:    now,
		})
	}
	return results
}

// handleClose сносит комнату из любой фазы: хук очистки режима для
// нетерминальных состояний, отмена таймеров, уведомление участников и
// закрытие очереди событий.
func (r *Room) handleClose(reason string) {
	if r.closing {
		return
	}
	if r.phase != entity.PhaseCompleted {
		r.plugin.OnModeExit(r.modeCtx())
	}
	r.timers.CancelAll()

	log.Printf("[Room %s] Комната закрыта: %s", r.Code, reason)
	r.broadcast(EventRoomClosed, map[string]interface{}{
		"room_id": r.ID,
		"reason":  reason,
	})

	r.closing = true
	close(r.done)
}
