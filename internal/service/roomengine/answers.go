package roomengine

import (
	"log"

	"github.com/yourusername/civicquiz-api/internal/domain/entity"
	"github.com/yourusername/civicquiz-api/internal/gamemode"
	apperrors "github.com/yourusername/civicquiz-api/internal/pkg/errors"
)

// handleSubmit принимает ответ на текущий вопрос. Один и тот же код
// обслуживает людей и таймеры NPC; для NPC ошибка не возвращается
// никому, поэтому устаревшие и повторные подачи просто отбрасываются.
func (r *Room) handleSubmit(ev roomEvent) error {
	// Таймер NPC взводился под конкретный вопрос: если комната уже ушла
	// дальше, его подача устарела
	if ev.isNpc && (r.phase != entity.PhaseQuestion || r.questionIndex != ev.questionIdx) {
		return nil
	}
	if r.phase != entity.PhaseQuestion {
		return apperrors.ErrPhaseMismatch
	}

	player := r.findPlayer(ev.playerID)
	if player == nil {
		return apperrors.ErrPlayerNotFound
	}

	round := r.answers[r.questionIndex]
	if _, exists := round[ev.playerID]; exists {
		if ev.isNpc {
			return nil
		}
		return apperrors.ErrDuplicateAnswer
	}

	q := &r.questions[r.questionIndex]
	latency := r.now().Sub(r.questionStartAt)
	latencyMs := latency.Milliseconds()
	// Зажим в [0, лимит]: подача в гонке с событием истечения не должна
	// записать латентность больше лимита вопроса
	if latencyMs < 0 {
		latencyMs = 0
	}
	if limitMs := r.questionLimit.Milliseconds(); latencyMs > limitMs {
		latencyMs = limitMs
	}

	// Вариант вне диапазона записывается как неверный ответ, а не
	// отклоняется: клиент уже потратил попытку
	isCorrect := q.IsCorrect(ev.option)

	ans := &entity.Answer{
		RoomID:         r.ID,
		PlayerID:       ev.playerID,
		QuestionID:     q.ID,
		SelectedOption: ev.option,
		IsCorrect:      isCorrect,
		ResponseTimeMs: latencyMs,
		CreatedAt:      r.now(),
	}

	// Вето режима: ответ фиксируется, но оценивается в ноль
	// (аттестация после лимита нарушений, сценарий при нуле ресурсов)
	vetoed := !r.plugin.OnAnswerSubmit(r.modeCtx(), ans)
	ans.IsVetoed = vetoed

	breakdown := CalculateScore(r.config.Scoring, r.config.SpeedBonus, isCorrect && !vetoed, latencyMs, player.Streak)
	ans.Score = breakdown.Total
	round[ev.playerID] = ans

	if isCorrect {
		player.CorrectCount++
		player.Streak++
	} else {
		player.WrongCount++
		player.Streak = 0
	}
	if vetoed {
		player.Multiplier = 1.0
	} else {
		player.Score += breakdown.Total
		player.Multiplier = breakdown.Multiplier
	}

	r.modeState = r.plugin.Reduce(r.modeState, gamemode.StateEvent{
		Type:     gamemode.EventAnswerScored,
		PlayerID: ev.playerID,
		Answer:   ans,
		Question: q,
	})

	if ev.isNpc {
		log.Printf("[Room %s] NPC %q ответил на вопрос %d: correct=%v, +%d очков",
			r.Code, player.DisplayName, r.questionIndex+1, isCorrect, breakdown.Total)
		trigger := entity.ChatTriggerIncorrect
		if isCorrect {
			trigger = entity.ChatTriggerCorrect
		}
		r.emitNpcChat(player, trigger)
	} else {
		// Личная обратная связь отправителю: правильный вариант до конца
		// раунда не раскрывается
		r.sendTo(ev.playerID, EventAnswerFeedback, map[string]interface{}{
			"question_id":      q.ID,
			"question_index":   r.questionIndex,
			"selected_option":  ev.option,
			"is_correct":       isCorrect,
			"response_time_ms": latencyMs,
			"base":             breakdown.Base,
			"speed_bonus":      breakdown.SpeedBonus,
			"combo_bonus":      breakdown.ComboBonus,
			"multiplier":       breakdown.Multiplier,
			"points":           breakdown.Total,
			"total_score":      player.Score,
			"streak":           player.Streak,
		})
	}

	// Таблица лидеров пересчитывается после каждого оцененного ответа
	r.broadcast(EventLeaderboardUpdated, leaderboardData(BuildLeaderboard(r.players)))

	// Все люди ответили - раунд закрывается досрочно, остаток лимита
	// сгорает; не успевшие NPC получают таймаут при переходе
	if r.allHumansAnswered() {
		r.toFeedback()
	}
	return nil
}

// handleHint выдает подсказку текущего вопроса, если режим их разрешает.
// Подсказка уходит только запросившему; режим может списать за нее
// ресурсы через свой редьюсер.
func (r *Room) handleHint(playerID string) hintReply {
	if r.phase != entity.PhaseQuestion {
		return hintReply{err: apperrors.ErrPhaseMismatch}
	}
	if !r.config.ShowHints {
		return hintReply{err: apperrors.ErrHintsDisabled}
	}
	player := r.findPlayer(playerID)
	if player == nil {
		return hintReply{err: apperrors.ErrPlayerNotFound}
	}

	q := &r.questions[r.questionIndex]
	if q.Hint == "" {
		return hintReply{err: apperrors.ErrNotFound}
	}

	r.modeState = r.plugin.Reduce(r.modeState, gamemode.StateEvent{
		Type:     gamemode.EventHintUsed,
		PlayerID: playerID,
		Question: q,
	})

	r.sendTo(playerID, EventHintRevealed, map[string]interface{}{
		"question_id":    q.ID,
		"question_index": r.questionIndex,
		"hint":           q.Hint,
	})
	return hintReply{hint: q.Hint}
}

// handleBoost активирует усиление игрока в рамках лимита на игру.
// Семантику усиления определяет режим (ресурсы сценария, урон в битве с NPC).
func (r *Room) handleBoost(playerID string) error {
	if r.phase != entity.PhaseQuestion {
		return apperrors.ErrPhaseMismatch
	}
	if !r.config.AllowBoost {
		return apperrors.ErrBoostUnavailable
	}
	player := r.findPlayer(playerID)
	if player == nil {
		return apperrors.ErrPlayerNotFound
	}
	if r.config.BoostsPerGame > 0 && r.boostsUsed[playerID] >= r.config.BoostsPerGame {
		return apperrors.ErrBoostUnavailable
	}
	r.boostsUsed[playerID]++

	r.modeState = r.plugin.Reduce(r.modeState, gamemode.StateEvent{
		Type:     gamemode.EventBoostUsed,
		PlayerID: playerID,
	})

	log.Printf("[Room %s] Игрок %q активировал усиление (%d/%d)",
		r.Code, player.DisplayName, r.boostsUsed[playerID], r.config.BoostsPerGame)
	return nil
}

// handleFocusLost фиксирует потерю фокуса вкладки. Значим только для
// режимов с прокторингом; остальные редьюсеры событие игнорируют.
func (r *Room) handleFocusLost(playerID string) error {
	player := r.findPlayer(playerID)
	if player == nil {
		return apperrors.ErrPlayerNotFound
	}
	if r.phase != entity.PhaseQuestion && r.phase != entity.PhaseFeedback {
		return apperrors.ErrPhaseMismatch
	}

	r.modeState = r.plugin.Reduce(r.modeState, gamemode.StateEvent{
		Type:     gamemode.EventFocusLost,
		PlayerID: playerID,
	})
	return nil
}
