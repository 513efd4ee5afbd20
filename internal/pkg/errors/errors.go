package errors

import "errors"

// Ошибки допуска в комнату. Сообщаются синхронно только запросившему клиенту
// и не затрагивают остальных игроков.
var (
	// ErrRoomNotFound используется, когда комната с указанным кодом или ID не найдена.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomFull используется при попытке присоединиться к заполненной комнате.
	ErrRoomFull = errors.New("room is full")

	// ErrRoomAlreadyStarted используется при попытке присоединиться после начала игры.
	ErrRoomAlreadyStarted = errors.New("room already started")

	// ErrInvalidMode используется, когда режим игры не зарегистрирован в реестре.
	ErrInvalidMode = errors.New("unknown game mode")

	// ErrCapacity используется, когда maxPlayers выходит за допустимый диапазон режима.
	ErrCapacity = errors.New("max players outside mode player range")
)

// Протокольные ошибки. С точки зрения комнаты отбрасываются молча
// (состояние не меняется), но сообщаются нарушившему клиенту.
var (
	// ErrDuplicateAnswer используется при повторной отправке ответа на тот же вопрос.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")

	// ErrPhaseMismatch используется, когда действие недопустимо в текущей фазе комнаты.
	ErrPhaseMismatch = errors.New("action not allowed in current room phase")
)

// Прочие ошибки движка
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrNotHost используется, когда действие доступно только хосту комнаты.
	ErrNotHost = errors.New("action requires host")

	// ErrPlayerNotFound используется, когда игрок не состоит в комнате.
	ErrPlayerNotFound = errors.New("player not in room")

	// ErrRoomClosed используется, когда комната уже уничтожена и не принимает событий.
	ErrRoomClosed = errors.New("room is closed")

	// ErrHintsDisabled используется, когда режим не разрешает подсказки.
	ErrHintsDisabled = errors.New("hints are disabled for this mode")

	// ErrBoostUnavailable используется, когда усиление недоступно: режим его
	// не разрешает или лимит на игрока исчерпан.
	ErrBoostUnavailable = errors.New("boost not available")

	// ErrConflict используется для конфликтов состояния (например, дубликат записи результата).
	ErrConflict = errors.New("resource state conflict")
)
