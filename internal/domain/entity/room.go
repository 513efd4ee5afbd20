package entity

// Константы фаз комнаты. Фаза меняется только через функцию переходов
// машины состояний комнаты — никакой компонент не выставляет её напрямую.
const (
	PhaseWaiting   = "waiting"
	PhaseCountdown = "countdown"
	PhaseQuestion  = "question"
	PhaseFeedback  = "feedback"
	PhaseCompleted = "completed"
)

// TimeoutOption - сентинельное значение варианта ответа, записываемое сервером
// игроку, не успевшему ответить до истечения таймера вопроса.
const TimeoutOption = -1
