package entity

// Триггеры реплик NPC в чате комнаты.
const (
	ChatTriggerJoin      = "join"
	ChatTriggerCorrect   = "correct"
	ChatTriggerIncorrect = "incorrect"
	ChatTriggerIdle      = "idle"
	ChatTriggerVictory   = "victory"
)

// NpcPersonality описывает профиль поведения симулируемого игрока:
// склонность отвечать правильно, распределение времени "раздумий"
// и банк реплик по типам триггеров.
type NpcPersonality struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Avatar      string              `json:"avatar"`
	Accuracy    float64             `json:"accuracy"`      // Вероятность правильного ответа, 0..1
	MinThinkMs  int64               `json:"min_think_ms"`  // Нижняя граница времени раздумий
	MaxThinkMs  int64               `json:"max_think_ms"`  // Верхняя граница времени раздумий
	ChatLines   map[string][]string `json:"chat_lines"`    // Реплики по триггерам
	Chattiness  float64             `json:"chattiness"`    // Вероятность реплики на триггер, 0..1
}
