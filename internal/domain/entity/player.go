package entity

import "time"

// Player представляет участника комнаты — человека или симулируемого (NPC).
// Игрок принадлежит ровно одной комнате; состояние мутируется только
// машиной состояний комнаты.
type Player struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name"`
	Avatar        string    `json:"avatar"`
	IsHost        bool      `json:"is_host"`
	IsNPC         bool      `json:"is_npc"`
	PersonalityID string    `json:"-"` // Ссылка на профиль NPC, пусто для людей
	Score         int       `json:"score"`
	CorrectCount  int       `json:"correct_count"`
	WrongCount    int       `json:"wrong_count"`
	Streak        int       `json:"streak"`
	Multiplier    float64   `json:"multiplier"`
	Rank          int       `json:"rank"`
	IsReady       bool      `json:"is_ready"`
	JoinOrder     int       `json:"join_order"`
	JoinedAt      time.Time `json:"joined_at"`
}

// PlayerProfile - данные, с которыми транспортный слой просит допустить игрока.
type PlayerProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}
