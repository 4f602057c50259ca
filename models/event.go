package models

import "time"

type TeamSide string

const (
	SideHome TeamSide = "home"
	SideAway TeamSide = "away"
	// SideNone у нейтральных маркеров (half_time, match_start, match_end).
	SideNone TeamSide = ""
)

// MatchEvent — одна запись в таймлайне матча. Порядок определяется вставкой,
// не минутой. После канонизации событие неизменяемо, кроме правки минуты админом.
type MatchEvent struct {
	ID          string   `json:"id"`
	MatchID     int      `json:"match_id"`
	Type        string   `json:"type"` // канонический вид (live.Kind) либо неизвестная строка как есть
	Team        TeamSide `json:"team"`
	Player      string   `json:"player,omitempty"`
	PlayerOut   string   `json:"player_out,omitempty"`
	PlayerIn    string   `json:"player_in,omitempty"`
	Minute      int      `json:"minute"`
	Time        string   `json:"time,omitempty"` // отображаемое "M:SS", производное
	Description string   `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`

	// Pending выставлен у оптимистично добавленной записи, которую сервер ещё
	// не подтвердил. Снимается целиком при следующей сверке с хранилищем.
	Pending bool `json:"pending,omitempty"`
}

// EventDraft — то, что приходит из формы добавления события.
type EventDraft struct {
	Type        string   `json:"type"`
	Team        TeamSide `json:"team"`
	Player      string   `json:"player"`
	PlayerOut   string   `json:"player_out"`
	PlayerIn    string   `json:"player_in"`
	Minute      *int     `json:"minute,omitempty"` // nil — взять текущую минуту часов
	Description string   `json:"description"`
}
