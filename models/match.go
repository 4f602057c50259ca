package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "SCHEDULED"
	MatchStatusInPlay    MatchStatus = "IN_PLAY"
	MatchStatusPaused    MatchStatus = "PAUSED"
	MatchStatusFinished  MatchStatus = "FINISHED"
)

// MatchClock хранится только для матчей, созданных админом напрямую.
// Матчи из внешнего фида идут без часов (только advisory minute).
type MatchClock struct {
	Running   bool       `json:"running"`
	Elapsed   int        `json:"elapsed"` // накопленные секунды на момент последней паузы/старта
	StartedAt *time.Time `json:"started_at,omitempty"`
}

type MatchSide struct {
	TeamID   *int    `json:"team_id,omitempty"`
	Name     string  `json:"name"`
	CrestURL *string `json:"crest_url,omitempty"`
}

type Match struct {
	ID          int         `json:"id"`
	Competition *string     `json:"competition,omitempty"`
	HomeTeam    MatchSide   `json:"home_team"`
	AwayTeam    MatchSide   `json:"away_team"`
	Status      MatchStatus `json:"status"`
	Minute      int         `json:"minute"` // последняя известная минута для отображения, не авторитетна
	Clock       *MatchClock `json:"clock,omitempty"`
	KickoffAt   time.Time   `json:"kickoff_at"`
	CreatedAt   time.Time   `json:"created_at"`

	Events []MatchEvent `json:"events,omitempty"`
	Score  *Score       `json:"score,omitempty"` // всегда производное от Events, в базе не хранится
}

// Score выводится из лога событий на каждом чтении (см. live.DeriveScore).
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}
