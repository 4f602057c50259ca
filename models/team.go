package models

import "time"

type Team struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	ShortName *string   `json:"short_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Players []Player `json:"players,omitempty"`

	CrestKey *string `json:"-"`
	CrestURL *string `json:"crest_url,omitempty"`
}

type Player struct {
	ID       int     `json:"id"`
	TeamID   int     `json:"team_id"`
	Name     string  `json:"name"`
	Position *string `json:"position,omitempty"`
	Number   *int    `json:"number,omitempty"`
}
