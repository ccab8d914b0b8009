package watchdto

import "time"

type TourInfo struct {
	Format      string `json:"format"`
	TimeControl string `json:"timeControl,omitempty"`
	Location    string `json:"location,omitempty"`
	TimeZone    string `json:"timeZone,omitempty"`
	Players     string `json:"players"`
	Website     string `json:"website,omitempty"`
	Standings   string `json:"standings,omitempty"`
}

// RoundView is a round with its resolved status.
type RoundView struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	StartsAt *time.Time `json:"startsAt,omitempty"`
	Status   string     `json:"status"`
	Badge    string     `json:"badge"`
	Link     string     `json:"link"`
}

type Tournament struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Group          string      `json:"group,omitempty"`
	Description    string      `json:"description,omitempty"`
	Image          string      `json:"image"`
	Info           TourInfo    `json:"info"`
	Rounds         []RoundView `json:"rounds"`
	DefaultRoundID string      `json:"defaultRoundId,omitempty"`
}
