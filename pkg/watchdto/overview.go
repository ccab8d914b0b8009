package watchdto

import "time"

// Card summarises one broadcast for listings.
type Card struct {
	TourID    string     `json:"tourId"`
	Title     string     `json:"title"`
	RoundID   string     `json:"roundId,omitempty"`
	RoundName string     `json:"roundName,omitempty"`
	Format    string     `json:"format"`
	Players   string     `json:"players"`
	Image     string     `json:"image"`
	StartsAt  *time.Time `json:"startsAt,omitempty"`
	Link      string     `json:"link"`
	Status    string     `json:"status,omitempty"`
	Badge     string     `json:"badge,omitempty"`
}

type Section struct {
	Title string `json:"title"`
	Empty string `json:"empty,omitempty"`
	Cards []Card `json:"cards"`
}

type Overview struct {
	Page        int     `json:"page"`
	HasNextPage bool    `json:"hasNextPage"`
	Live        Section `json:"live"`
	Upcoming    Section `json:"upcoming"`
	Past        Section `json:"past"`
}
