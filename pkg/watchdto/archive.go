package watchdto

import "time"

type ArchivedGame struct {
	GameID     string    `json:"gameId"`
	RoundID    string    `json:"roundId"`
	RoundName  string    `json:"roundName"`
	TourID     string    `json:"tourId"`
	TourName   string    `json:"tourName"`
	White      string    `json:"white"`
	Black      string    `json:"black"`
	Result     string    `json:"result"`
	FEN        string    `json:"fen"`
	PGN        string    `json:"pgn"`
	ObservedAt time.Time `json:"observedAt"`
}
