package watchdto

type PlayerView struct {
	Name   string `json:"name"`
	Title  string `json:"title,omitempty"`
	Rating int    `json:"rating,omitempty"`
	Fed    string `json:"fed,omitempty"`
	// Clock is the remaining time in centiseconds as reported upstream.
	Clock int `json:"clock,omitempty"`
}

// Winner values.
const (
	WinnerWhite = "white"
	WinnerBlack = "black"
	WinnerDraw  = "draw"
)

type GameView struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	FEN      string     `json:"fen"`
	LastMove string     `json:"lastMove,omitempty"`
	White    PlayerView `json:"white"`
	Black    PlayerView `json:"black"`
	Result   string     `json:"result"`
	Winner   string     `json:"winner,omitempty"`
	Ongoing  bool       `json:"ongoing"`
}

// RoundGames is one page of a round's games after search.
type RoundGames struct {
	TourID     string     `json:"tourId"`
	TourName   string     `json:"tourName"`
	Round      RoundView  `json:"round"`
	Query      string     `json:"query,omitempty"`
	Page       int        `json:"page"`
	PerPage    int        `json:"perPage"`
	TotalPages int        `json:"totalPages"`
	Total      int        `json:"total"`
	Games      []GameView `json:"games"`
	Empty      string     `json:"empty,omitempty"`
}

type BoardView struct {
	FEN       string     `json:"fen"`
	Placement string     `json:"placement"`
	Squares   [][]string `json:"squares"`
	// Fallback is set when the FEN was rejected and the starting position is shown instead.
	Fallback bool `json:"fallback"`
}

type GameDetail struct {
	GameView
	RoundID   string    `json:"roundId"`
	RoundName string    `json:"roundName"`
	Board     BoardView `json:"board"`
	BoardPNG  string    `json:"boardPng"`
}
