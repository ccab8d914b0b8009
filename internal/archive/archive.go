package archive

import (
	"context"
	"strings"
	"time"
)

// Record is one finished game as observed by the service.
type Record struct {
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

// Recorder persists finished games. SaveRound is an upsert keyed by GameID.
type Recorder interface {
	SaveRound(ctx context.Context, records []Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
}

const defaultRecentLimit = 20

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultRecentLimit
	}
	if limit > 500 {
		return 500
	}
	return limit
}

// pgnResult maps a Lichess status token to a PGN result tag.
func pgnResult(token string) string {
	switch strings.TrimSpace(token) {
	case "1-0":
		return "1-0"
	case "0-1":
		return "0-1"
	case "1/2-1/2", "½-½":
		return "1/2-1/2"
	default:
		return "*"
	}
}

// BuildPGN renders a header-only PGN anchored on the final position.
func BuildPGN(r Record) string {
	var b strings.Builder
	date := r.ObservedAt
	if date.IsZero() {
		date = time.Now()
	}
	result := pgnResult(r.Result)
	event := r.TourName
	if strings.TrimSpace(r.RoundName) != "" {
		event = strings.TrimSpace(event + " " + r.RoundName)
	}
	writeTag(&b, "Event", event)
	writeTag(&b, "Site", "https://lichess.org/broadcast/-/-/"+r.RoundID+"/"+r.GameID)
	writeTag(&b, "Date", date.UTC().Format("2006.01.02"))
	writeTag(&b, "Round", r.RoundName)
	writeTag(&b, "White", r.White)
	writeTag(&b, "Black", r.Black)
	writeTag(&b, "Result", result)
	if strings.TrimSpace(r.FEN) != "" {
		writeTag(&b, "SetUp", "1")
		writeTag(&b, "FEN", r.FEN)
	}
	b.WriteString("\n")
	b.WriteString(result)
	b.WriteString("\n")
	return b.String()
}

func writeTag(b *strings.Builder, name, value string) {
	b.WriteString("[")
	b.WriteString(name)
	b.WriteString(" \"")
	b.WriteString(sanitizePGN(value))
	b.WriteString("\"]\n")
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
