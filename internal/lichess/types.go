package lichess

import (
	"encoding/json"
	"strings"
	"time"
)

// TourInfo is the free-form description block of a broadcast tournament.
type TourInfo struct {
	Format    string `json:"format,omitempty"`
	TC        string `json:"tc,omitempty"`
	FideTC    string `json:"fideTc,omitempty"`
	Location  string `json:"location,omitempty"`
	TimeZone  string `json:"timeZone,omitempty"`
	Players   string `json:"players,omitempty"`
	Website   string `json:"website,omitempty"`
	Standings string `json:"standings,omitempty"`
}

type Tour struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	URL         string   `json:"url,omitempty"`
	Image       string   `json:"image,omitempty"`
	Description string   `json:"description,omitempty"`
	Tier        int      `json:"tier,omitempty"`
	Dates       []int64  `json:"dates,omitempty"`
	CreatedAt   int64    `json:"createdAt,omitempty"`
	Info        TourInfo `json:"info"`
}

type Round struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Slug                string `json:"slug"`
	URL                 string `json:"url,omitempty"`
	CreatedAt           int64  `json:"createdAt,omitempty"`
	StartsAt            int64  `json:"startsAt,omitempty"`
	StartsAfterPrevious bool   `json:"startsAfterPrevious,omitempty"`
	FinishedAt          int64  `json:"finishedAt,omitempty"`
	Finished            bool   `json:"finished,omitempty"`
	Ongoing             bool   `json:"ongoing,omitempty"`
	Rated               bool   `json:"rated,omitempty"`
}

// StartTime returns the scheduled start, if any.
func (r Round) StartTime() (time.Time, bool) {
	if r.StartsAt <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(r.StartsAt), true
}

// GroupTour is a sibling tournament listed in a broadcast group.
type GroupTour struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Group is served as a bare name in the top listing and as an object on the
// tournament endpoint; both shapes decode into this type.
type Group struct {
	Name  string      `json:"name"`
	Tours []GroupTour `json:"tours,omitempty"`
}

func (g *Group) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		return json.Unmarshal(b, &g.Name)
	}
	type plain Group
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*g = Group(p)
	return nil
}

// BroadcastWithRound is an entry of the top listing.
type BroadcastWithRound struct {
	Tour        Tour   `json:"tour"`
	Round       Round  `json:"round"`
	RoundToLink *Round `json:"roundToLink,omitempty"`
	Group       *Group `json:"group,omitempty"`
}

type PastPage struct {
	CurrentPage        int                  `json:"currentPage"`
	MaxPerPage         int                  `json:"maxPerPage"`
	CurrentPageResults []BroadcastWithRound `json:"currentPageResults"`
	PreviousPage       *int                 `json:"previousPage"`
	NextPage           *int                 `json:"nextPage"`
}

// TopPage is the response of GET /broadcast/top.
type TopPage struct {
	Active   []BroadcastWithRound `json:"active"`
	Upcoming []BroadcastWithRound `json:"upcoming"`
	Past     PastPage             `json:"past"`
}

// Broadcast is a tournament with its rounds, as returned by GET /broadcast/{id}
// and by each line of the GET /broadcast stream.
type Broadcast struct {
	Tour           Tour    `json:"tour"`
	Group          *Group  `json:"group,omitempty"`
	Rounds         []Round `json:"rounds"`
	DefaultRoundID string  `json:"defaultRoundId,omitempty"`
}

type Player struct {
	Name   string `json:"name"`
	Title  string `json:"title,omitempty"`
	Rating int    `json:"rating,omitempty"`
	Fed    string `json:"fed,omitempty"`
	Clock  int    `json:"clock,omitempty"`
}

type Game struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	FEN       string   `json:"fen"`
	Players   []Player `json:"players"`
	LastMove  string   `json:"lastMove,omitempty"`
	Check     string   `json:"check,omitempty"`
	ThinkTime int      `json:"thinkTime,omitempty"`
	Status    string   `json:"status"`
}

// White returns the first listed player; Lichess lists white first.
func (g Game) White() Player {
	if len(g.Players) > 0 {
		return g.Players[0]
	}
	return Player{}
}

func (g Game) Black() Player {
	if len(g.Players) > 1 {
		return g.Players[1]
	}
	return Player{}
}

// RoundPage is the response of GET /broadcast/-/-/{roundId}.
type RoundPage struct {
	Round Round  `json:"round"`
	Tour  Tour   `json:"tour"`
	Group *Group `json:"group,omitempty"`
	Games []Game `json:"games"`
}
