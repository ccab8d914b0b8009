package dashboard

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/park285/chesswatch/internal/lichess"
	"github.com/park285/chesswatch/internal/roundstatus"
	"github.com/park285/chesswatch/pkg/watchdto"
)

var playerSeparators = regexp.MustCompile(`[,;]`)

// Overview returns one page of the top listing grouped into sections.
func (s *Service) Overview(ctx context.Context, page int) (*watchdto.Overview, error) {
	if page < 1 {
		page = 1
	}
	top, err := s.topPage(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("top broadcasts page %d: %w", page, err)
	}
	now := s.now()

	out := &watchdto.Overview{
		Page:        page,
		HasNextPage: top.Past.NextPage != nil,
		Live:        s.section("overview.live", top.Active, now),
		Upcoming:    s.section("overview.upcoming", top.Upcoming, now),
		Past:        s.section("overview.past", top.Past.CurrentPageResults, now),
	}
	if len(out.Upcoming.Cards) == 0 {
		out.Upcoming.Empty = s.text("overview.emptyUpcoming", nil)
	}
	return out, nil
}

func (s *Service) section(titleKey string, entries []lichess.BroadcastWithRound, now time.Time) watchdto.Section {
	title := s.text(titleKey, nil)
	sec := watchdto.Section{Title: title, Cards: make([]watchdto.Card, 0, len(entries))}
	for _, e := range entries {
		var group string
		if e.Group != nil {
			group = e.Group.Name
		}
		sec.Cards = append(sec.Cards, s.card(e.Tour, group, &e.Round, now))
	}
	if len(sec.Cards) == 0 {
		sec.Empty = s.text("overview.empty", map[string]string{"Section": strings.ToLower(title)})
	}
	return sec
}

// AllBroadcasts maps the full broadcast stream to cards.
func (s *Service) AllBroadcasts(ctx context.Context, nb int) ([]watchdto.Card, error) {
	if nb <= 0 {
		nb = s.opts.ListSize
	}
	if nb > maxListSize {
		return nil, fmt.Errorf("%w: nb must be at most %d", ErrInvalidArgs, maxListSize)
	}
	list, err := s.broadcastList(ctx, nb)
	if err != nil {
		return nil, fmt.Errorf("broadcast list: %w", err)
	}
	now := s.now()
	cards := make([]watchdto.Card, 0, len(list))
	for _, b := range list {
		var group string
		if b.Group != nil {
			group = b.Group.Name
		}
		cards = append(cards, s.card(b.Tour, group, featuredRound(b), now))
	}
	return cards, nil
}

// featuredRound picks the default round, else the first round not yet finished,
// else the last one.
func featuredRound(b lichess.Broadcast) *lichess.Round {
	if len(b.Rounds) == 0 {
		return nil
	}
	if b.DefaultRoundID != "" {
		for i := range b.Rounds {
			if b.Rounds[i].ID == b.DefaultRoundID {
				return &b.Rounds[i]
			}
		}
	}
	for i := range b.Rounds {
		if !b.Rounds[i].Finished {
			return &b.Rounds[i]
		}
	}
	return &b.Rounds[len(b.Rounds)-1]
}

func (s *Service) card(t lichess.Tour, group string, r *lichess.Round, now time.Time) watchdto.Card {
	c := watchdto.Card{
		TourID:  t.ID,
		Title:   firstNonEmpty(group, t.Name),
		Format:  firstNonEmpty(t.Info.Format, s.text("card.defaultFormat", nil)),
		Players: formatPlayers(t.Info.Players, s.text("card.defaultPlayers", nil)),
		Image:   firstNonEmpty(t.Image, s.text("card.fallbackImage", nil)),
		Link:    s.text("card.link", map[string]string{"TourID": t.ID}),
	}
	if r != nil {
		c.RoundID = r.ID
		c.RoundName = r.Name
		if ts, ok := r.StartTime(); ok {
			c.StartsAt = &ts
		}
		st := roundstatus.Classify(timingOf(*r), "", now)
		c.Status = string(st)
		c.Badge = s.badge(st)
	}
	return c
}

// formatPlayers normalises a free-form player list separated by commas or
// semicolons.
func formatPlayers(raw, fallback string) string {
	parts := playerSeparators.Split(raw, -1)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	if len(names) == 0 {
		return fallback
	}
	return strings.Join(names, ", ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func timingOf(r lichess.Round) roundstatus.Timing {
	return roundstatus.FromMillis(r.Finished, r.StartsAt, r.StartsAfterPrevious)
}

func (s *Service) badge(st roundstatus.Status) string {
	switch st {
	case roundstatus.Finished:
		return s.text("badge.finished", nil)
	case roundstatus.Live:
		return s.text("badge.live", nil)
	default:
		return s.text("badge.upcoming", nil)
	}
}
