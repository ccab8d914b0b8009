package dashboard

import (
	"context"
	"fmt"

	"github.com/park285/chesswatch/internal/lichess"
	"github.com/park285/chesswatch/internal/roundstatus"
	"github.com/park285/chesswatch/pkg/watchdto"
)

// Tournament returns a broadcast with every round classified in order.
func (s *Service) Tournament(ctx context.Context, tourID string) (*watchdto.Tournament, error) {
	id, err := cleanID("broadcast", tourID)
	if err != nil {
		return nil, err
	}
	b, err := s.broadcast(ctx, id)
	if err != nil {
		return nil, s.upstreamErr(fmt.Errorf("broadcast %s: %w", id, err), "errors.broadcastNotFound")
	}

	t := &watchdto.Tournament{
		ID:          b.Tour.ID,
		Name:        b.Tour.Name,
		Description: b.Tour.Description,
		Image:       firstNonEmpty(b.Tour.Image, s.text("card.fallbackImage", nil)),
		Info: watchdto.TourInfo{
			Format:      firstNonEmpty(b.Tour.Info.Format, s.text("card.defaultFormat", nil)),
			TimeControl: firstNonEmpty(b.Tour.Info.TC, b.Tour.Info.FideTC),
			Location:    b.Tour.Info.Location,
			TimeZone:    b.Tour.Info.TimeZone,
			Players:     formatPlayers(b.Tour.Info.Players, s.text("card.defaultPlayers", nil)),
			Website:     b.Tour.Info.Website,
			Standings:   b.Tour.Info.Standings,
		},
		DefaultRoundID: b.DefaultRoundID,
	}
	if b.Group != nil {
		t.Group = b.Group.Name
	}

	timings := make([]roundstatus.Timing, len(b.Rounds))
	for i, r := range b.Rounds {
		timings[i] = timingOf(r)
	}
	statuses := roundstatus.ClassifyAll(timings, s.now())
	t.Rounds = make([]watchdto.RoundView, len(b.Rounds))
	for i, r := range b.Rounds {
		t.Rounds[i] = s.roundView(r, statuses[i])
	}
	return t, nil
}

func (s *Service) roundView(r lichess.Round, st roundstatus.Status) watchdto.RoundView {
	v := watchdto.RoundView{
		ID:     r.ID,
		Name:   r.Name,
		Status: string(st),
		Badge:  s.badge(st),
		Link:   "/api/rounds/" + r.ID + "/games",
	}
	if ts, ok := r.StartTime(); ok {
		v.StartsAt = &ts
	}
	return v
}
