package dashboard

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/chesswatch/internal/archive"
	"github.com/park285/chesswatch/internal/board"
	"github.com/park285/chesswatch/internal/fen"
	"github.com/park285/chesswatch/internal/lichess"
	"github.com/park285/chesswatch/internal/roundstatus"
	"github.com/park285/chesswatch/pkg/watchdto"
)

// GamesQuery selects a page of a round's games.
type GamesQuery struct {
	Search string
	Page   int
}

// RoundGames returns one page of a round's games, filtered by player name.
// The page is clamped into range rather than rejected.
func (s *Service) RoundGames(ctx context.Context, roundID string, q GamesQuery) (*watchdto.RoundGames, error) {
	page, st, err := s.loadRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	query := strings.TrimSpace(q.Search)
	matched := filterGames(page.Games, query)

	perPage := s.opts.GamesPerPage
	total := len(matched)
	totalPages := (total + perPage - 1) / perPage
	current := min(max(q.Page, 1), max(totalPages, 1))
	start := min((current-1)*perPage, total)
	end := min(start+perPage, total)

	out := &watchdto.RoundGames{
		TourID:     page.Tour.ID,
		TourName:   page.Tour.Name,
		Round:      s.roundView(page.Round, st),
		Query:      query,
		Page:       current,
		PerPage:    perPage,
		TotalPages: totalPages,
		Total:      total,
		Games:      make([]watchdto.GameView, 0, end-start),
	}
	for _, g := range matched[start:end] {
		out.Games = append(out.Games, gameView(g))
	}
	if total == 0 {
		out.Empty = s.text("games.empty", nil)
	}
	return out, nil
}

// Game returns one game with its decoded board.
func (s *Service) Game(ctx context.Context, roundID, gameID string) (*watchdto.GameDetail, error) {
	page, g, err := s.findGame(ctx, roundID, gameID)
	if err != nil {
		return nil, err
	}
	b, fallback := s.decodeBoard(g.FEN, g.ID)
	return &watchdto.GameDetail{
		GameView:  gameView(*g),
		RoundID:   page.Round.ID,
		RoundName: page.Round.Name,
		Board:     boardView(g.FEN, b, fallback),
		BoardPNG:  "/api/rounds/" + page.Round.ID + "/games/" + g.ID + "/board.png",
	}, nil
}

// BoardPNG renders the current position of a game.
func (s *Service) BoardPNG(ctx context.Context, roundID, gameID string, flip bool) ([]byte, error) {
	page, g, err := s.findGame(ctx, roundID, gameID)
	if err != nil {
		return nil, err
	}
	b, _ := s.decodeBoard(g.FEN, g.ID)
	header := s.text("board.title", map[string]string{
		"White": firstNonEmpty(g.White().Name, "?"),
		"Black": firstNonEmpty(g.Black().Name, "?"),
	})
	opts := board.RenderOptions{
		Flip:         flip,
		HUDHeader:    header,
		HUDTurn:      strings.TrimSpace(page.Round.Name + "  " + resultLabel(g.Status)),
		ShowMaterial: true,
	}
	if hl, ok := board.ParseLastMove(g.LastMove); ok {
		opts.Highlight = hl
	}
	return s.renderer.RenderPNG(ctx, b, opts)
}

// DecodeBoard decodes an arbitrary FEN for display, falling back to the
// starting position when it is rejected.
func (s *Service) DecodeBoard(raw string) (watchdto.BoardView, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return watchdto.BoardView{}, fmt.Errorf("%w: fen is required", ErrInvalidArgs)
	}
	b, fallback := s.decodeBoard(raw, "")
	return boardView(raw, b, fallback), nil
}

// RenderFEN renders an arbitrary FEN. Unlike DecodeBoard it rejects bad input.
func (s *Service) RenderFEN(ctx context.Context, raw string, flip bool) ([]byte, error) {
	b, err := fen.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return s.renderer.RenderPNG(ctx, b, board.RenderOptions{Flip: flip, ShowMaterial: true})
}

func (s *Service) loadRound(ctx context.Context, roundID string) (*lichess.RoundPage, roundstatus.Status, error) {
	id, err := cleanID("round", roundID)
	if err != nil {
		return nil, "", err
	}
	page, err := s.round(ctx, id)
	if err != nil {
		return nil, "", s.upstreamErr(fmt.Errorf("round %s: %w", id, err), "errors.roundNotFound")
	}
	st := s.roundStatus(ctx, page)
	if st == roundstatus.Finished {
		s.archiveRound(ctx, page)
	}
	return page, st, nil
}

// roundStatus classifies the round of a round page. A tiebreak round without a
// start time needs its predecessor, which only the tournament's round list
// carries; when that list cannot be loaded the round counts as upcoming.
func (s *Service) roundStatus(ctx context.Context, page *lichess.RoundPage) roundstatus.Status {
	t := timingOf(page.Round)
	now := s.now()
	if t.Finished || !t.StartsAt.IsZero() || !t.StartsAfterPrevious || page.Tour.ID == "" {
		return roundstatus.Classify(t, "", now)
	}
	b, err := s.broadcast(ctx, page.Tour.ID)
	if err != nil {
		s.log.Debug("round_predecessor_unavailable",
			zap.String("round_id", page.Round.ID),
			zap.String("tour_id", page.Tour.ID),
			zap.Error(err),
		)
		return roundstatus.Classify(t, "", now)
	}
	timings := make([]roundstatus.Timing, len(b.Rounds))
	for i, r := range b.Rounds {
		timings[i] = timingOf(r)
	}
	statuses := roundstatus.ClassifyAll(timings, now)
	for i, r := range b.Rounds {
		if r.ID == page.Round.ID {
			var prev roundstatus.Status
			if i > 0 {
				prev = statuses[i-1]
			}
			// the round page is fresher than the cached list for this round
			return roundstatus.Classify(t, prev, now)
		}
	}
	return roundstatus.Classify(t, "", now)
}

func (s *Service) findGame(ctx context.Context, roundID, gameID string) (*lichess.RoundPage, *lichess.Game, error) {
	gid, err := cleanID("game", gameID)
	if err != nil {
		return nil, nil, err
	}
	page, _, err := s.loadRound(ctx, roundID)
	if err != nil {
		return nil, nil, err
	}
	for i := range page.Games {
		if page.Games[i].ID == gid {
			return page, &page.Games[i], nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrNotFound,
		s.text("errors.gameNotFound", map[string]string{"GameID": gid, "RoundID": page.Round.ID}))
}

func (s *Service) decodeBoard(raw, gameID string) (fen.Board, bool) {
	b, err := fen.Decode(raw)
	if err == nil {
		return b, false
	}
	s.log.Warn("fen_decode_fallback",
		zap.String("game_id", gameID),
		zap.String("fen", raw),
		zap.Error(err),
	)
	s.metrics.FENFallback()
	return fen.StartingBoard(), true
}

func (s *Service) archiveRound(ctx context.Context, page *lichess.RoundPage) {
	if s.recorder == nil || !s.opts.ArchiveFinished || len(page.Games) == 0 {
		return
	}
	// reserve the round so concurrent requests save it once
	s.archivedMu.Lock()
	if _, taken := s.archived[page.Round.ID]; taken {
		s.archivedMu.Unlock()
		return
	}
	s.archived[page.Round.ID] = struct{}{}
	s.archivedMu.Unlock()

	observed := s.now()
	records := make([]archive.Record, 0, len(page.Games))
	for _, g := range page.Games {
		records = append(records, archive.Record{
			GameID:     g.ID,
			RoundID:    page.Round.ID,
			RoundName:  page.Round.Name,
			TourID:     page.Tour.ID,
			TourName:   page.Tour.Name,
			White:      g.White().Name,
			Black:      g.Black().Name,
			Result:     g.Status,
			FEN:        g.FEN,
			ObservedAt: observed,
		})
	}
	if err := s.recorder.SaveRound(ctx, records); err != nil {
		s.log.Warn("archive_round_failed", zap.String("round_id", page.Round.ID), zap.Error(err))
		s.archivedMu.Lock()
		delete(s.archived, page.Round.ID)
		s.archivedMu.Unlock()
		return
	}
	s.metrics.Archived(len(records))
	s.log.Info("archive_round_saved", zap.String("round_id", page.Round.ID), zap.Int("games", len(records)))
}

// Archive lists recently archived games.
func (s *Service) Archive(ctx context.Context, limit int) ([]watchdto.ArchivedGame, error) {
	if s.recorder == nil {
		return []watchdto.ArchivedGame{}, nil
	}
	recs, err := s.recorder.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent archive: %w", err)
	}
	out := make([]watchdto.ArchivedGame, len(recs))
	for i, r := range recs {
		out[i] = watchdto.ArchivedGame(r)
	}
	return out, nil
}

func filterGames(games []lichess.Game, query string) []lichess.Game {
	if query == "" {
		return games
	}
	needle := strings.ToLower(query)
	out := make([]lichess.Game, 0, len(games))
	for _, g := range games {
		if strings.Contains(strings.ToLower(g.White().Name), needle) ||
			strings.Contains(strings.ToLower(g.Black().Name), needle) {
			out = append(out, g)
		}
	}
	return out
}

func gameView(g lichess.Game) watchdto.GameView {
	result, winner, ongoing := outcome(g.Status)
	return watchdto.GameView{
		ID:       g.ID,
		Name:     g.Name,
		FEN:      g.FEN,
		LastMove: g.LastMove,
		White:    playerView(g.White()),
		Black:    playerView(g.Black()),
		Result:   result,
		Winner:   winner,
		Ongoing:  ongoing,
	}
}

func playerView(p lichess.Player) watchdto.PlayerView {
	return watchdto.PlayerView{Name: p.Name, Title: p.Title, Rating: p.Rating, Fed: p.Fed, Clock: p.Clock}
}

// outcome reads a Lichess status token.
func outcome(status string) (result, winner string, ongoing bool) {
	switch tok := strings.TrimSpace(status); tok {
	case "1-0":
		return tok, watchdto.WinnerWhite, false
	case "0-1":
		return tok, watchdto.WinnerBlack, false
	case "1/2-1/2", "½-½":
		return tok, watchdto.WinnerDraw, false
	case "":
		return "*", "", true
	default:
		return tok, "", true
	}
}

func resultLabel(status string) string {
	result, _, ongoing := outcome(status)
	if ongoing {
		return ""
	}
	if result == "½-½" {
		return "1/2-1/2"
	}
	return result
}

func boardView(raw string, b fen.Board, fallback bool) watchdto.BoardView {
	return watchdto.BoardView{
		FEN:       raw,
		Placement: b.Placement(),
		Squares:   b.Symbols(),
		Fallback:  fallback,
	}
}
