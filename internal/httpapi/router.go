package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/park285/chesswatch/internal/dashboard"
	"github.com/park285/chesswatch/internal/metrics"
	"github.com/park285/chesswatch/internal/msgcat"
	"github.com/park285/chesswatch/internal/obslog"
	"github.com/park285/chesswatch/pkg/watchdto"
)

// Dashboard is the read side the API exposes.
type Dashboard interface {
	Overview(ctx context.Context, page int) (*watchdto.Overview, error)
	AllBroadcasts(ctx context.Context, nb int) ([]watchdto.Card, error)
	Tournament(ctx context.Context, tourID string) (*watchdto.Tournament, error)
	RoundGames(ctx context.Context, roundID string, q dashboard.GamesQuery) (*watchdto.RoundGames, error)
	Game(ctx context.Context, roundID, gameID string) (*watchdto.GameDetail, error)
	BoardPNG(ctx context.Context, roundID, gameID string, flip bool) ([]byte, error)
	DecodeBoard(raw string) (watchdto.BoardView, error)
	RenderFEN(ctx context.Context, raw string, flip bool) ([]byte, error)
	Archive(ctx context.Context, limit int) ([]watchdto.ArchivedGame, error)
}

type Deps struct {
	Dashboard Dashboard
	Metrics   *metrics.Metrics
	Catalog   *msgcat.Catalog

	// Live serves /ws; nil disables the route.
	Live http.Handler

	// ArchiveLimit is the /api/archive page size when limit is omitted.
	ArchiveLimit int
}

type api struct {
	dash         Dashboard
	catalog      *msgcat.Catalog
	archiveLimit int
	log          *zap.Logger
}

func NewRouter(d Deps) *chi.Mux {
	a := &api{dash: d.Dashboard, catalog: d.Catalog, archiveLimit: d.ArchiveLimit, log: obslog.Named("http")}
	if a.catalog == nil {
		a.catalog = msgcat.MustDefault()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(accessLog(a.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	if d.Live != nil {
		r.Method(http.MethodGet, "/ws", d.Live)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/broadcasts/top", a.topBroadcasts)
		r.Get("/broadcasts", a.allBroadcasts)
		r.Get("/broadcasts/{tourId}", a.tournament)
		r.Get("/rounds/{roundId}/games", a.roundGames)
		r.Get("/rounds/{roundId}/games/{gameId}", a.game)
		r.Get("/rounds/{roundId}/games/{gameId}/board.png", a.gameBoard)
		r.Get("/board", a.decodeBoard)
		r.Get("/board.png", a.renderBoard)
		r.Get("/archive", a.archive)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, watchdto.ErrorBody{Error: "route not found"})
	})
	return r
}
