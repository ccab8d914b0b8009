package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/chesswatch/internal/dashboard"
	"github.com/park285/chesswatch/internal/metrics"
	"github.com/park285/chesswatch/pkg/watchdto"
)

type fakeDashboard struct {
	lastQuery dashboard.GamesQuery
	lastFlip  bool
	lastNB    int
	lastLimit int
}

func (f *fakeDashboard) Overview(_ context.Context, page int) (*watchdto.Overview, error) {
	return &watchdto.Overview{Page: page, HasNextPage: page < 2}, nil
}

func (f *fakeDashboard) AllBroadcasts(_ context.Context, nb int) ([]watchdto.Card, error) {
	f.lastNB = nb
	if nb > 100 {
		return nil, fmt.Errorf("%w: nb must be at most 100", dashboard.ErrInvalidArgs)
	}
	return []watchdto.Card{{TourID: "t1", Title: "Norway Chess"}}, nil
}

func (f *fakeDashboard) Tournament(_ context.Context, tourID string) (*watchdto.Tournament, error) {
	switch tourID {
	case "t1":
		return &watchdto.Tournament{ID: "t1", Name: "Norway Chess"}, nil
	case "down":
		return nil, errors.New("lichess: status 503")
	}
	return nil, fmt.Errorf("%w: Broadcast Not Found", dashboard.ErrNotFound)
}

func (f *fakeDashboard) RoundGames(_ context.Context, roundID string, q dashboard.GamesQuery) (*watchdto.RoundGames, error) {
	f.lastQuery = q
	return &watchdto.RoundGames{Round: watchdto.RoundView{ID: roundID}, Query: q.Search, Page: q.Page}, nil
}

func (f *fakeDashboard) Game(_ context.Context, roundID, gameID string) (*watchdto.GameDetail, error) {
	if gameID != "g1" {
		return nil, fmt.Errorf("%w: Game %s is not part of round %s.", dashboard.ErrNotFound, gameID, roundID)
	}
	return &watchdto.GameDetail{GameView: watchdto.GameView{ID: gameID}, RoundID: roundID}, nil
}

func (f *fakeDashboard) BoardPNG(_ context.Context, _, _ string, flip bool) ([]byte, error) {
	f.lastFlip = flip
	return []byte("\x89PNG fake"), nil
}

func (f *fakeDashboard) DecodeBoard(raw string) (watchdto.BoardView, error) {
	if raw == "" {
		return watchdto.BoardView{}, fmt.Errorf("%w: fen is required", dashboard.ErrInvalidArgs)
	}
	return watchdto.BoardView{FEN: raw, Placement: raw}, nil
}

func (f *fakeDashboard) RenderFEN(_ context.Context, raw string, flip bool) ([]byte, error) {
	if raw == "bad" {
		return nil, fmt.Errorf("%w: rank must total 8 squares", dashboard.ErrInvalidArgs)
	}
	f.lastFlip = flip
	return []byte("\x89PNG fen"), nil
}

func (f *fakeDashboard) Archive(_ context.Context, limit int) ([]watchdto.ArchivedGame, error) {
	f.lastLimit = limit
	return []watchdto.ArchivedGame{{GameID: "g1", Result: "1-0"}}, nil
}

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body watchdto.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestJSONRoutes(t *testing.T) {
	fd := &fakeDashboard{}
	h := NewRouter(Deps{Dashboard: fd})

	rec := serve(t, h, "/api/broadcasts/top?page=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var ov watchdto.Overview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ov))
	assert.Equal(t, 2, ov.Page)

	rec = serve(t, h, "/api/rounds/r1/games?q=carlsen&page=3")
	require.Equal(t, http.StatusOK, rec.Code)
	if diff := cmp.Diff(dashboard.GamesQuery{Search: "carlsen", Page: 3}, fd.lastQuery); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}

	rec = serve(t, h, "/api/broadcasts?nb=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, fd.lastNB)

	rec = serve(t, h, "/api/broadcasts/t1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, "/api/rounds/r1/games/g1")
	require.Equal(t, http.StatusOK, rec.Code)
	var gd watchdto.GameDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gd))
	assert.Equal(t, "r1", gd.RoundID)

	rec = serve(t, h, "/api/archive?limit=7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, fd.lastLimit)

	rec = serve(t, h, "/api/board?fen=8/8/8/8/8/8/8/K6k")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDefaultsWhenParamsMissing(t *testing.T) {
	fd := &fakeDashboard{}
	h := NewRouter(Deps{Dashboard: fd})

	serve(t, h, "/api/rounds/r1/games")
	assert.Equal(t, dashboard.GamesQuery{Page: 1}, fd.lastQuery)

	serve(t, h, "/api/broadcasts")
	assert.Equal(t, 0, fd.lastNB)

	h = NewRouter(Deps{Dashboard: fd, ArchiveLimit: 50})
	serve(t, h, "/api/archive")
	assert.Equal(t, 50, fd.lastLimit)
}

func TestPNGRoutes(t *testing.T) {
	fd := &fakeDashboard{}
	h := NewRouter(Deps{Dashboard: fd})

	rec := serve(t, h, "/api/rounds/r1/games/g1/board.png?flip=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, fd.lastFlip)

	rec = serve(t, h, "/api/board.png?fen=8/8/8/8/8/8/8/K6k")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, fd.lastFlip)
	assert.Equal(t, "\x89PNG fen", rec.Body.String())
}

func TestErrorMapping(t *testing.T) {
	h := NewRouter(Deps{Dashboard: &fakeDashboard{}})

	cases := []struct {
		target string
		status int
		msg    string
	}{
		{"/api/broadcasts/nope", http.StatusNotFound, "Broadcast Not Found"},
		{"/api/rounds/r1/games/g9", http.StatusNotFound, "Game g9 is not part of round r1."},
		{"/api/broadcasts/down", http.StatusBadGateway, "Lichess API is currently unavailable"},
		{"/api/broadcasts?nb=500", http.StatusBadRequest, "Invalid request: invalid arguments: nb must be at most 100"},
		{"/api/broadcasts/top?page=abc", http.StatusBadRequest, "page must be an integer"},
		{"/api/board", http.StatusBadRequest, "fen is required"},
		{"/api/board.png?fen=bad", http.StatusBadRequest, "rank must total 8 squares"},
		{"/api/nowhere", http.StatusNotFound, "route not found"},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			rec := serve(t, h, tc.target)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, decodeError(t, rec), tc.msg)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.New()
	m.FENFallback()
	h := NewRouter(Deps{Dashboard: &fakeDashboard{}, Metrics: m})

	rec := serve(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = serve(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chesswatch_fen_fallbacks_total 1")

	// no live handler wired
	rec = serve(t, h, "/ws")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	h := NewRouter(Deps{Dashboard: &fakeDashboard{}})

	rec := serve(t, h, "/healthz")
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}
