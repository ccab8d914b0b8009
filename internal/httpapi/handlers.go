package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/park285/chesswatch/internal/dashboard"
)

func (a *api) topBroadcasts(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := a.dash.Overview(r.Context(), page)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) allBroadcasts(w http.ResponseWriter, r *http.Request) {
	nb, err := intParam(r, "nb", 0)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := a.dash.AllBroadcasts(r.Context(), nb)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) tournament(w http.ResponseWriter, r *http.Request) {
	out, err := a.dash.Tournament(r.Context(), chi.URLParam(r, "tourId"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) roundGames(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	q := dashboard.GamesQuery{Search: r.URL.Query().Get("q"), Page: page}
	out, err := a.dash.RoundGames(r.Context(), chi.URLParam(r, "roundId"), q)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) game(w http.ResponseWriter, r *http.Request) {
	out, err := a.dash.Game(r.Context(), chi.URLParam(r, "roundId"), chi.URLParam(r, "gameId"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) gameBoard(w http.ResponseWriter, r *http.Request) {
	png, err := a.dash.BoardPNG(r.Context(), chi.URLParam(r, "roundId"), chi.URLParam(r, "gameId"), boolParam(r, "flip"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writePNG(w, png)
}

func (a *api) decodeBoard(w http.ResponseWriter, r *http.Request) {
	out, err := a.dash.DecodeBoard(r.URL.Query().Get("fen"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) renderBoard(w http.ResponseWriter, r *http.Request) {
	png, err := a.dash.RenderFEN(r.Context(), r.URL.Query().Get("fen"), boolParam(r, "flip"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writePNG(w, png)
}

func (a *api) archive(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", a.archiveLimit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := a.dash.Archive(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", dashboard.ErrInvalidArgs, name)
	}
	return n, nil
}

func boolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
