// internal/httpserver/routes_results.go
//
// Finished-game results:
//   - GET /leaderboard          → top results (?variant=timed|lives, ?limit=1..100)
//   - GET /players/me/results   → recent results for the token's player (requires token)

package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/geoquiz/apps/go-server/internal/quiz"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/results"
)

const maxResultsLimit = 100

// mountResults registers leaderboard and history routes.
func (s *Server) mountResults(r chi.Router) {
	r.Get("/leaderboard", s.handleLeaderboard)
	r.With(s.requirePlayer()).Get("/players/me/results", s.handleMyResults)
}

// lbRes is returned by /leaderboard.
type lbRes struct {
	Variant quiz.Variant     `json:"variant"`
	Top     []results.Result `json:"top"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	variant, err := quiz.ParseVariant(r.URL.Query().Get("variant"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_variant")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	rows, err := s.results.Leaderboard(r.Context(), string(variant), limit)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Variant: variant, Top: rows})
}

func (s *Server) handleMyResults(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	rows, err := s.results.ByPlayer(r.Context(), playerFrom(r).ID, limit)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("player results")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// parseLimit reads ?limit=, defaulting to results.DefaultLimit.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return results.DefaultLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxResultsLimit {
		writeError(w, http.StatusBadRequest, "invalid_limit")
		return 0, false
	}
	return n, true
}
