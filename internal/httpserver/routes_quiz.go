// internal/httpserver/routes_quiz.go
//
// HTTP routes for playing a quiz:
//   - POST /quiz/new            → start a game ({"variant":"lives"|"timed"})
//   - GET  /quiz/{id}           → current view
//   - GET  /quiz/{id}/styles    → per-region style map for re-rendering the layer
//   - POST /quiz/{id}/select    → submit the clicked region ({"name":"Texas"})
//   - POST /quiz/{id}/restart   → reset to a fresh round
//   - GET  /quiz/{id}/events    → SSE stream of views (clock ticks included)
//
// Clicks outside any region (empty name), repeat clicks on a guessed region,
// and clicks after game over return outcome "ignored" with the current view.

package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/geoquiz/apps/go-server/internal/quiz"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/session"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/store"
)

// sseKeepAlive is how often an idle event stream gets a comment line.
const sseKeepAlive = 15 * time.Second

// mountQuiz registers the /quiz routes except the SSE stream.
func (s *Server) mountQuiz(r chi.Router) {
	r.Route("/quiz", func(r chi.Router) {
		r.Post("/new", s.handleNewQuiz)
		r.Get("/{id}", s.handleGetQuiz)
		r.Get("/{id}/styles", s.handleStyles)
		r.Post("/{id}/select", s.handleSelect)
		r.Post("/{id}/restart", s.handleRestart)
	})
}

// newQuizReq/Res payloads for POST /quiz/new.
type newQuizReq struct {
	Variant string `json:"variant"` // "lives" | "timed" (default)
}
type newQuizRes struct {
	GameID string    `json:"gameId"`
	View   quiz.View `json:"view"`
}

func (s *Server) handleNewQuiz(w http.ResponseWriter, r *http.Request) {
	var req newQuizReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	variant, err := quiz.ParseVariant(req.Variant)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_variant")
		return
	}
	sess, err := s.sessions.New(r.Context(), variant, playerFrom(r))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("new quiz")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	writeJSON(w, http.StatusOK, newQuizRes{GameID: sess.ID(), View: sess.View()})
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

type stylesRes struct {
	LayerVersion int                   `json:"layerVersion"`
	Styles       map[string]quiz.Style `json:"styles"`
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	styles, version := sess.Styles()
	writeJSON(w, http.StatusOK, stylesRes{LayerVersion: version, Styles: styles})
}

// selectReq/Res payloads for POST /quiz/{id}/select.
type selectReq struct {
	Name string `json:"name"` // empty: click outside any region
}
type selectRes struct {
	Outcome quiz.Outcome `json:"outcome"`
	View    quiz.View    `json:"view"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	out, view, err := sess.Select(req.Name)
	if errors.Is(err, quiz.ErrUnknownRegion) {
		writeError(w, http.StatusBadRequest, "unknown_region")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("gameId", sess.ID()).Msg("select")
		writeError(w, http.StatusInternalServerError, "select_failed")
		return
	}
	writeJSON(w, http.StatusOK, selectRes{Outcome: out, View: view})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Restart())
}

// handleEvents streams a "view" event on connect and after every change.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering in nginx/proxies
	w.WriteHeader(http.StatusOK)

	views, cancel := sess.Subscribe()
	defer cancel()

	if err := writeEvent(w, "view", sess.View()); err != nil {
		return
	}
	flusher.Flush()

	ping := time.NewTicker(sseKeepAlive)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case v, ok := <-views:
			if !ok {
				return
			}
			if err := writeEvent(w, "view", v); err != nil {
				return
			}
			flusher.Flush()
		case <-ping.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// session loads the {id} session or writes a 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("load session")
		writeError(w, http.StatusInternalServerError, "load_failed")
		return nil, false
	}
	return sess, true
}
