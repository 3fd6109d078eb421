// internal/httpserver/server.go
//
// HTTP server wiring for the GeoQuiz backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/regions", "/regions.geojson".
//   - Quiz endpoints (optional player token): mounted under /quiz.
//   - Player token + results endpoints: /player, /leaderboard, /players/me/results.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The SSE stream (/quiz/{id}/events) is mounted outside the handler
//     timeout; every other route is bounded to 10s.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/geoquiz/apps/go-server/internal/regions"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/results"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/session"
)

// Options carries the HTTP-facing configuration.
type Options struct {
	ClientOrigin   string // CORS origin; default http://localhost:5173
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	Production     bool // Secure + SameSite=None cookies
}

// Server bundles router, session manager, region dataset and results store.
type Server struct {
	r        *chi.Mux
	sessions *session.Manager
	regions  *regions.Set
	results  *results.Store
	opts     Options
}

// New constructs a Server, installs middleware, and registers routes.
func New(mgr *session.Manager, set *regions.Set, res *results.Store, opts Options) *Server {
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	if opts.JWTSecret == "" {
		opts.JWTSecret = "dev_secret_change_me"
	}
	if opts.JWTExpiresDays <= 0 {
		opts.JWTExpiresDays = 14
	}
	if opts.CookieName == "" {
		opts.CookieName = "geoquiz_token"
	}
	s := &Server{r: chi.NewRouter(), sessions: mgr, regions: set, results: res, opts: opts}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger))     // request-scoped zerolog logger
	s.r.Use(accessLog)                       // one debug line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(s.cors)                          // credentials-friendly CORS
	s.r.Use(s.withOptionalPlayer())          // decorate with player when a token is present

	// Long-lived SSE stream: no handler timeout.
	s.r.Get("/quiz/{id}/events", s.handleEvents)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"geoquiz-go","endpoints":["/health","/regions","POST /quiz/new","POST /quiz/{id}/select","POST /quiz/{id}/restart","/leaderboard"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/debug/regions", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"regions": s.regions.Len(), "source": s.regions.Source()})
		})

		// --- region dataset ---
		r.Get("/regions", s.handleRegions)
		r.Get("/regions.geojson", s.handleGeoJSON)

		// --- quiz ---
		s.mountQuiz(r)

		// --- players + results ---
		r.Post("/player", s.handleNewPlayer)
		s.mountResults(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Handler exposes the router as an http.Handler.
func (s *Server) Handler() http.Handler { return s.r }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// accessLog writes method, path, status and latency at debug level.
var accessLog = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("requestId", chimw.GetReqID(r.Context())).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
})

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.opts.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ regions ------------------------------------

type regionsRes struct {
	Count  int      `json:"count"`
	Source string   `json:"source"`
	Names  []string `json:"names"`
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, regionsRes{Count: s.regions.Len(), Source: s.regions.Source(), Names: s.regions.Names()})
}

// handleGeoJSON serves the FeatureCollection the dataset was parsed from,
// so the map client renders exactly the regions the server accepts.
func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.regions.GeoJSON()
	if !ok {
		writeError(w, http.StatusNotFound, "no_geojson")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// ------------------------------- small util --------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
