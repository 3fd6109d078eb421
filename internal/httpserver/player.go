// internal/httpserver/player.go
//
// Lightweight player identity: POST /player exchanges a display name for an
// HS256 JWT ({id, name, exp, iat}) delivered both in the body and as an
// HttpOnly cookie. There are no accounts or passwords; the token only ties
// finished games to a leaderboard name and to /players/me/results.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/robalobadob/geoquiz/apps/go-server/internal/session"
)

// ctxPlayerKey is the context key type for storing session.Player.
type ctxPlayerKey struct{}

type newPlayerReq struct {
	Name string `json:"name"`
}
type newPlayerRes struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleNewPlayer validates the name, signs a token, and sets the cookie.
func (s *Server) handleNewPlayer(w http.ResponseWriter, r *http.Request) {
	var body newPlayerReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	name := strings.TrimSpace(body.Name)
	if err := validateName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := session.Player{ID: uuid.NewString(), Name: name}
	tok, exp, err := s.signPlayer(p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setPlayerCookie(w, tok, exp)
	writeJSON(w, http.StatusOK, newPlayerRes{ID: p.ID, Name: p.Name, Token: tok, ExpiresAt: exp})
}

// validateName enforces display name rules.
func validateName(n string) error {
	if len(n) < 3 || len(n) > 24 {
		return errors.New("name must be 3-24 chars")
	}
	for _, r := range n {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("name: letters, numbers, underscore only")
		}
	}
	return nil
}

// --------------------------- token middleware ------------------------------

// withOptionalPlayer decorates requests with the player if a valid token is present.
// It never 401s; guests can play.
func (s *Server) withOptionalPlayer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := s.bearerOrCookie(r); tok != "" {
				if p, err := s.parsePlayer(tok); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxPlayerKey{}, p))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requirePlayer rejects requests that did not carry a valid token.
func (s *Server) requirePlayer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.bearerOrCookie(r) == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if playerFrom(r).ID == "" {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// playerFrom returns the request's player, or the zero guest.
func playerFrom(r *http.Request) session.Player {
	p, _ := r.Context().Value(ctxPlayerKey{}).(session.Player)
	return p
}

// ------------------------------ JWT & cookies ------------------------------

// signPlayer creates an HS256 JWT with id/name and the configured expiry.
func (s *Server) signPlayer(p session.Player) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(time.Duration(s.opts.JWTExpiresDays) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   p.ID,
		"name": p.Name,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.opts.JWTSecret))
	return ss, exp, err
}

// parsePlayer validates tok and extracts the player claims.
func (s *Server) parsePlayer(tok string) (session.Player, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.opts.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return session.Player{}, errors.New("invalid token")
	}
	id, _ := claims["id"].(string)
	name, _ := claims["name"].(string)
	if id == "" || name == "" {
		return session.Player{}, errors.New("invalid token")
	}
	return session.Player{ID: id, Name: name}, nil
}

// setPlayerCookie writes the token cookie with appropriate security attributes.
func (s *Server) setPlayerCookie(w http.ResponseWriter, token string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.opts.Production {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Production,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or the token cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.opts.CookieName); err == nil {
		return c.Value
	}
	return ""
}
