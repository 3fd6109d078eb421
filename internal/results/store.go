// Package results persists finished quiz games and serves leaderboards.
package results

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Result is one finished game (one round of a session).
type Result struct {
	GameID     string    `json:"gameId"`
	Round      int       `json:"round"`
	PlayerID   string    `json:"playerId,omitempty"`
	PlayerName string    `json:"playerName,omitempty"`
	Variant    string    `json:"variant"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Reason     string    `json:"reason"`
	ElapsedMs  int64     `json:"elapsedMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DefaultLimit caps leaderboard and history queries when no limit is given.
const DefaultLimit = 20

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Insert records r. A second insert for the same (game, round) is ignored.
func (s *Store) Insert(ctx context.Context, r Result) error {
	if r.GameID == "" {
		return errors.New("results: missing game id")
	}
	if r.Round <= 0 {
		r.Round = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO results
		    (game_id, round, player_id, player_name, variant, score, total, reason, elapsed_ms)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		r.GameID, r.Round, nullable(r.PlayerID), nullable(r.PlayerName),
		r.Variant, r.Score, r.Total, r.Reason, r.ElapsedMs,
	)
	return err
}

// Leaderboard returns the best results for variant: highest score first,
// then fastest, then earliest.
func (s *Store) Leaderboard(ctx context.Context, variant string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, round, COALESCE(player_id,''), COALESCE(player_name,''),
		        variant, score, total, reason, elapsed_ms, created_at
		FROM results
		WHERE variant=?
		ORDER BY score DESC, elapsed_ms ASC, created_at ASC, id ASC
		LIMIT ?`, variant, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanResults(rows)
}

// ByPlayer returns the most recent results for a player.
func (s *Store) ByPlayer(ctx context.Context, playerID string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, round, COALESCE(player_id,''), COALESCE(player_name,''),
		        variant, score, total, reason, elapsed_ms, created_at
		FROM results
		WHERE player_id=?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, playerID, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		var r Result
		var created string
		if err := rows.Scan(&r.GameID, &r.Round, &r.PlayerID, &r.PlayerName,
			&r.Variant, &r.Score, &r.Total, &r.Reason, &r.ElapsedMs, &created); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
