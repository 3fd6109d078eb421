package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/geoquiz/apps/go-server/internal/events"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/results"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/session"
)

// resultWriter is the slice of results.Store the hooks need.
type resultWriter interface {
	Insert(ctx context.Context, r results.Result) error
}

// hooks connects session lifecycle callbacks to persistence and events.
// Failures are logged and never reach the player.
type hooks struct {
	results resultWriter
	events  events.Publisher
	timeout time.Duration
}

func (h hooks) context() (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), h.timeout)
}

func (h hooks) started(r session.Round) {
	ctx, cancel := h.context()
	defer cancel()
	err := h.events.Publish(ctx, events.Event{
		Subject:  events.SubjectStarted,
		GameID:   r.GameID,
		Round:    r.Round,
		PlayerID: r.Player.ID,
		Variant:  string(r.Variant),
		Total:    r.Total,
		At:       time.Now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Str("gameId", r.GameID).Msg("publish started")
	}
}

func (h hooks) finished(r session.Round) {
	ctx, cancel := h.context()
	defer cancel()

	sum := r.Summary
	err := h.results.Insert(ctx, results.Result{
		GameID:     r.GameID,
		Round:      r.Round,
		PlayerID:   r.Player.ID,
		PlayerName: r.Player.Name,
		Variant:    string(r.Variant),
		Score:      sum.Score,
		Total:      sum.Total,
		Reason:     string(sum.Reason),
		ElapsedMs:  sum.Elapsed.Milliseconds(),
	})
	if err != nil {
		log.Error().Err(err).Str("gameId", r.GameID).Int("round", r.Round).Msg("record result")
	}

	err = h.events.Publish(ctx, events.Event{
		Subject:   events.SubjectFinished,
		GameID:    r.GameID,
		Round:     r.Round,
		PlayerID:  r.Player.ID,
		Variant:   string(r.Variant),
		Score:     sum.Score,
		Total:     sum.Total,
		Reason:    string(sum.Reason),
		ElapsedMs: sum.Elapsed.Milliseconds(),
		At:        sum.FinishedAt.UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Str("gameId", r.GameID).Msg("publish finished")
	}
}
