package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/geoquiz/apps/go-server/internal/quiz"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/store"
)

// Config controls how sessions are created and kept.
type Config struct {
	Regions      []string
	Options      quiz.Options
	TickInterval time.Duration // timed variant tick, default 1s
	IdleTTL      time.Duration // sessions unused this long are swept, default 30m

	// NewPicker returns the random source for a new game; nil uses crypto/rand.
	NewPicker func() quiz.Picker

	// OnStart and OnFinish run outside the session lock, on the goroutine
	// that caused the transition (request handler or timer).
	OnStart  func(Round)
	OnFinish func(Round)
}

// Manager creates sessions and looks them up by game ID.
type Manager struct {
	cfg    Config
	store  store.Store[*Session]
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager constructs a Manager backed by st.
func NewManager(cfg Config, st store.Store[*Session]) *Manager {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{cfg: cfg, store: st, ctx: ctx, cancel: cancel}
}

// New starts a game of the given variant for p.
func (m *Manager) New(ctx context.Context, variant quiz.Variant, p Player) (*Session, error) {
	if variant != quiz.VariantLives && variant != quiz.VariantTimed {
		return nil, quiz.ErrUnknownVariant
	}
	if len(m.cfg.Regions) == 0 {
		return nil, errors.New("session: no regions configured")
	}
	var picker quiz.Picker
	if m.cfg.NewPicker != nil {
		picker = m.cfg.NewPicker()
	}

	s := &Session{
		m:      m,
		game:   quiz.New(variant, m.cfg.Regions, m.cfg.Options, picker),
		player: p,
		round:  1,
		subs:   make(map[chan quiz.View]struct{}),
	}
	if err := m.store.Save(ctx, s.ID(), s); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.startTimerLocked()
	started := s.roundLocked()
	s.mu.Unlock()

	m.started(started)
	return s, nil
}

// Get returns the session for id, or store.ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.Get(ctx, id)
}

// Sweep closes and forgets sessions idle longer than IdleTTL.
func (m *Manager) Sweep(ctx context.Context) int {
	idle := m.store.Sweep(ctx, time.Now().Add(-m.cfg.IdleTTL))
	for _, s := range idle {
		s.Close()
	}
	if len(idle) > 0 {
		log.Info().Int("sessions", len(idle)).Msg("swept idle sessions")
	}
	return len(idle)
}

// RunSweeper sweeps periodically until ctx or the manager is done.
func (m *Manager) RunSweeper(ctx context.Context) {
	t := time.NewTicker(max(m.cfg.IdleTTL/2, time.Second))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.ctx.Done():
			return
		case <-t.C:
			m.Sweep(ctx)
		}
	}
}

// Close stops every timer owned by this manager.
func (m *Manager) Close() { m.cancel() }

func (m *Manager) started(r Round) {
	log.Debug().Str("gameId", r.GameID).Int("round", r.Round).Str("variant", string(r.Variant)).Msg("round started")
	if m.cfg.OnStart != nil {
		m.cfg.OnStart(r)
	}
}

func (m *Manager) finished(r Round) {
	log.Info().
		Str("gameId", r.GameID).
		Int("round", r.Round).
		Str("variant", string(r.Variant)).
		Str("reason", string(r.Summary.Reason)).
		Int("score", r.Summary.Score).
		Msg("round finished")
	if m.cfg.OnFinish != nil {
		m.cfg.OnFinish(r)
	}
}
