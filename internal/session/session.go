// internal/session/session.go
//
// A Session wraps one quiz.Game with everything the engine itself leaves out:
//   - a mutex, so clicks, ticks and restarts are applied one at a time and
//     each runs to completion before the next;
//   - the countdown timer for timed games, with a generation counter so a
//     tick from a cancelled timer never lands on a restarted round;
//   - view subscribers (SSE streams), fed without blocking the game;
//   - start/finish notifications handed to the Manager's hooks.

package session

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/geoquiz/apps/go-server/internal/clock"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/quiz"
)

// subscriberBuffer is how many views a slow subscriber may lag behind before
// further views are dropped for it.
const subscriberBuffer = 8

// Player identifies who is playing; zero value is an anonymous guest.
type Player struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Round describes one round of a session for hooks. Summary is only set
// for finished rounds.
type Round struct {
	GameID  string
	Round   int
	Player  Player
	Variant quiz.Variant
	Total   int
	Summary quiz.Summary
}

// Session is a single player's quiz, safe for concurrent use.
type Session struct {
	m      *Manager
	mu     sync.Mutex
	game   *quiz.Game
	player Player
	round  int

	timer *clock.Timer
	gen   int

	subs   map[chan quiz.View]struct{}
	closed bool
}

// ID returns the game identifier.
func (s *Session) ID() string { return s.game.ID }

// Player returns the session owner.
func (s *Session) Player() Player { return s.player }

// View returns the current UI snapshot.
func (s *Session) View() quiz.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.View()
}

// Styles returns the style of every region and the layer version they belong to.
func (s *Session) Styles() (map[string]quiz.Style, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Styles(), s.game.LayerVersion
}

// Select applies a click on region name.
func (s *Session) Select(name string) (quiz.Outcome, quiz.View, error) {
	s.mu.Lock()
	wasOver := s.game.Over
	out, err := s.game.Select(name)
	view := s.game.View()
	if err == nil && out != quiz.OutcomeIgnored {
		s.broadcastLocked(view)
	}
	var fin *Round
	if !wasOver && s.game.Over {
		s.stopTimerLocked()
		fin = s.finishedLocked()
	}
	s.mu.Unlock()

	if fin != nil {
		s.m.finished(*fin)
	}
	return out, view, err
}

// Restart resets the game, starts a new round, and restarts the clock.
func (s *Session) Restart() quiz.View {
	s.mu.Lock()
	s.stopTimerLocked()
	s.game.Restart()
	s.round++
	s.startTimerLocked()
	view := s.game.View()
	s.broadcastLocked(view)
	started := s.roundLocked()
	s.mu.Unlock()

	s.m.started(started)
	return view
}

// Subscribe returns a channel receiving a view after every state change,
// and a cancel func that must be called when done. The channel is closed
// by cancel or when the session is closed.
func (s *Session) Subscribe() (<-chan quiz.View, func()) {
	ch := make(chan quiz.View, subscriberBuffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// Close stops the timer and ends every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTimerLocked()
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}

// tick runs on the timer goroutine. It returns false to stop the timer.
func (s *Session) tick(gen int) bool {
	s.mu.Lock()
	if gen != s.gen || s.game.Over {
		s.mu.Unlock()
		return false
	}
	ended := s.game.Tick()
	s.broadcastLocked(s.game.View())
	var fin *Round
	if ended {
		s.stopTimerLocked()
		fin = s.finishedLocked()
	}
	s.mu.Unlock()

	if fin != nil {
		s.m.finished(*fin)
	}
	return !ended
}

func (s *Session) startTimerLocked() {
	if s.game.Variant != quiz.VariantTimed || s.game.Over || s.closed {
		return
	}
	gen := s.gen
	s.timer = clock.Start(s.m.ctx, s.m.cfg.TickInterval, func() bool { return s.tick(gen) })
}

// stopTimerLocked cancels the timer and invalidates any tick in flight.
func (s *Session) stopTimerLocked() {
	s.timer.Stop()
	s.timer = nil
	s.gen++
}

func (s *Session) broadcastLocked(v quiz.View) {
	for ch := range s.subs {
		select {
		case ch <- v:
		default:
			log.Debug().Str("gameId", s.game.ID).Msg("subscriber lagging, view dropped")
		}
	}
}

func (s *Session) roundLocked() Round {
	return Round{
		GameID:  s.game.ID,
		Round:   s.round,
		Player:  s.player,
		Variant: s.game.Variant,
		Total:   len(s.game.Regions),
	}
}

func (s *Session) finishedLocked() *Round {
	r := s.roundLocked()
	r.Summary, _ = s.game.Summary()
	return &r
}
