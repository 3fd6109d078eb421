// internal/quiz/engine.go
//
// Core game engine for a single map quiz session.
// Responsibilities:
//   - Pick the next target uniformly among regions not yet guessed.
//   - Evaluate selections against the target (score, lives, feedback).
//   - Count down the clock in the timed variant.
//   - Track state transitions: playing → game over, and restart back to playing.
//
// Notes:
//   - The engine is a plain state machine; it never blocks and owns no
//     goroutines. Callers serialize calls (see internal/session).
//   - Text fields (Question, Feedback) are the UI surface the client renders.
package quiz

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New constructs a game over regions and selects the first target.
// Zero fields in opts take DefaultOptions values; a nil picker uses crypto/rand.
func New(variant Variant, regions []string, opts Options, p Picker) *Game {
	if opts.Lives <= 0 {
		opts.Lives = DefaultOptions.Lives
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultOptions.Duration
	}
	if p == nil {
		p = CryptoPicker{}
	}
	g := &Game{
		ID:      uuid.NewString(),
		Variant: variant,
		Regions: append([]string(nil), regions...),
		known:   make(map[string]struct{}, len(regions)),
		opts:    opts,
		picker:  p,
		now:     time.Now,
	}
	for _, r := range regions {
		g.known[r] = struct{}{}
	}
	g.reset()
	return g
}

// Select evaluates a click on the region called name.
//
// Ignored (no state change): game over, empty name (click outside any
// region), or a region that was already guessed. A name outside the
// dataset returns ErrUnknownRegion.
func (g *Game) Select(name string) (Outcome, error) {
	if g.Over || name == "" {
		return OutcomeIgnored, nil
	}
	if _, ok := g.known[name]; !ok {
		return OutcomeIgnored, ErrUnknownRegion
	}
	if _, done := g.guessed[name]; done {
		return OutcomeIgnored, nil
	}

	if name == g.Target {
		g.Score++
		g.Guessed = append(g.Guessed, name)
		g.guessed[name] = struct{}{}
		g.Feedback, g.FeedbackKind = "Correct!", FeedbackCorrect
		g.LayerVersion++
		g.nextTurn()
		return OutcomeCorrect, nil
	}

	if g.Variant == VariantLives {
		g.Lives--
		if g.Lives <= 0 {
			g.Lives = 0
			g.end(ReasonOutOfLives, fmt.Sprintf("Out of lives! That was %s, the answer was %s.", name, g.Target))
			return OutcomeWrong, nil
		}
	}
	g.Feedback, g.FeedbackKind = "Wrong! That was "+name, FeedbackWrong
	return OutcomeWrong, nil
}

// Tick advances the clock by one second. It reports whether this tick ended
// the game. Lives games and finished games ignore ticks.
func (g *Game) Tick() bool {
	if g.Over || g.Variant != VariantTimed {
		return false
	}
	g.TimeLeft--
	if g.TimeLeft <= 0 {
		g.TimeLeft = 0
		g.end(ReasonTimeUp, "Time's Up!")
		return true
	}
	return false
}

// Restart resets every field to its starting value and picks a new target.
func (g *Game) Restart() { g.reset() }

// Status reports the state machine position.
func (g *Game) Status() Status {
	if g.Over {
		return StatusGameOver
	}
	return StatusPlaying
}

// Style is the per-feature style callback: guessed regions render green.
func (g *Game) Style(name string) Style {
	if _, ok := g.guessed[name]; ok {
		return StyleCorrect
	}
	return StyleDefault
}

// Styles evaluates Style for every region, keyed by name.
func (g *Game) Styles() map[string]Style {
	out := make(map[string]Style, len(g.Regions))
	for _, r := range g.Regions {
		out[r] = g.Style(r)
	}
	return out
}

// IsGuessed reports whether name was correctly identified this game.
func (g *Game) IsGuessed(name string) bool {
	_, ok := g.guessed[name]
	return ok
}

// Remaining is the number of regions still to find.
func (g *Game) Remaining() int { return len(g.Regions) - len(g.Guessed) }

func (g *Game) reset() {
	g.Score = 0
	g.Lives, g.TimeLeft = 0, 0
	switch g.Variant {
	case VariantLives:
		g.Lives = g.opts.Lives
	case VariantTimed:
		g.TimeLeft = g.opts.Duration
	}
	g.Guessed = []string{}
	g.guessed = make(map[string]struct{}, len(g.Regions))
	g.Target = ""
	g.Over, g.Reason = false, ReasonNone
	g.Question = ""
	g.Feedback, g.FeedbackKind = "", FeedbackNone
	g.RestartVisible = false
	g.LayerVersion++
	g.StartedAt, g.FinishedAt = g.now(), time.Time{}
	g.nextTurn()
}

// nextTurn picks a random unguessed region, or ends the game when none remain.
func (g *Game) nextTurn() {
	available := make([]string, 0, g.Remaining())
	for _, r := range g.Regions {
		if _, ok := g.guessed[r]; !ok {
			available = append(available, r)
		}
	}
	if len(available) == 0 {
		g.Target = ""
		g.end(ReasonAllFound, "You Win! All found.")
		return
	}
	g.Target = available[g.picker.IntN(len(available))]
	g.Question = "Find: " + g.Target
}

// end is the one-way transition to game over.
func (g *Game) end(reason Reason, message string) {
	g.Over, g.Reason = true, reason
	g.FinishedAt = g.now()
	g.Question = "GAME OVER"
	g.Feedback = fmt.Sprintf("%s Final Score: %d", message, g.Score)
	g.FeedbackKind = FeedbackWrong
	if reason == ReasonAllFound {
		g.FeedbackKind = FeedbackCorrect
	}
	g.RestartVisible = true
}
