package quiz

import (
	"fmt"
	"time"
)

// ClockWarningAt is the remaining time, in seconds, at which the clock turns red.
const ClockWarningAt = 10

// View is the JSON snapshot of the UI surface for one game.
type View struct {
	GameID         string       `json:"gameId"`
	Variant        Variant      `json:"variant"`
	Status         Status       `json:"status"`
	Reason         Reason       `json:"reason,omitempty"`
	Score          int          `json:"score"`
	ScoreText      string       `json:"scoreText"`
	Lives          *int         `json:"lives,omitempty"`    // lives variant only
	TimeLeft       *int         `json:"timeLeft,omitempty"` // timed variant only
	Clock          string       `json:"clock,omitempty"`
	ClockWarning   bool         `json:"clockWarning,omitempty"`
	Question       string       `json:"question"`
	Feedback       string       `json:"feedback"`
	FeedbackKind   FeedbackKind `json:"feedbackKind,omitempty"`
	RestartVisible bool         `json:"restartVisible"`
	Guessed        []string     `json:"guessed"`
	Remaining      int          `json:"remaining"`
	Total          int          `json:"total"`
	LayerVersion   int          `json:"layerVersion"`
}

// View captures the current UI state. The returned value shares nothing with g.
func (g *Game) View() View {
	v := View{
		GameID:         g.ID,
		Variant:        g.Variant,
		Status:         g.Status(),
		Reason:         g.Reason,
		Score:          g.Score,
		ScoreText:      fmt.Sprintf("Score: %d", g.Score),
		Question:       g.Question,
		Feedback:       g.Feedback,
		FeedbackKind:   g.FeedbackKind,
		RestartVisible: g.RestartVisible,
		Guessed:        append([]string{}, g.Guessed...),
		Remaining:      g.Remaining(),
		Total:          len(g.Regions),
		LayerVersion:   g.LayerVersion,
	}
	switch g.Variant {
	case VariantLives:
		lives := g.Lives
		v.Lives = &lives
	case VariantTimed:
		left := g.TimeLeft
		v.TimeLeft = &left
		v.Clock = FormatClock(g.TimeLeft)
		v.ClockWarning = g.TimeLeft <= ClockWarningAt
	}
	return v
}

// FormatClock renders seconds as zero-padded mm:ss ("01:30").
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Summary describes a finished game for persistence and events.
type Summary struct {
	GameID     string
	Variant    Variant
	Score      int
	Total      int
	Reason     Reason
	Elapsed    time.Duration
	StartedAt  time.Time
	FinishedAt time.Time
}

// Summary returns the result of a finished game; ok is false while playing.
func (g *Game) Summary() (s Summary, ok bool) {
	if !g.Over {
		return Summary{}, false
	}
	return Summary{
		GameID:     g.ID,
		Variant:    g.Variant,
		Score:      g.Score,
		Total:      len(g.Regions),
		Reason:     g.Reason,
		Elapsed:    g.FinishedAt.Sub(g.StartedAt),
		StartedAt:  g.StartedAt,
		FinishedAt: g.FinishedAt,
	}, true
}
