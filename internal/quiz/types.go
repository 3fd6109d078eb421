// internal/quiz/types.go
//
// Core type definitions for the map quiz engine.
// Defines:
//   - Variant: lives (wrong answers cost a life) or timed (countdown clock).
//   - Outcome: what a single selection did to the game.
//   - Reason: why a game ended.
//   - Game: state for a single in-progress or finished quiz.

package quiz

import (
	"errors"
	"time"
)

// Variant selects the losing condition of a game.
type Variant string

const (
	VariantLives Variant = "lives" // 3 lives, no clock
	VariantTimed Variant = "timed" // 90 second countdown, wrong answers are free
)

// ParseVariant maps user input to a Variant. Empty input means timed.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantTimed:
		return VariantTimed, nil
	case VariantLives:
		return VariantLives, nil
	}
	return "", ErrUnknownVariant
}

// Status is the coarse state machine position.
type Status string

const (
	StatusPlaying  Status = "playing"
	StatusGameOver Status = "game_over"
)

// Reason records why a game ended.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonAllFound   Reason = "all_found"
	ReasonTimeUp     Reason = "time_up"
	ReasonOutOfLives Reason = "out_of_lives"
)

// Outcome is the result of one selection.
type Outcome string

const (
	OutcomeIgnored Outcome = "ignored" // outside any region, already guessed, or game over
	OutcomeCorrect Outcome = "correct"
	OutcomeWrong   Outcome = "wrong"
)

// FeedbackKind tags the feedback line for styling.
type FeedbackKind string

const (
	FeedbackNone    FeedbackKind = ""
	FeedbackCorrect FeedbackKind = "correct"
	FeedbackWrong   FeedbackKind = "wrong"
)

// Style is the fill a region should be rendered with.
type Style string

const (
	StyleDefault Style = "default"
	StyleCorrect Style = "correct"
)

var (
	ErrUnknownVariant = errors.New("unknown variant")
	ErrUnknownRegion  = errors.New("unknown region")
)

// Options tunes the starting resources of a game.
type Options struct {
	Lives    int // starting lives for VariantLives
	Duration int // starting seconds for VariantTimed
}

// DefaultOptions are the classic rules: 3 lives or 90 seconds.
var DefaultOptions = Options{Lives: 3, Duration: 90}

// Game holds the state of a single quiz session.
type Game struct {
	ID      string
	Variant Variant
	Regions []string // every guessable region, dataset order

	Score    int
	Lives    int // VariantLives only
	TimeLeft int // VariantTimed only, seconds

	Guessed []string            // correct names in guess order
	guessed map[string]struct{} // same as Guessed, for lookups
	known   map[string]struct{} // Regions as a set

	Target string // current target; empty after completion
	Over   bool
	Reason Reason

	Question       string
	Feedback       string
	FeedbackKind   FeedbackKind
	RestartVisible bool
	LayerVersion   int // bumped whenever the region layer must be re-styled

	StartedAt  time.Time
	FinishedAt time.Time

	opts   Options
	picker Picker
	now    func() time.Time
}
