// Package srs implements the SM-2 spaced-repetition schedule used for card reviews.
package srs

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidGrade is returned for grades outside Hard, Medium and Easy.
var ErrInvalidGrade = errors.New("srs: grade must be 1 (hard), 2 (medium), or 3 (easy)")

// Ease factor bounds and the defaults applied to a card that was never reviewed.
const (
	MinEaseFactor     = 1.3
	MaxEaseFactor     = 2.5
	DefaultEaseFactor = MaxEaseFactor
	DefaultInterval   = 1
)

// Grade is the user's self-assessed recall for a review.
type Grade int

const (
	Hard   Grade = 1
	Medium Grade = 2
	Easy   Grade = 3
)

// ParseGrade converts a wire-level quality code into a Grade.
func ParseGrade(v int) (Grade, error) {
	g := Grade(v)
	if !g.Valid() {
		return 0, ErrInvalidGrade
	}
	return g, nil
}

// Valid reports whether g is one of the three accepted grades.
func (g Grade) Valid() bool {
	return g == Hard || g == Medium || g == Easy
}

// Quality maps the grade onto the 0-5 SM-2 quality scale.
func (g Grade) Quality() int {
	switch g {
	case Hard:
		return 2
	case Medium:
		return 3
	case Easy:
		return 5
	}
	return -1
}

func (g Grade) String() string {
	switch g {
	case Hard:
		return "hard"
	case Medium:
		return "medium"
	case Easy:
		return "easy"
	}
	return "invalid"
}

// State is the scheduling portion of a card.
type State struct {
	EaseFactor  float64
	Interval    int
	Repetitions int
	NextReview  time.Time
}

// Next computes the scheduling state that follows a review graded g at time now.
// A grade below quality 3 is a lapse: the streak and interval reset and ease drops by 0.2.
func Next(prior State, g Grade, now time.Time) (State, error) {
	if !g.Valid() {
		return prior, ErrInvalidGrade
	}

	ease := prior.EaseFactor
	if ease == 0 {
		ease = DefaultEaseFactor
	}
	interval := prior.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	reps := max(prior.Repetitions, 0)

	q := float64(g.Quality())
	if q < 3 {
		interval = 1
		reps = 0
		ease = clamp(ease - 0.2)
	} else {
		ease = clamp(ease + (0.1 - (5-q)*(0.08+(5-q)*0.02)))
		switch reps {
		case 0:
			interval = 1
		case 1:
			interval = 6
		default:
			interval = int(math.Round(float64(interval) * ease))
		}
		reps++
	}

	return State{
		EaseFactor:  math.Round(ease*100) / 100,
		Interval:    interval,
		Repetitions: reps,
		NextReview:  now.UTC().AddDate(0, 0, interval),
	}, nil
}

func clamp(ease float64) float64 {
	return math.Max(MinEaseFactor, math.Min(MaxEaseFactor, ease))
}
