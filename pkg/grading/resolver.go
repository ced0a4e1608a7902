package grading

import (
	"fmt"
	"math"
)

// OutOfRangeError reports a score outside [0,100].
type OutOfRangeError struct {
	Score float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("score %.2f outside [%.0f,%.0f]", e.Score, MinScore, MaxScore)
}

// Resolver derives grade and grade point from a score using a Scale.
type Resolver struct {
	scale *Scale
}

// NewResolver builds a resolver. A nil scale falls back to DefaultScale.
func NewResolver(scale *Scale) *Resolver {
	if scale == nil {
		scale = DefaultScale()
	}
	return &Resolver{scale: scale}
}

// Scale exposes the configured scale.
func (r *Resolver) Scale() *Scale {
	return r.scale
}

// Resolve returns the letter grade and grade point for score.
// Fractional scores resolve to the highest band whose minimum they reach, so 89.5 is A-.
func (r *Resolver) Resolve(score float64) (string, float64, error) {
	if math.IsNaN(score) || score < MinScore || score > MaxScore {
		return "", 0, &OutOfRangeError{Score: score}
	}
	for _, band := range r.scale.bands {
		if score >= band.Min {
			return band.Grade, band.Point, nil
		}
	}
	// unreachable with a validated scale
	last := r.scale.bands[len(r.scale.bands)-1]
	return last.Grade, last.Point, nil
}
