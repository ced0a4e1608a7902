package scoresheet

import (
	"math"
	"strconv"
	"strings"
)

// DiscardReason explains why a parsed row cannot become a result.
type DiscardReason string

const (
	DiscardMissingScore    DiscardReason = "score missing"
	DiscardNonNumericScore DiscardReason = "score not numeric"
	DiscardDuplicate       DiscardReason = "superseded by a later row for the same student"
	DiscardNotEnrolled     DiscardReason = "student not enrolled in course"
)

// MatchCandidate is a well-formed row ready for enrollment matching.
// Score range is checked later by the grade resolver so out-of-range values
// fail the whole upload instead of being skipped.
type MatchCandidate struct {
	Line      int     `json:"line"`
	StudentID string  `json:"student_id"`
	Score     float64 `json:"score"`
	Remarks   string  `json:"remarks,omitempty"`
}

// Discard records a row that was dropped and why.
type Discard struct {
	Line      int           `json:"line"`
	StudentID string        `json:"student_id"`
	Reason    DiscardReason `json:"reason"`
}

// Validate turns a raw row into exactly one of a candidate or a discard.
func Validate(row RawRow) (MatchCandidate, *Discard) {
	if row.Score == nil {
		return MatchCandidate{}, &Discard{Line: row.Line, StudentID: row.StudentID, Reason: DiscardMissingScore}
	}
	score, err := strconv.ParseFloat(strings.TrimSuffix(*row.Score, "%"), 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return MatchCandidate{}, &Discard{Line: row.Line, StudentID: row.StudentID, Reason: DiscardNonNumericScore}
	}
	candidate := MatchCandidate{Line: row.Line, StudentID: row.StudentID, Score: score}
	if row.Remarks != nil {
		candidate.Remarks = *row.Remarks
	}
	return candidate, nil
}
