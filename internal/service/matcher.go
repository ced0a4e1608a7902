package service

import (
	"strings"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/scoresheet"
)

// MatchedRow pairs a score row with the enrollment it belongs to.
type MatchedRow struct {
	Candidate  scoresheet.MatchCandidate
	Enrollment models.EnrollmentDetail
}

// MatchRows resolves candidates against a course's enrollments by exact
// equality on the canonical student number. Dropped enrollments never match.
// Rows that do not match are returned as discards and are not fatal.
func MatchRows(candidates []scoresheet.MatchCandidate, enrollments []models.EnrollmentDetail) ([]MatchedRow, []scoresheet.Discard) {
	index := make(map[string]models.EnrollmentDetail, len(enrollments))
	for _, enrollment := range enrollments {
		if !enrollment.Status.Eligible() {
			continue
		}
		index[strings.TrimSpace(enrollment.StudentNumber)] = enrollment
	}

	matched := make([]MatchedRow, 0, len(candidates))
	var unmatched []scoresheet.Discard
	for _, candidate := range candidates {
		enrollment, ok := index[candidate.StudentID]
		if !ok {
			unmatched = append(unmatched, scoresheet.Discard{Line: candidate.Line, StudentID: candidate.StudentID, Reason: scoresheet.DiscardNotEnrolled})
			continue
		}
		matched = append(matched, MatchedRow{Candidate: candidate, Enrollment: enrollment})
	}
	return matched, unmatched
}

// EligibleEnrollments filters out dropped enrollments.
func EligibleEnrollments(enrollments []models.EnrollmentDetail) []models.EnrollmentDetail {
	eligible := make([]models.EnrollmentDetail, 0, len(enrollments))
	for _, enrollment := range enrollments {
		if enrollment.Status.Eligible() {
			eligible = append(eligible, enrollment)
		}
	}
	return eligible
}

// dedupeCandidates keeps the last row per student id and discards earlier ones.
func dedupeCandidates(candidates []scoresheet.MatchCandidate) ([]scoresheet.MatchCandidate, []scoresheet.Discard) {
	last := make(map[string]int, len(candidates))
	for i, candidate := range candidates {
		last[candidate.StudentID] = i
	}
	kept := make([]scoresheet.MatchCandidate, 0, len(last))
	var discarded []scoresheet.Discard
	for i, candidate := range candidates {
		if last[candidate.StudentID] != i {
			discarded = append(discarded, scoresheet.Discard{Line: candidate.Line, StudentID: candidate.StudentID, Reason: scoresheet.DiscardDuplicate})
			continue
		}
		kept = append(kept, candidate)
	}
	return kept, discarded
}
