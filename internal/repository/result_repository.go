package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// ResultRepository persists per (student, course) result records.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs a ResultRepository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// UpsertBatch writes every result, replacing any existing record for the same
// student and course. It returns the number of records written.
func (r *ResultRepository) UpsertBatch(ctx context.Context, exec sqlx.ExtContext, results []models.Result) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}
	target := executor(r.db, exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO results (id, student_id, course_id, submission_id, score, grade, grade_point, remarks, created_at, updated_at)
VALUES (:id, :student_id, :course_id, :submission_id, :score, :grade, :grade_point, :remarks, :created_at, :updated_at)
ON CONFLICT (student_id, course_id) DO UPDATE
SET submission_id = EXCLUDED.submission_id,
    score = EXCLUDED.score,
    grade = EXCLUDED.grade,
    grade_point = EXCLUDED.grade_point,
    remarks = EXCLUDED.remarks,
    updated_at = EXCLUDED.updated_at`

	written := 0
	for i := range results {
		result := &results[i]
		if result.ID == "" {
			result.ID = uuid.NewString()
		}
		if result.CreatedAt.IsZero() {
			result.CreatedAt = now
		}
		result.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, result); err != nil {
			return written, fmt.Errorf("upsert result for student %s: %w", result.StudentID, err)
		}
		written++
	}
	return written, nil
}

const approvedResultDetail = `SELECT r.id, r.student_id, r.course_id, r.submission_id, r.score, r.grade, r.grade_point, r.remarks, r.created_at, r.updated_at,
c.code AS course_code, c.title AS course_title, c.credits, c.semester, c.academic_year
FROM results r
JOIN courses c ON c.id = r.course_id
JOIN result_submissions rs ON rs.id = r.submission_id AND rs.status = 'approved'`

// ListApprovedByStudent returns the student's results whose submission is approved,
// ordered by academic year then semester.
func (r *ResultRepository) ListApprovedByStudent(ctx context.Context, exec sqlx.ExtContext, studentID string) ([]models.ResultDetail, error) {
	query := approvedResultDetail + `
WHERE r.student_id = $1
ORDER BY c.academic_year ASC, c.semester ASC, c.code ASC`
	var results []models.ResultDetail
	if err := sqlx.SelectContext(ctx, executor(r.db, exec), &results, query, studentID); err != nil {
		return nil, fmt.Errorf("list approved results by student: %w", err)
	}
	return results, nil
}

// ListApprovedByCourse returns the approved results recorded for a course.
func (r *ResultRepository) ListApprovedByCourse(ctx context.Context, courseID string) ([]models.ResultDetail, error) {
	query := approvedResultDetail + `
WHERE r.course_id = $1
ORDER BY r.score DESC`
	var results []models.ResultDetail
	if err := r.db.SelectContext(ctx, &results, query, courseID); err != nil {
		return nil, fmt.Errorf("list approved results by course: %w", err)
	}
	return results, nil
}

// ListAffectedStudents returns the owners of records written by a submission.
func (r *ResultRepository) ListAffectedStudents(ctx context.Context, submissionID string) ([]models.AffectedStudent, error) {
	const query = `SELECT r.student_id, s.user_id
FROM results r JOIN students s ON s.id = r.student_id
WHERE r.submission_id = $1
ORDER BY r.student_id`
	var students []models.AffectedStudent
	if err := r.db.SelectContext(ctx, &students, query, submissionID); err != nil {
		return nil, fmt.Errorf("list affected students: %w", err)
	}
	return students, nil
}
