package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByCourse returns every enrollment of a course with the student's
// canonical number, regardless of status.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, exec sqlx.ExtContext, courseID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.status, e.enrolled_at,
s.student_number, u.full_name AS student_name, s.user_id AS student_user_id
FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN users u ON u.id = s.user_id
WHERE e.course_id = $1
ORDER BY s.student_number ASC`
	var enrollments []models.EnrollmentDetail
	if err := sqlx.SelectContext(ctx, executor(r.db, exec), &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return enrollments, nil
}
