package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a student with the display fields of its user account.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT s.id, s.user_id, s.student_number, u.full_name, u.email, s.program, s.department, s.cgpa, s.cgpa_updated_at, s.created_at, s.updated_at
FROM students s JOIN users u ON u.id = s.user_id
WHERE s.id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListIDsWithResults returns the students holding at least one result.
func (r *StudentRepository) ListIDsWithResults(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT student_id FROM results ORDER BY student_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list students with results: %w", err)
	}
	return ids, nil
}

// UpdateCGPA stores the recomputed cumulative average.
func (r *StudentRepository) UpdateCGPA(ctx context.Context, exec sqlx.ExtContext, id string, cgpa float64, at time.Time) error {
	const query = `UPDATE students SET cgpa = $1, cgpa_updated_at = $2, updated_at = $2 WHERE id = $3`
	res, err := executor(r.db, exec).ExecContext(ctx, query, cgpa, at, id)
	if err != nil {
		return fmt.Errorf("update student cgpa: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check cgpa update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
