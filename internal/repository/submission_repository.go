package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// SubmissionRepository persists result submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionDetailSelect = `SELECT rs.id, rs.course_id, rs.instructor_id, rs.file_name, rs.file_size, rs.file_key,
rs.total_rows, rs.matched_rows, rs.unmatched_rows, rs.status, rs.priority, rs.approved_by, rs.approved_at,
rs.rejection_reason, rs.notes, rs.submitted_at, rs.updated_at,
c.code AS course_code, c.title AS course_title, u.full_name AS instructor_name, u.email AS instructor_email
FROM result_submissions rs
JOIN courses c ON c.id = rs.course_id
JOIN users u ON u.id = rs.instructor_id`

// Create inserts a new submission.
func (r *SubmissionRepository) Create(ctx context.Context, exec sqlx.ExtContext, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = now
	}
	submission.UpdatedAt = now
	const query = `INSERT INTO result_submissions (id, course_id, instructor_id, file_name, file_size, file_key, total_rows, matched_rows, unmatched_rows, status, priority, notes, submitted_at, updated_at)
VALUES (:id, :course_id, :instructor_id, :file_name, :file_size, :file_key, :total_rows, :matched_rows, :unmatched_rows, :status, :priority, :notes, :submitted_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(r.db, exec), query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// FindByID fetches a submission with course and instructor context.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.SubmissionDetail, error) {
	var detail models.SubmissionDetail
	if err := r.db.GetContext(ctx, &detail, submissionDetailSelect+` WHERE rs.id = $1`, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns submissions matching the filter, newest first by default.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("rs.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("rs.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("rs.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, size := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("%s%s ORDER BY rs.submitted_at %s LIMIT %d OFFSET %d",
		submissionDetailSelect, clause, sortOrder(filter.SortOrder), size, (page-1)*size)

	var submissions []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM result_submissions rs"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return submissions, total, nil
}

// Counts groups submissions by status, optionally for one instructor.
func (r *SubmissionRepository) Counts(ctx context.Context, instructorID string) (models.SubmissionCounts, error) {
	query := `SELECT
COUNT(*) FILTER (WHERE status = 'pending') AS pending,
COUNT(*) FILTER (WHERE status = 'approved') AS approved,
COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
FROM result_submissions`
	var args []interface{}
	if instructorID != "" {
		query += " WHERE instructor_id = $1"
		args = append(args, instructorID)
	}
	var counts models.SubmissionCounts
	if err := r.db.GetContext(ctx, &counts, query, args...); err != nil {
		return counts, fmt.Errorf("count submissions by status: %w", err)
	}
	return counts, nil
}

// Decide records an approval or rejection. Only a pending submission can be
// decided; otherwise sql.ErrNoRows is returned and nothing changes.
func (r *SubmissionRepository) Decide(ctx context.Context, exec sqlx.ExtContext, submission *models.Submission) error {
	submission.UpdatedAt = time.Now().UTC()
	const query = `UPDATE result_submissions
SET status = :status, approved_by = :approved_by, approved_at = :approved_at,
    rejection_reason = :rejection_reason, notes = COALESCE(:notes, notes), updated_at = :updated_at
WHERE id = :id AND status = 'pending'`
	res, err := sqlx.NamedExecContext(ctx, executor(r.db, exec), query, submission)
	if err != nil {
		return fmt.Errorf("decide submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check submission decision rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
