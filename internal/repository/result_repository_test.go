package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
)

func TestResultRepositoryUpsertBatchInTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectBegin()
	for _, student := range []string{"stu-1", "stu-2"} {
		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, course_id) DO UPDATE")).
			WithArgs(sqlmock.AnyArg(), student, "course-1", "sub-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	results := []models.Result{
		{StudentID: "stu-1", CourseID: "course-1", SubmissionID: "sub-1", Score: 92, Grade: "A", GradePoint: 4},
		{StudentID: "stu-2", CourseID: "course-1", SubmissionID: "sub-1", Score: 77, Grade: "B", GradePoint: 3},
	}
	written, err := repo.UpsertBatch(context.Background(), tx, results)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 2, written)
	assert.NotEmpty(t, results[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpsertBatchStopsOnError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectExec("INSERT INTO results").WillReturnError(errors.New("boom"))

	written, err := repo.UpsertBatch(context.Background(), nil, []models.Result{{StudentID: "stu-1"}, {StudentID: "stu-2"}})
	require.Error(t, err)
	assert.Equal(t, 0, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryListApprovedByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "submission_id", "score", "grade", "grade_point", "remarks", "created_at", "updated_at", "course_code", "course_title", "credits", "semester", "academic_year"}).
		AddRow("r-1", "stu-1", "c-1", "sub-1", 92.0, "A", 4.0, nil, time.Now(), time.Now(), "CS101", "Intro", 3, "First", "2023/2024")
	mock.ExpectQuery(regexp.QuoteMeta("JOIN result_submissions rs ON rs.id = r.submission_id AND rs.status = 'approved' WHERE r.student_id = $1 ORDER BY c.academic_year ASC, c.semester ASC")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	results, err := repo.ListApprovedByStudent(context.Background(), nil, "stu-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].Credits)
	assert.Equal(t, "First", results[0].Semester)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryListAffectedStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.submission_id = $1")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "user_id"}).AddRow("stu-1", "user-1").AddRow("stu-2", "user-2"))

	students, err := repo.ListAffectedStudents(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, []models.AffectedStudent{{StudentID: "stu-1", UserID: "user-1"}, {StudentID: "stu-2", UserID: "user-2"}}, students)
	assert.NoError(t, mock.ExpectationsWereMet())
}
