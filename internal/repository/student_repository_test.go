package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentRepositoryUpdateCGPA(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET cgpa = $1, cgpa_updated_at = $2, updated_at = $2 WHERE id = $3")).
		WithArgs(3.22, at, "stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateCGPA(context.Background(), nil, "stu-1", 3.22, at))

	mock.ExpectExec("UPDATE students SET cgpa").
		WithArgs(3.0, at, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateCGPA(context.Background(), nil, "missing", 3.0, at), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "student_number", "full_name", "email", "program", "department", "cgpa", "cgpa_updated_at", "created_at", "updated_at"}).
		AddRow("stu-1", "user-1", "STU001", "Ada", "ada@example.com", "CS", "Computing", 3.5, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM students s JOIN users u ON u.id = s.user_id WHERE s.id = $1")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	student, err := repo.FindByID(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "STU001", student.StudentNumber)
	assert.Equal(t, 3.5, student.CGPA)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListIDsWithResults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT student_id FROM results")).
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("stu-1").AddRow("stu-2"))

	ids, err := repo.ListIDsWithResults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-1", "stu-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
