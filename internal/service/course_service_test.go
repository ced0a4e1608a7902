package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type recordingCourseRepo struct {
	created []*models.Course
	err     error
}

func (r *recordingCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if r.err != nil {
		return r.err
	}
	course.ID = "course-9"
	r.created = append(r.created, course)
	return nil
}

func validCourseRequest(credits int) dto.CreateCourseRequest {
	return dto.CreateCourseRequest{
		Code:         " cs201 ",
		Title:        "Data Structures",
		Credits:      credits,
		Semester:     "1",
		AcademicYear: "2026/2027",
		InstructorID: "lecturer-1",
	}
}

func TestCourseCreateRejectsCreditsOutsideRange(t *testing.T) {
	for _, credits := range []int{0, -1, 7, 12} {
		repo := &recordingCourseRepo{}
		svc := NewCourseService(repo, nil, nil)

		_, err := svc.Create(context.Background(), validCourseRequest(credits), adminActor)

		require.ErrorIs(t, err, appErrors.ErrValidation, "credits %d", credits)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		require.Len(t, appErr.Details, 1)
		assert.Equal(t, "credits", appErr.Details[0].Field)
		assert.Equal(t, "between 1 and 6", appErr.Details[0].Constraint)
		assert.Empty(t, repo.created)
	}
}

func TestCourseCreateAcceptsCreditBounds(t *testing.T) {
	for _, credits := range []int{models.MinCredits, models.MaxCredits} {
		repo := &recordingCourseRepo{}
		svc := NewCourseService(repo, nil, nil)

		course, err := svc.Create(context.Background(), validCourseRequest(credits), adminActor)

		require.NoError(t, err)
		assert.Equal(t, credits, course.Credits)
		assert.Equal(t, "CS201", course.Code)
		assert.True(t, course.Active)
	}
}

func TestCourseCreateLecturerOwnsCourse(t *testing.T) {
	repo := &recordingCourseRepo{}
	svc := NewCourseService(repo, nil, nil)
	req := validCourseRequest(3)
	req.InstructorID = "lecturer-2"

	course, err := svc.Create(context.Background(), req, models.Actor{UserID: "lecturer-1", Role: models.RoleLecturer})

	require.NoError(t, err)
	assert.Equal(t, "lecturer-1", course.InstructorID)
	require.Len(t, repo.created, 1)
}

func TestCourseCreateAdminMustNameInstructor(t *testing.T) {
	repo := &recordingCourseRepo{}
	svc := NewCourseService(repo, nil, nil)
	req := validCourseRequest(3)
	req.InstructorID = ""

	_, err := svc.Create(context.Background(), req, adminActor)

	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, repo.created)
}

func TestCourseCreateRepositoryFailure(t *testing.T) {
	svc := NewCourseService(&recordingCourseRepo{err: errors.New("connection reset")}, nil, nil)

	_, err := svc.Create(context.Background(), validCourseRequest(3), adminActor)

	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
