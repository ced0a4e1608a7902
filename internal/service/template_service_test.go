package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/scoresheet"
)

func newTemplateFixture() *TemplateService {
	courses := &stubCourseRepo{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", Code: "CS101", InstructorID: "lecturer-1"},
	}}
	enrollments := &stubEnrollmentRepo{byCourse: map[string][]models.EnrollmentDetail{
		"course-1": {
			enrollment("stu-1", "CS/2021/001", models.EnrollmentStatusActive),
			enrollment("stu-2", "CS/2021/002", models.EnrollmentStatusDropped),
			enrollment("stu-3", "CS/2021/003", models.EnrollmentStatusCompleted),
		},
	}}
	return NewTemplateService(courses, enrollments, nil)
}

func TestTemplateCSVListsEligibleStudents(t *testing.T) {
	svc := newTemplateFixture()

	download, err := svc.Generate(context.Background(), "course-1", "csv", models.Actor{UserID: "lecturer-1", Role: models.RoleLecturer})
	require.NoError(t, err)
	assert.Equal(t, "CS101_Results_Template.csv", download.Filename)
	assert.Equal(t, contentTypeCSV, download.ContentType)

	lines := strings.Split(strings.TrimSpace(string(download.Data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student ID,Student Name,Score,Remarks", lines[0])
	assert.Equal(t, "CS/2021/001,Student CS/2021/001,,", lines[1])
	assert.Equal(t, "CS/2021/003,Student CS/2021/003,,", lines[2])
}

func TestTemplateXLSXUploadsBackUnchanged(t *testing.T) {
	svc := newTemplateFixture()

	download, err := svc.Generate(context.Background(), "course-1", "", adminActor)
	require.NoError(t, err)
	assert.Equal(t, "CS101_Results_Template.xlsx", download.Filename)
	assert.Equal(t, contentTypeXLSX, download.ContentType)

	reader, err := scoresheet.Open(download.Data, scoresheet.FormatXLSX)
	require.NoError(t, err)
	defer reader.Close()
	rows, err := scoresheet.ReadAll(reader)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CS/2021/001", rows[0].StudentID)
	assert.Nil(t, rows[0].Score)
}

func TestTemplateRejectsOtherLecturersAndFormats(t *testing.T) {
	svc := newTemplateFixture()

	_, err := svc.Generate(context.Background(), "course-1", "xlsx", models.Actor{UserID: "lecturer-2", Role: models.RoleLecturer})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Generate(context.Background(), "course-1", "pdf", adminActor)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Generate(context.Background(), "course-9", "csv", adminActor)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
