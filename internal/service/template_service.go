package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/export"
	"github.com/noah-isme/sma-results-api/pkg/scoresheet"
)

// Download is a generated file ready to stream.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypePDF  = "application/pdf"
)

// TemplateService produces blank score sheets prefilled with a course's students.
type TemplateService struct {
	courses     courseReader
	enrollments enrollmentLister
	csv         *export.CSVExporter
	logger      *zap.Logger
}

// NewTemplateService constructs a TemplateService.
func NewTemplateService(courses courseReader, enrollments enrollmentLister, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{courses: courses, enrollments: enrollments, csv: export.NewCSVExporter(), logger: logger}
}

// Generate builds the template in the requested format (xlsx when empty).
func (s *TemplateService) Generate(ctx context.Context, courseID, format string, actor models.Actor) (*Download, error) {
	f := scoresheet.FormatXLSX
	if format != "" {
		parsed, err := scoresheet.ParseFormat(format)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "format must be xlsx or csv")
		}
		f = parsed
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if actor.Role == models.RoleLecturer && course.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course is not assigned to you")
	}

	enrollments, err := s.enrollments.ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	eligible := EligibleEnrollments(enrollments)

	download := &Download{Filename: scoresheet.TemplateFilename(course.Code, f)}
	switch f {
	case scoresheet.FormatCSV:
		rows := make([][]string, len(eligible))
		for i, e := range eligible {
			rows[i] = []string{e.StudentNumber, e.StudentName}
		}
		data, err := s.csv.Render(export.Dataset{Headers: scoresheet.TemplateHeaders, Rows: rows})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render template")
		}
		download.ContentType = contentTypeCSV
		download.Data = data
	default:
		rows := make([]scoresheet.TemplateRow, len(eligible))
		for i, e := range eligible {
			rows[i] = scoresheet.TemplateRow{StudentID: e.StudentNumber, StudentName: e.StudentName}
		}
		var buf bytes.Buffer
		if err := scoresheet.WriteXLSXTemplate(&buf, rows); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render template")
		}
		download.ContentType = contentTypeXLSX
		download.Data = buf.Bytes()
	}
	s.logger.Debug("template generated", zap.String("course_id", courseID), zap.String("format", string(f)), zap.Int("students", len(eligible)))
	return download, nil
}
