package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type courseCreator interface {
	Create(ctx context.Context, course *models.Course) error
}

// CourseService registers course offerings.
type CourseService struct {
	repo      courseCreator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseCreator, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// Create validates and stores a course offering. Credit weights outside
// [MinCredits, MaxCredits] are rejected.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest, actor models.Actor) (*models.Course, error) {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Title = strings.TrimSpace(req.Title)
	req.Semester = strings.TrimSpace(req.Semester)
	req.AcademicYear = strings.TrimSpace(req.AcademicYear)
	if actor.Role == models.RoleLecturer {
		req.InstructorID = actor.UserID
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, courseValidationError(err)
	}
	if req.InstructorID == "" {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "instructor_id is required"),
			appErrors.RowIssue{Field: "instructor_id", Constraint: "required"})
	}

	course := &models.Course{
		Code:         req.Code,
		Title:        req.Title,
		Credits:      req.Credits,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		InstructorID: req.InstructorID,
		Active:       true,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("code", course.Code),
		zap.String("actor", actor.UserID),
	)
	return course, nil
}

var courseFields = map[string]string{
	"Code":         "code",
	"Title":        "title",
	"Credits":      "credits",
	"Semester":     "semester",
	"AcademicYear": "academic_year",
	"InstructorID": "instructor_id",
}

func courseValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	issues := make([]appErrors.RowIssue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		constraint := fe.Tag()
		if fe.Param() != "" {
			constraint = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		if fe.Field() == "Credits" {
			constraint = fmt.Sprintf("between %d and %d", models.MinCredits, models.MaxCredits)
		}
		field, ok := courseFields[fe.Field()]
		if !ok {
			field = strings.ToLower(fe.Field())
		}
		issues = append(issues, appErrors.RowIssue{Field: field, Constraint: constraint})
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid course payload"), issues...)
}
