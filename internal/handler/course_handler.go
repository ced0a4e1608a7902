package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/service"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type courseService interface {
	Create(ctx context.Context, req dto.CreateCourseRequest, actor models.Actor) (*models.Course, error)
}

type templateService interface {
	Generate(ctx context.Context, courseID, format string, actor models.Actor) (*service.Download, error)
}

type courseStatisticsService interface {
	CourseStatistics(ctx context.Context, courseID string, actor models.Actor) (*models.CourseStatistics, error)
}

// CourseHandler serves per-course result tooling.
type CourseHandler struct {
	courses    courseService
	templates  templateService
	statistics courseStatisticsService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(courses courseService, templates templateService, statistics courseStatisticsService) *CourseHandler {
	return &CourseHandler{courses: courses, templates: templates, statistics: statistics}
}

// Create godoc
// @Summary Register a course offering
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Template godoc
// @Summary Download a blank score sheet
// @Tags Courses
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param id path string true "Course ID"
// @Param format query string false "xlsx (default) or csv"
// @Success 200 {file} file
// @Router /courses/{id}/template [get]
func (h *CourseHandler) Template(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	download, err := h.templates.Generate(c.Request.Context(), c.Param("id"), c.Query("format"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, download.Filename, download.ContentType, download.Data)
}

// Statistics godoc
// @Summary Course result statistics
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/statistics [get]
func (h *CourseHandler) Statistics(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.statistics.CourseStatistics(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
