package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/service"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type gpaService interface {
	SemesterGPA(ctx context.Context, studentID string, key models.SemesterKey, actor models.Actor) (*models.SemesterGPA, error)
	CGPA(ctx context.Context, studentID string, actor models.Actor) (*models.CGPASummary, error)
	Trend(ctx context.Context, studentID string, actor models.Actor) ([]models.TrendPoint, error)
}

type transcriptService interface {
	Transcript(ctx context.Context, studentID string, actor models.Actor) (*models.Transcript, error)
	TranscriptPDF(ctx context.Context, studentID string, actor models.Actor) (*service.Download, error)
}

// StudentHandler serves approved result read models for a student.
type StudentHandler struct {
	gpa         gpaService
	transcripts transcriptService
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(gpa gpaService, transcripts transcriptService) *StudentHandler {
	return &StudentHandler{gpa: gpa, transcripts: transcripts}
}

// SemesterGPA godoc
// @Summary Semester GPA
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param semester query string true "Semester"
// @Param academicYear query string true "Academic year, e.g. 2023/2024"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/gpa [get]
func (h *StudentHandler) SemesterGPA(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	key := models.SemesterKey{
		Semester:     strings.TrimSpace(c.Query("semester")),
		AcademicYear: strings.TrimSpace(c.Query("academicYear")),
	}
	gpa, err := h.gpa.SemesterGPA(c.Request.Context(), c.Param("id"), key, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gpa, nil)
}

// CGPA godoc
// @Summary Cumulative GPA
// @Description Returns the CGPA computed from approved results next to the stored value.
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/cgpa [get]
func (h *StudentHandler) CGPA(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.gpa.CGPA(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Trend godoc
// @Summary GPA trend across semesters
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/gpa-trend [get]
func (h *StudentHandler) Trend(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	points, err := h.gpa.Trend(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	if points == nil {
		points = []models.TrendPoint{}
	}
	response.JSON(c, http.StatusOK, points, nil)
}

// Transcript godoc
// @Summary Student transcript
// @Tags Students
// @Produce json
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param format query string false "json (default) or pdf"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/transcript [get]
func (h *StudentHandler) Transcript(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	switch strings.ToLower(strings.TrimSpace(c.Query("format"))) {
	case "", "json":
		transcript, err := h.transcripts.Transcript(c.Request.Context(), c.Param("id"), actor)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, transcript, nil)
	case "pdf":
		download, err := h.transcripts.TranscriptPDF(c.Request.Context(), c.Param("id"), actor)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Attachment(c, download.Filename, download.ContentType, download.Data)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be json or pdf"))
	}
}
