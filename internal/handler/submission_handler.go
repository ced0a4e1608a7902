package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type ingestionService interface {
	Ingest(ctx context.Context, req dto.IngestRequest) (*dto.IngestionSummary, error)
}

type submissionQueries interface {
	Get(ctx context.Context, id string, actor models.Actor) (*models.SubmissionDetail, error)
	List(ctx context.Context, filter models.SubmissionFilter, actor models.Actor) (*dto.SubmissionListResponse, *models.Pagination, error)
}

type approvalService interface {
	Approve(ctx context.Context, id string, actor models.Actor, req dto.ApproveRequest) (*models.SubmissionDetail, error)
	Reject(ctx context.Context, id string, actor models.Actor, req dto.RejectRequest) (*models.SubmissionDetail, error)
}

// multipartOverhead covers form fields and part headers sent next to the file.
const multipartOverhead = 1 << 20

// SubmissionHandler exposes result submission endpoints.
type SubmissionHandler struct {
	ingestion   ingestionService
	submissions submissionQueries
	approvals   approvalService
	maxUpload   int64
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(ingestion ingestionService, submissions submissionQueries, approvals approvalService) *SubmissionHandler {
	return &SubmissionHandler{ingestion: ingestion, submissions: submissions, approvals: approvals}
}

// WithUploadLimit caps the score file size accepted by Upload. Zero disables the cap.
func (h *SubmissionHandler) WithUploadLimit(maxBytes int64) *SubmissionHandler {
	h.maxUpload = maxBytes
	return h
}

// Upload godoc
// @Summary Upload a score file
// @Description Parses the file, matches rows to enrolled students and records a pending submission.
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Param course_id formData string true "Course ID"
// @Param priority formData string false "low, normal, medium, high or urgent"
// @Param notes formData string false "Notes for the reviewer"
// @Param total_students formData int false "Row count declared by the lecturer"
// @Param file formData file true "Score sheet (.xlsx or .csv)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, h.tooLarge())
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	if h.maxUpload > 0 && fileHeader.Size > h.maxUpload {
		response.Error(c, h.tooLarge())
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()
	var reader io.Reader = src
	if h.maxUpload > 0 {
		reader = io.LimitReader(src, h.maxUpload+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
		return
	}
	if h.maxUpload > 0 && int64(len(data)) > h.maxUpload {
		response.Error(c, h.tooLarge())
		return
	}

	req := dto.IngestRequest{
		CourseID:     strings.TrimSpace(c.PostForm("course_id")),
		FileName:     fileHeader.Filename,
		Data:         data,
		Priority:     models.SubmissionPriority(strings.ToLower(strings.TrimSpace(c.PostForm("priority")))),
		Notes:        c.PostForm("notes"),
		InstructorID: actor.UserID,
	}
	if raw := strings.TrimSpace(c.PostForm("total_students")); raw != "" {
		claimed, err := strconv.Atoi(raw)
		if err != nil || claimed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "total_students must be a non-negative integer"))
			return
		}
		req.ClaimedRows = claimed
	}

	summary, err := h.ingestion.Ingest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, summary)
}

// List godoc
// @Summary List result submissions
// @Tags Submissions
// @Produce json
// @Param status query string false "draft, pending, approved or rejected"
// @Param courseId query string false "Course filter"
// @Param instructorId query string false "Instructor filter (admins only)"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Param sortOrder query string false "asc or desc by submission time"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.SubmissionFilter{
		Status:       models.SubmissionStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		CourseID:     strings.TrimSpace(c.Query("courseId")),
		InstructorID: strings.TrimSpace(c.Query("instructorId")),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "pageSize", 20),
		SortOrder:    c.Query("sortOrder"),
	}
	list, pagination, err := h.submissions.List(c.Request.Context(), filter, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, pagination)
}

// Get godoc
// @Summary Get a result submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.submissions.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Approve godoc
// @Summary Approve a pending submission
// @Description Publishes the results, refreshes CGPA of affected students and notifies them.
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.ApproveRequest false "Approval notes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions/{id}/approve [post]
func (h *SubmissionHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ApproveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
			return
		}
	}
	detail, err := h.approvals.Approve(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Reject godoc
// @Summary Reject a pending submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions/{id}/reject [post]
func (h *SubmissionHandler) Reject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required"))
		return
	}
	detail, err := h.approvals.Reject(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

func (h *SubmissionHandler) tooLarge() error {
	return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxUpload))
}
