package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/service"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type archiveService interface {
	Link(ctx context.Context, submissionID string, actor models.Actor) (*service.FileLink, error)
	Open(ctx context.Context, token string) (*service.ArchivedFile, error)
}

// ArchiveHandler exposes the original score files behind submissions.
type ArchiveHandler struct {
	archive archiveService
}

// NewArchiveHandler constructs the handler.
func NewArchiveHandler(archive archiveService) *ArchiveHandler {
	return &ArchiveHandler{archive: archive}
}

// Link godoc
// @Summary Signed link to the uploaded score file
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/file-link [get]
func (h *ArchiveHandler) Link(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	link, err := h.archive.Link(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download an archived score file
// @Tags Submissions
// @Produce application/octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /files/{token} [get]
func (h *ArchiveHandler) Download(c *gin.Context) {
	file, err := h.archive.Open(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Content.Close()

	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", file.Content, map[string]string{
		"Cache-Control":       "no-store",
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.Filename),
	})
}
