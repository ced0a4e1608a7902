package dto

import (
	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/scoresheet"
)

// IngestRequest carries one uploaded score file into the pipeline.
type IngestRequest struct {
	CourseID     string                    `validate:"required"`
	FileName     string                    `validate:"required"`
	Data         []byte                    `validate:"required"`
	ClaimedRows  int                       `validate:"gte=0"`
	Priority     models.SubmissionPriority `validate:"omitempty,oneof=low normal medium high urgent"`
	Notes        string                    `validate:"max=2000"`
	InstructorID string                    `validate:"required"`
}

// IngestionSummary is returned after a file has been ingested.
type IngestionSummary struct {
	Submission models.Submission    `json:"submission"`
	TotalRows  int                  `json:"total_rows"`
	Matched    int                  `json:"matched"`
	Unmatched  int                  `json:"unmatched"`
	Written    int                  `json:"written"`
	Discarded  []scoresheet.Discard `json:"discarded,omitempty"`
	Message    string               `json:"message"`
}

// ApproveRequest captures POST /submissions/:id/approve payload.
type ApproveRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// RejectRequest captures POST /submissions/:id/reject payload.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
	Notes  string `json:"notes" validate:"max=2000"`
}

// SubmissionListResponse pairs a page of submissions with dashboard counts.
type SubmissionListResponse struct {
	Submissions []models.SubmissionDetail `json:"submissions"`
	Counts      models.SubmissionCounts   `json:"counts"`
}
