package models

import "time"

// SubmissionStatus is the approval lifecycle of a result batch.
type SubmissionStatus string

// Draft is reserved and never produced by ingestion.
const (
	SubmissionStatusDraft    SubmissionStatus = "draft"
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusApproved || s == SubmissionStatusRejected
}

// SubmissionPriority is informational only.
type SubmissionPriority string

const (
	PriorityLow    SubmissionPriority = "low"
	PriorityNormal SubmissionPriority = "normal"
	PriorityMedium SubmissionPriority = "medium"
	PriorityHigh   SubmissionPriority = "high"
	PriorityUrgent SubmissionPriority = "urgent"
)

// Submission is one uploaded score file awaiting or past review.
type Submission struct {
	ID              string             `db:"id" json:"id"`
	CourseID        string             `db:"course_id" json:"course_id"`
	InstructorID    string             `db:"instructor_id" json:"instructor_id"`
	FileName        string             `db:"file_name" json:"file_name"`
	FileSize        int64              `db:"file_size" json:"file_size"`
	FileKey         *string            `db:"file_key" json:"file_key,omitempty"`
	TotalRows       int                `db:"total_rows" json:"total_rows"`
	MatchedRows     int                `db:"matched_rows" json:"matched_rows"`
	UnmatchedRows   int                `db:"unmatched_rows" json:"unmatched_rows"`
	Status          SubmissionStatus   `db:"status" json:"status"`
	Priority        SubmissionPriority `db:"priority" json:"priority"`
	ApprovedBy      *string            `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time         `db:"approved_at" json:"approved_at,omitempty"`
	RejectionReason *string            `db:"rejection_reason" json:"rejection_reason,omitempty"`
	Notes           *string            `db:"notes" json:"notes,omitempty"`
	SubmittedAt     time.Time          `db:"submitted_at" json:"submitted_at"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
}

// SubmissionDetail adds course context for listings and notifications.
type SubmissionDetail struct {
	Submission
	CourseCode      string `db:"course_code" json:"course_code"`
	CourseTitle     string `db:"course_title" json:"course_title"`
	InstructorName  string `db:"instructor_name" json:"instructor_name"`
	InstructorEmail string `db:"instructor_email" json:"instructor_email"`
}

// SubmissionFilter scopes submission listings.
type SubmissionFilter struct {
	Status       SubmissionStatus
	CourseID     string
	InstructorID string
	Page         int
	PageSize     int
	SortOrder    string
}

// SubmissionCounts feeds the instructor dashboard.
type SubmissionCounts struct {
	Pending  int `db:"pending" json:"pending"`
	Approved int `db:"approved" json:"approved"`
	Rejected int `db:"rejected" json:"rejected"`
}
