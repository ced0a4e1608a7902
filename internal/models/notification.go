package models

import "time"

// NotificationKind styles a notification in the student portal.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
	NotificationError   NotificationKind = "error"
)

// Notification is an in-app message to one user.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Link      *string          `db:"link" json:"link,omitempty"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// EmailTemplate selects the instructor email body.
type EmailTemplate string

const (
	EmailSubmissionApproved EmailTemplate = "submission-approved"
	EmailSubmissionRejected EmailTemplate = "submission-rejected"
)

// Email is an outbound message rendered from a template.
type Email struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template EmailTemplate     `json:"template"`
	Params   map[string]string `json:"params"`
}
