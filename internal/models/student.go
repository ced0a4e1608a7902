package models

import "time"

// Student is an enrolled learner. StudentNumber is the canonical identifier
// printed on score sheets.
type Student struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"user_id"`
	StudentNumber string     `db:"student_number" json:"student_number"`
	FullName      string     `db:"full_name" json:"full_name"`
	Email         string     `db:"email" json:"email,omitempty"`
	Program       string     `db:"program" json:"program"`
	Department    string     `db:"department" json:"department"`
	CGPA          float64    `db:"cgpa" json:"cgpa"`
	CGPAUpdatedAt *time.Time `db:"cgpa_updated_at" json:"cgpa_updated_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
