package models

import "time"

// Result is the single record kept per (student, course) pair.
type Result struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	SubmissionID string    `db:"submission_id" json:"submission_id"`
	Score        float64   `db:"score" json:"score"`
	Grade        string    `db:"grade" json:"grade"`
	GradePoint   float64   `db:"grade_point" json:"grade_point"`
	Remarks      *string   `db:"remarks" json:"remarks,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ResultDetail joins a result with the course attributes used for aggregation.
type ResultDetail struct {
	Result
	CourseCode   string `db:"course_code" json:"course_code"`
	CourseTitle  string `db:"course_title" json:"course_title"`
	Credits      int    `db:"credits" json:"credits"`
	Semester     string `db:"semester" json:"semester"`
	AcademicYear string `db:"academic_year" json:"academic_year"`
}

// AffectedStudent links a result owner to the account that receives notifications.
type AffectedStudent struct {
	StudentID string `db:"student_id" json:"student_id"`
	UserID    string `db:"user_id" json:"user_id"`
}
