package models

import "time"

// Credit weight bounds of a course offering.
const (
	MinCredits = 1
	MaxCredits = 6
)

// ValidCredits reports whether n is an allowed credit weight.
func ValidCredits(n int) bool {
	return n >= MinCredits && n <= MaxCredits
}

// Course is a course offering for one semester of an academic year.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	Title        string    `db:"title" json:"title"`
	Credits      int       `db:"credits" json:"credits"`
	Semester     string    `db:"semester" json:"semester"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CourseStatistics summarises approved results of a course.
type CourseStatistics struct {
	CourseID          string         `json:"course_id"`
	CourseCode        string         `json:"course_code"`
	TotalResults      int            `json:"total_results"`
	AverageScore      float64        `json:"average_score"`
	HighestScore      float64        `json:"highest_score"`
	LowestScore       float64        `json:"lowest_score"`
	GradeDistribution map[string]int `json:"grade_distribution"`
}
