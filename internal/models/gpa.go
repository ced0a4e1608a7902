package models

import "time"

// SemesterKey identifies a semester within an academic year.
type SemesterKey struct {
	Semester     string `json:"semester"`
	AcademicYear string `json:"academic_year"`
}

// Label renders the "semester academicYear" grouping used in transcripts.
func (k SemesterKey) Label() string {
	return k.Semester + " " + k.AcademicYear
}

// SemesterGPA is the credit-weighted grade point average of one semester.
type SemesterGPA struct {
	SemesterKey
	GPA          float64 `json:"gpa"`
	TotalCredits int     `json:"total_credits"`
	CourseCount  int     `json:"course_count"`
}

// TrendPoint is one semester on a student's GPA trend.
type TrendPoint struct {
	SemesterKey
	Label string  `json:"label"`
	GPA   float64 `json:"gpa"`
}

// CGPASummary reports the computed and cached cumulative averages.
type CGPASummary struct {
	StudentID     string     `json:"student_id"`
	CGPA          float64    `json:"cgpa"`
	CachedCGPA    float64    `json:"cached_cgpa"`
	CachedAt      *time.Time `json:"cached_at,omitempty"`
	SemesterCount int        `json:"semester_count"`
}

// TranscriptSemester groups approved results under one semester.
type TranscriptSemester struct {
	SemesterGPA
	Label   string         `json:"label"`
	Results []ResultDetail `json:"results"`
}

// Transcript is a student's approved academic record.
type Transcript struct {
	Student      Student              `json:"student"`
	Semesters    []TranscriptSemester `json:"semesters"`
	CGPA         float64              `json:"cgpa"`
	TotalCredits int                  `json:"total_credits"`
	GeneratedAt  time.Time            `json:"generated_at"`
}
