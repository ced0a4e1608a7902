package dto

// CreateCourseRequest captures POST /courses payload. Lecturers always own the
// courses they create; admins name the instructor.
type CreateCourseRequest struct {
	Code         string `json:"code" validate:"required,max=20"`
	Title        string `json:"title" validate:"required,max=200"`
	Credits      int    `json:"credits" validate:"required,min=1,max=6"`
	Semester     string `json:"semester" validate:"required,max=20"`
	AcademicYear string `json:"academic_year" validate:"required,max=20"`
	InstructorID string `json:"instructor_id" validate:"omitempty,max=64"`
}
