package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/export"
	"github.com/noah-isme/sma-results-api/pkg/grading"
)

var filenameSafe = strings.NewReplacer("/", "-", "\\", "-", " ", "_")

type studentViewer interface {
	Student(ctx context.Context, id string, actor models.Actor) (*models.Student, error)
}

type courseResultReader interface {
	ListApprovedByCourse(ctx context.Context, courseID string) ([]models.ResultDetail, error)
}

// TranscriptService builds read models over approved results: student
// transcripts and course statistics.
type TranscriptService struct {
	students studentViewer
	results  approvedResultReader
	courses  courseReader
	course   courseResultReader
	cache    *CacheService
	pdf      *export.PDFExporter
	logger   *zap.Logger
	now      func() time.Time
}

// NewTranscriptService constructs a TranscriptService.
func NewTranscriptService(students studentViewer, results approvedResultReader, courses courseReader, courseResults courseResultReader, cacheSvc *CacheService, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{
		students: students,
		results:  results,
		courses:  courses,
		course:   courseResults,
		cache:    cacheSvc,
		pdf:      export.NewPDFExporter(),
		logger:   logger,
		now:      time.Now,
	}
}

// Transcript groups a student's approved results by semester.
func (s *TranscriptService) Transcript(ctx context.Context, studentID string, actor models.Actor) (*models.Transcript, error) {
	student, err := s.students.Student(ctx, studentID, actor)
	if err != nil {
		return nil, err
	}
	key := cache.Key("student", studentID, "transcript")
	var transcript models.Transcript
	if s.cache.Get(ctx, key, &transcript) {
		return &transcript, nil
	}

	results, err := s.results.ListApprovedByStudent(ctx, nil, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}
	transcript = BuildTranscript(*student, results, s.now().UTC())
	s.cache.Set(ctx, key, transcript, 0)
	return &transcript, nil
}

// TranscriptPDF renders the transcript as a PDF download.
func (s *TranscriptService) TranscriptPDF(ctx context.Context, studentID string, actor models.Actor) (*Download, error) {
	transcript, err := s.Transcript(ctx, studentID, actor)
	if err != nil {
		return nil, err
	}
	data, err := s.pdf.Render(transcriptDocument(transcript))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}
	return &Download{
		Filename:    fmt.Sprintf("%s_Transcript.pdf", filenameSafe.Replace(transcript.Student.StudentNumber)),
		ContentType: contentTypePDF,
		Data:        data,
	}, nil
}

// CourseStatistics summarises a course's approved results.
func (s *TranscriptService) CourseStatistics(ctx context.Context, courseID string, actor models.Actor) (*models.CourseStatistics, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if actor.Role == models.RoleLecturer && course.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course is not assigned to you")
	}

	key := cache.Key("course", courseID, "statistics")
	var stats models.CourseStatistics
	if s.cache.Get(ctx, key, &stats) {
		return &stats, nil
	}
	results, err := s.course.ListApprovedByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}
	stats = BuildCourseStatistics(*course, results)
	s.cache.Set(ctx, key, stats, 0)
	return &stats, nil
}

// BuildTranscript assembles a transcript from approved results.
func BuildTranscript(student models.Student, results []models.ResultDetail, generatedAt time.Time) models.Transcript {
	bySemester := make(map[models.SemesterKey][]models.ResultDetail)
	for _, r := range results {
		key := models.SemesterKey{Semester: r.Semester, AcademicYear: r.AcademicYear}
		bySemester[key] = append(bySemester[key], r)
	}
	summaries := GroupBySemester(results)
	transcript := models.Transcript{
		Student:     student,
		Semesters:   make([]models.TranscriptSemester, 0, len(summaries)),
		CGPA:        CumulativeGPA(summaries),
		GeneratedAt: generatedAt,
	}
	for _, summary := range summaries {
		transcript.TotalCredits += summary.TotalCredits
		transcript.Semesters = append(transcript.Semesters, models.TranscriptSemester{
			SemesterGPA: summary,
			Label:       summary.Label(),
			Results:     bySemester[summary.SemesterKey],
		})
	}
	return transcript
}

// BuildCourseStatistics computes average, extremes and grade distribution.
func BuildCourseStatistics(course models.Course, results []models.ResultDetail) models.CourseStatistics {
	stats := models.CourseStatistics{
		CourseID:          course.ID,
		CourseCode:        course.Code,
		TotalResults:      len(results),
		GradeDistribution: make(map[string]int),
	}
	if len(results) == 0 {
		return stats
	}
	var sum float64
	stats.HighestScore = math.Inf(-1)
	stats.LowestScore = math.Inf(1)
	for _, r := range results {
		sum += r.Score
		stats.HighestScore = math.Max(stats.HighestScore, r.Score)
		stats.LowestScore = math.Min(stats.LowestScore, r.Score)
		stats.GradeDistribution[r.Grade]++
	}
	stats.AverageScore = grading.Round2(sum / float64(len(results)))
	return stats
}

func transcriptDocument(t *models.Transcript) export.Document {
	doc := export.Document{
		Title: "Academic Transcript",
		Subtitle: []string{
			fmt.Sprintf("Name: %s", t.Student.FullName),
			fmt.Sprintf("Student ID: %s", t.Student.StudentNumber),
			fmt.Sprintf("Program: %s, %s", t.Student.Program, t.Student.Department),
		},
		Summary: []string{
			fmt.Sprintf("Total credits: %d", t.TotalCredits),
			fmt.Sprintf("CGPA: %.2f", t.CGPA),
			fmt.Sprintf("Generated: %s", t.GeneratedAt.Format("2006-01-02 15:04 MST")),
		},
	}
	for _, semester := range t.Semesters {
		rows := make([][]string, len(semester.Results))
		for i, r := range semester.Results {
			rows[i] = []string{
				r.CourseCode,
				r.CourseTitle,
				fmt.Sprintf("%d", r.Credits),
				fmt.Sprintf("%.2f", r.Score),
				r.Grade,
				fmt.Sprintf("%.1f", r.GradePoint),
			}
		}
		doc.Sections = append(doc.Sections, export.Section{
			Heading: semester.Label,
			Table:   export.Dataset{Headers: []string{"Code", "Course", "Credits", "Score", "Grade", "Point"}, Rows: rows},
			Widths:  []float64{25, 85, 20, 20, 20, 20},
			Footer:  fmt.Sprintf("Semester GPA: %.2f (%d credits)", semester.GPA, semester.TotalCredits),
		})
	}
	return doc
}
