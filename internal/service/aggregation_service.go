package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/cache"
	"github.com/noah-isme/sma-results-api/pkg/database"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/grading"
)

// CheckCredits rejects a result history that references a course whose credit
// weight lies outside [models.MinCredits, models.MaxCredits].
func CheckCredits(results []models.ResultDetail) error {
	var issues []appErrors.RowIssue
	seen := make(map[string]bool)
	for _, r := range results {
		if models.ValidCredits(r.Credits) || seen[r.CourseID] {
			continue
		}
		seen[r.CourseID] = true
		issues = append(issues, appErrors.RowIssue{
			Field:      "credits",
			Constraint: fmt.Sprintf("course %s has %d credits, allowed %d to %d", r.CourseCode, r.Credits, models.MinCredits, models.MaxCredits),
		})
	}
	if len(issues) == 0 {
		return nil
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "course credit weight out of range"), issues...)
}

// SemesterGPA is the credit weighted mean of grade points, rounded to two
// decimals. Credits are expected to have passed CheckCredits; results without
// credits contribute nothing and no credits yields 0.
func SemesterGPA(results []models.ResultDetail) float64 {
	var points float64
	var credits int
	for _, r := range results {
		if r.Credits <= 0 {
			continue
		}
		points += r.GradePoint * float64(r.Credits)
		credits += r.Credits
	}
	if credits == 0 {
		return 0
	}
	return grading.Round2(points / float64(credits))
}

// GroupBySemester computes one SemesterGPA per (academic year, semester),
// ordered by academic year then semester.
func GroupBySemester(results []models.ResultDetail) []models.SemesterGPA {
	groups := make(map[models.SemesterKey][]models.ResultDetail)
	for _, r := range results {
		key := models.SemesterKey{Semester: r.Semester, AcademicYear: r.AcademicYear}
		groups[key] = append(groups[key], r)
	}
	semesters := make([]models.SemesterGPA, 0, len(groups))
	for key, group := range groups {
		credits := 0
		for _, r := range group {
			credits += r.Credits
		}
		semesters = append(semesters, models.SemesterGPA{
			SemesterKey:  key,
			GPA:          SemesterGPA(group),
			TotalCredits: credits,
			CourseCount:  len(group),
		})
	}
	sort.Slice(semesters, func(i, j int) bool {
		return semesterLess(semesters[i].SemesterKey, semesters[j].SemesterKey)
	})
	return semesters
}

// CumulativeGPA is the unweighted mean of already rounded semester GPAs,
// rounded again to two decimals. No semesters yields 0.
func CumulativeGPA(semesters []models.SemesterGPA) float64 {
	if len(semesters) == 0 {
		return 0
	}
	var sum float64
	for _, s := range semesters {
		sum += s.GPA
	}
	return grading.Round2(sum / float64(len(semesters)))
}

// Trend lists semester GPAs in chronological order.
func Trend(semesters []models.SemesterGPA) []models.TrendPoint {
	points := make([]models.TrendPoint, len(semesters))
	for i, s := range semesters {
		points[i] = models.TrendPoint{SemesterKey: s.SemesterKey, Label: s.Label(), GPA: s.GPA}
	}
	return points
}

func semesterLess(a, b models.SemesterKey) bool {
	if a.AcademicYear != b.AcademicYear {
		return a.AcademicYear < b.AcademicYear
	}
	return a.Semester < b.Semester
}

type approvedResultReader interface {
	ListApprovedByStudent(ctx context.Context, exec sqlx.ExtContext, studentID string) ([]models.ResultDetail, error)
}

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateCGPA(ctx context.Context, exec sqlx.ExtContext, id string, cgpa float64, at time.Time) error
}

// AggregationService serves GPA read models and recomputes cached CGPA.
type AggregationService struct {
	db       database.TxBeginner
	results  approvedResultReader
	students studentStore
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewAggregationService constructs an AggregationService.
func NewAggregationService(db database.TxBeginner, results approvedResultReader, students studentStore, cacheSvc *CacheService, metrics *MetricsService, logger *zap.Logger) *AggregationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregationService{db: db, results: results, students: students, cache: cacheSvc, metrics: metrics, logger: logger, now: time.Now}
}

// Student loads a student the actor may read. Students only see themselves.
func (s *AggregationService) Student(ctx context.Context, id string, actor models.Actor) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if actor.Role == models.RoleStudent && student.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own results")
	}
	return student, nil
}

// SemesterGPA returns the GPA of one semester from approved results.
func (s *AggregationService) SemesterGPA(ctx context.Context, studentID string, key models.SemesterKey, actor models.Actor) (*models.SemesterGPA, error) {
	if key.Semester == "" || key.AcademicYear == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester and academicYear are required")
	}
	if _, err := s.Student(ctx, studentID, actor); err != nil {
		return nil, err
	}
	results, err := s.approved(ctx, studentID)
	if err != nil {
		return nil, err
	}
	for _, semester := range GroupBySemester(results) {
		if semester.SemesterKey == key {
			return &semester, nil
		}
	}
	return &models.SemesterGPA{SemesterKey: key}, nil
}

// CGPA computes the cumulative average and reports the cached value beside it.
func (s *AggregationService) CGPA(ctx context.Context, studentID string, actor models.Actor) (*models.CGPASummary, error) {
	student, err := s.Student(ctx, studentID, actor)
	if err != nil {
		return nil, err
	}
	results, err := s.approved(ctx, studentID)
	if err != nil {
		return nil, err
	}
	semesters := GroupBySemester(results)
	return &models.CGPASummary{
		StudentID:     studentID,
		CGPA:          CumulativeGPA(semesters),
		CachedCGPA:    student.CGPA,
		CachedAt:      student.CGPAUpdatedAt,
		SemesterCount: len(semesters),
	}, nil
}

// Trend returns the student's GPA per semester, served from cache when possible.
func (s *AggregationService) Trend(ctx context.Context, studentID string, actor models.Actor) ([]models.TrendPoint, error) {
	if _, err := s.Student(ctx, studentID, actor); err != nil {
		return nil, err
	}
	key := cache.Key("student", studentID, "trend")
	var points []models.TrendPoint
	if s.cache.Get(ctx, key, &points) {
		return points, nil
	}
	results, err := s.approved(ctx, studentID)
	if err != nil {
		return nil, err
	}
	points = Trend(GroupBySemester(results))
	s.cache.Set(ctx, key, points, 0)
	return points, nil
}

// RecomputeCGPA rebuilds and stores a student's cached CGPA. The read of
// approved results and the write happen under the student's advisory lock.
func (s *AggregationService) RecomputeCGPA(ctx context.Context, studentID string) (cgpa float64, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveRecompute(err, time.Since(start)) }()

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := database.LockKeys(ctx, tx, StudentLockNamespace, []string{studentID}); err != nil {
			return err
		}
		results, err := s.results.ListApprovedByStudent(ctx, tx, studentID)
		if err != nil {
			return err
		}
		if err := CheckCredits(results); err != nil {
			return err
		}
		cgpa = CumulativeGPA(GroupBySemester(results))
		return s.students.UpdateCGPA(ctx, tx, studentID, cgpa, s.now().UTC())
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if errors.Is(err, appErrors.ErrValidation) {
			return 0, err
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute cgpa")
	}
	s.cache.InvalidateStudent(ctx, studentID)
	s.logger.Debug("cgpa recomputed", zap.String("student_id", studentID), zap.Float64("cgpa", cgpa))
	return cgpa, nil
}

func (s *AggregationService) approved(ctx context.Context, studentID string) ([]models.ResultDetail, error) {
	results, err := s.results.ListApprovedByStudent(ctx, nil, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}
	if err := CheckCredits(results); err != nil {
		return nil, err
	}
	return results, nil
}
