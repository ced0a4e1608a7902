package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

func newTxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

type stubCourseRepo struct {
	courses map[string]*models.Course
}

func (s *stubCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := s.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type stubEnrollmentRepo struct {
	byCourse map[string][]models.EnrollmentDetail
}

func (s *stubEnrollmentRepo) ListByCourse(ctx context.Context, exec sqlx.ExtContext, courseID string) ([]models.EnrollmentDetail, error) {
	return s.byCourse[courseID], nil
}

type stubResultRepo struct {
	mu       sync.Mutex
	records  map[string]models.Result
	approved map[string][]models.ResultDetail
	affected map[string][]models.AffectedStudent
	byCourse map[string][]models.ResultDetail
	err      error
}

func (s *stubResultRepo) UpsertBatch(ctx context.Context, exec sqlx.ExtContext, results []models.Result) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = make(map[string]models.Result)
	}
	for _, r := range results {
		s.records[r.StudentID+"/"+r.CourseID] = r
	}
	return len(results), nil
}

func (s *stubResultRepo) ListApprovedByStudent(ctx context.Context, exec sqlx.ExtContext, studentID string) ([]models.ResultDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.approved[studentID], nil
}

func (s *stubResultRepo) ListApprovedByCourse(ctx context.Context, courseID string) ([]models.ResultDetail, error) {
	return s.byCourse[courseID], nil
}

func (s *stubResultRepo) ListAffectedStudents(ctx context.Context, submissionID string) ([]models.AffectedStudent, error) {
	return s.affected[submissionID], nil
}

type stubSubmissionRepo struct {
	mu      sync.Mutex
	items   map[string]*models.SubmissionDetail
	created []models.Submission
	filter  models.SubmissionFilter
}

func (s *stubSubmissionRepo) Create(ctx context.Context, exec sqlx.ExtContext, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = "sub-new"
	}
	s.created = append(s.created, *submission)
	return nil
}

func (s *stubSubmissionRepo) FindByID(ctx context.Context, id string) (*models.SubmissionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *item
	return &clone, nil
}

func (s *stubSubmissionRepo) List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionDetail, int, error) {
	s.filter = filter
	var out []models.SubmissionDetail
	for _, item := range s.items {
		if filter.InstructorID != "" && item.InstructorID != filter.InstructorID {
			continue
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (s *stubSubmissionRepo) Counts(ctx context.Context, instructorID string) (models.SubmissionCounts, error) {
	var counts models.SubmissionCounts
	for _, item := range s.items {
		switch item.Status {
		case models.SubmissionStatusPending:
			counts.Pending++
		case models.SubmissionStatusApproved:
			counts.Approved++
		case models.SubmissionStatusRejected:
			counts.Rejected++
		}
	}
	return counts, nil
}

// Decide mirrors the guarded UPDATE: only pending rows change.
func (s *stubSubmissionRepo) Decide(ctx context.Context, exec sqlx.ExtContext, submission *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[submission.ID]
	if !ok || item.Status != models.SubmissionStatusPending {
		return sql.ErrNoRows
	}
	item.Submission = *submission
	return nil
}

type stubStudentRepo struct {
	mu       sync.Mutex
	students map[string]*models.Student
	updates  map[string]float64
}

func (s *stubStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.students[id]; ok {
		clone := *st
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubStudentRepo) UpdateCGPA(ctx context.Context, exec sqlx.ExtContext, id string, cgpa float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[id]; !ok {
		return sql.ErrNoRows
	}
	if s.updates == nil {
		s.updates = make(map[string]float64)
	}
	s.updates[id] = cgpa
	s.students[id].CGPA = cgpa
	return nil
}

type stubDecider struct {
	detail *models.SubmissionDetail
	err    error
}

func (s *stubDecider) Approve(ctx context.Context, id string, actor models.Actor, req dto.ApproveRequest) (*models.SubmissionDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	d := *s.detail
	d.Status = models.SubmissionStatusApproved
	return &d, nil
}

func (s *stubDecider) Reject(ctx context.Context, id string, actor models.Actor, req dto.RejectRequest) (*models.SubmissionDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	d := *s.detail
	d.Status = models.SubmissionStatusRejected
	return &d, nil
}

type stubRecomputer struct {
	mu    sync.Mutex
	seen  []string
	fails map[string]error
}

func (s *stubRecomputer) RecomputeCGPA(ctx context.Context, studentID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, studentID)
	if err := s.fails[studentID]; err != nil {
		return 0, err
	}
	return 3.5, nil
}

type stubPublisher struct {
	mu            sync.Mutex
	notifications []models.Notification
	emails        []models.Email
}

func (s *stubPublisher) Notify(n models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
}

func (s *stubPublisher) Email(e models.Email) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = append(s.emails, e)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
	gets    int
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	payload, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = payload
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pattern)
	return nil
}
