package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/database"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/grading"
	"github.com/noah-isme/sma-results-api/pkg/scoresheet"
	"github.com/noah-isme/sma-results-api/pkg/storage"
)

// StudentLockNamespace scopes advisory locks that serialize writes per student.
const StudentLockNamespace = "student"

// GradeResolver maps a score onto the institutional grading scale.
type GradeResolver interface {
	Resolve(score float64) (string, float64, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentLister interface {
	ListByCourse(ctx context.Context, exec sqlx.ExtContext, courseID string) ([]models.EnrollmentDetail, error)
}

type resultWriter interface {
	UpsertBatch(ctx context.Context, exec sqlx.ExtContext, results []models.Result) (int, error)
}

type submissionCreator interface {
	Create(ctx context.Context, exec sqlx.ExtContext, submission *models.Submission) error
}

// IngestionService turns an uploaded score file into a pending submission and
// its result records inside one transaction.
type IngestionService struct {
	db          database.TxBeginner
	courses     courseReader
	enrollments enrollmentLister
	results     resultWriter
	submissions submissionCreator
	resolver    GradeResolver
	store       storage.ObjectStore
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	maxFileSize int64
	now         func() time.Time
}

// NewIngestionService constructs the ingestion pipeline. store may be nil to skip archiving.
func NewIngestionService(db database.TxBeginner, courses courseReader, enrollments enrollmentLister, results resultWriter, submissions submissionCreator, resolver GradeResolver, store storage.ObjectStore, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, maxFileSize int64) *IngestionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = grading.NewResolver(nil)
	}
	return &IngestionService{
		db:          db,
		courses:     courses,
		enrollments: enrollments,
		results:     results,
		submissions: submissions,
		resolver:    resolver,
		store:       store,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		maxFileSize: maxFileSize,
		now:         time.Now,
	}
}

// Ingest parses, matches and writes one score file. Parse and validation
// failures abort the whole upload and nothing is written.
func (s *IngestionService) Ingest(ctx context.Context, req dto.IngestRequest) (*dto.IngestionSummary, error) {
	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordIngestion(OutcomeInvalid)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if s.maxFileSize > 0 && int64(len(req.Data)) > s.maxFileSize {
		s.metrics.RecordIngestion(OutcomeInvalid)
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxFileSize))
	}
	format, err := scoresheet.FormatFromFilename(req.FileName)
	if err != nil {
		s.metrics.RecordIngestion(OutcomeInvalid)
		return nil, appErrors.Clone(appErrors.ErrValidation, "only .xlsx and .csv files are accepted")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.InstructorID != req.InstructorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course is not assigned to you")
	}
	if !models.ValidCredits(course.Credits) {
		s.metrics.RecordIngestion(OutcomeInvalid)
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "course credit weight out of range"),
			appErrors.RowIssue{Field: "credits", Constraint: fmt.Sprintf("between %d and %d", models.MinCredits, models.MaxCredits)})
	}

	totalRows, candidates, discarded, err := s.readCandidates(req.Data, format)
	if err != nil {
		s.metrics.RecordIngestion(OutcomeParse)
		return nil, err
	}

	fileKey := s.archive(ctx, req, course.ID)

	var summary *dto.IngestionSummary
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		enrollments, err := s.enrollments.ListByCourse(ctx, tx, course.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
		}
		matched, unmatched := MatchRows(candidates, enrollments)

		submission := &models.Submission{
			CourseID:      course.ID,
			InstructorID:  req.InstructorID,
			FileName:      req.FileName,
			FileSize:      int64(len(req.Data)),
			FileKey:       fileKey,
			TotalRows:     totalRows,
			MatchedRows:   len(matched),
			UnmatchedRows: len(unmatched),
			Status:        models.SubmissionStatusPending,
			Priority:      req.Priority,
			Notes:         optionalString(req.Notes),
		}
		if req.ClaimedRows > 0 {
			submission.TotalRows = req.ClaimedRows
		}

		results, err := s.resolve(matched, course.ID)
		if err != nil {
			return err
		}

		studentIDs := make([]string, len(results))
		for i, result := range results {
			studentIDs[i] = result.StudentID
		}
		if err := database.LockKeys(ctx, tx, StudentLockNamespace, studentIDs); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock students")
		}

		if err := s.submissions.Create(ctx, tx, submission); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
		}
		for i := range results {
			results[i].SubmissionID = submission.ID
		}
		written, err := s.results.UpsertBatch(ctx, tx, results)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write results")
		}

		summary = &dto.IngestionSummary{
			Submission: *submission,
			TotalRows:  totalRows,
			Matched:    len(matched),
			Unmatched:  len(unmatched),
			Written:    written,
			Discarded:  append(discarded, unmatched...),
			Message:    fmt.Sprintf("%d of %d rows matched", len(matched), totalRows),
		}
		return nil
	})
	if err != nil {
		s.discardArchive(fileKey)
		if appErrors.HasCode(err, appErrors.ErrValidation.Code) {
			s.metrics.RecordIngestion(OutcomeInvalid)
		} else {
			s.metrics.RecordIngestion(OutcomeFailed)
		}
		return nil, appErrors.FromError(err)
	}

	s.metrics.RecordIngestion(OutcomeAccepted)
	s.metrics.RecordRows(summary.Matched, summary.Unmatched, len(summary.Discarded)-summary.Unmatched)
	s.logger.Info("score file ingested",
		zap.String("submission_id", summary.Submission.ID),
		zap.String("course_id", course.ID),
		zap.Int("rows", totalRows),
		zap.Int("matched", summary.Matched),
		zap.Int("unmatched", summary.Unmatched),
	)
	return summary, nil
}

// readCandidates drains the row iterator, splitting rows into candidates and
// discards. Later rows for the same student replace earlier ones.
func (s *IngestionService) readCandidates(data []byte, format scoresheet.Format) (int, []scoresheet.MatchCandidate, []scoresheet.Discard, error) {
	reader, err := scoresheet.Open(data, format)
	if err != nil {
		return 0, nil, nil, parseFailure(err)
	}
	defer reader.Close()

	total := 0
	var candidates []scoresheet.MatchCandidate
	var discarded []scoresheet.Discard
	for {
		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, nil, nil, parseFailure(err)
		}
		total++
		candidate, discard := scoresheet.Validate(row)
		if discard != nil {
			discarded = append(discarded, *discard)
			continue
		}
		candidates = append(candidates, candidate)
	}
	candidates, duplicates := dedupeCandidates(candidates)
	return total, candidates, append(discarded, duplicates...), nil
}

// resolve grades every matched row, collecting every out-of-range score.
func (s *IngestionService) resolve(matched []MatchedRow, courseID string) ([]models.Result, error) {
	results := make([]models.Result, 0, len(matched))
	var issues []appErrors.RowIssue
	for _, row := range matched {
		grade, point, err := s.resolver.Resolve(row.Candidate.Score)
		if err != nil {
			issues = append(issues, appErrors.RowIssue{Row: row.Candidate.Line, Field: "score", Constraint: err.Error()})
			continue
		}
		results = append(results, models.Result{
			StudentID:  row.Enrollment.StudentID,
			CourseID:   courseID,
			Score:      row.Candidate.Score,
			Grade:      grade,
			GradePoint: point,
			Remarks:    optionalString(row.Candidate.Remarks),
		})
	}
	if len(issues) > 0 {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%d rows have scores outside 0-100", len(issues))), issues...)
	}
	return results, nil
}

func (s *IngestionService) archive(ctx context.Context, req dto.IngestRequest, courseID string) *string {
	if s.store == nil {
		return nil
	}
	key := storage.UploadKey(courseID, req.FileName, s.now())
	if err := s.store.Put(ctx, key, bytes.NewReader(req.Data), int64(len(req.Data))); err != nil {
		s.logger.Warn("failed to archive score file", zap.String("course_id", courseID), zap.Error(err))
		return nil
	}
	return &key
}

func (s *IngestionService) discardArchive(key *string) {
	if s.store == nil || key == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, *key); err != nil {
		s.logger.Warn("failed to remove archived score file", zap.String("key", *key), zap.Error(err))
	}
}

func parseFailure(err error) error {
	var parseErr *scoresheet.ParseError
	if errors.As(err, &parseErr) {
		return appErrors.Wrap(err, appErrors.ErrParse.Code, appErrors.ErrParse.Status, parseErr.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrParse.Code, appErrors.ErrParse.Status, appErrors.ErrParse.Message)
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
