package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type submissionStore interface {
	FindByID(ctx context.Context, id string) (*models.SubmissionDetail, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionDetail, int, error)
	Counts(ctx context.Context, instructorID string) (models.SubmissionCounts, error)
	Decide(ctx context.Context, exec sqlx.ExtContext, submission *models.Submission) error
}

// SubmissionService owns the submission lifecycle:
// pending -> approved | rejected, each decision made exactly once.
type SubmissionService struct {
	repo      submissionStore
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(repo submissionStore, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{repo: repo, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// Get returns a submission. Lecturers only see their own.
func (s *SubmissionService) Get(ctx context.Context, id string, actor models.Actor) (*models.SubmissionDetail, error) {
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleLecturer && detail.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another lecturer")
	}
	return detail, nil
}

// List returns a page of submissions with status counts.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter, actor models.Actor) (*dto.SubmissionListResponse, *models.Pagination, error) {
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown submission status")
	}
	if actor.Role == models.RoleLecturer {
		filter.InstructorID = actor.UserID
	}
	submissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	counts, err := s.repo.Counts(ctx, filter.InstructorID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count submissions")
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	if submissions == nil {
		submissions = []models.SubmissionDetail{}
	}
	return &dto.SubmissionListResponse{Submissions: submissions, Counts: counts},
		&models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Approve moves a pending submission to approved.
func (s *SubmissionService) Approve(ctx context.Context, id string, actor models.Actor, req dto.ApproveRequest) (*models.SubmissionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	return s.decide(ctx, id, actor, models.SubmissionStatusApproved, "", req.Notes)
}

// Reject moves a pending submission to rejected. A reason is required.
func (s *SubmissionService) Reject(ctx context.Context, id string, actor models.Actor, req dto.RejectRequest) (*models.SubmissionDetail, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required")
	}
	return s.decide(ctx, id, actor, models.SubmissionStatusRejected, req.Reason, req.Notes)
}

func (s *SubmissionService) decide(ctx context.Context, id string, actor models.Actor, to models.SubmissionStatus, reason, notes string) (*models.SubmissionDetail, error) {
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(detail.Submission, to, actor.UserID, s.now().UTC(), reason, notes)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Decide(ctx, nil, &next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// another reviewer decided first
			return nil, appErrors.Clone(appErrors.ErrStateTransition, "submission is no longer pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
	}
	s.metrics.RecordTransition(string(to))
	s.logger.Info("submission decided",
		zap.String("submission_id", id),
		zap.String("status", string(to)),
		zap.String("actor", actor.UserID),
	)
	detail.Submission = next
	return detail, nil
}

func (s *SubmissionService) load(ctx context.Context, id string) (*models.SubmissionDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return detail, nil
}

// Transition applies a decision to a submission without side effects. Only
// pending submissions can be decided; the input is never modified.
func Transition(current models.Submission, to models.SubmissionStatus, actorID string, at time.Time, reason, notes string) (models.Submission, error) {
	if current.Status.Terminal() {
		return current, appErrors.Clone(appErrors.ErrStateTransition, fmt.Sprintf("submission already %s", current.Status))
	}
	if current.Status != models.SubmissionStatusPending {
		return current, appErrors.Clone(appErrors.ErrStateTransition,
			fmt.Sprintf("cannot move submission from %s to %s", current.Status, to))
	}
	next := current
	switch to {
	case models.SubmissionStatusApproved:
		next.RejectionReason = nil
	case models.SubmissionStatusRejected:
		r := strings.TrimSpace(reason)
		if r == "" {
			return current, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
		}
		next.RejectionReason = &r
	default:
		return current, appErrors.Clone(appErrors.ErrStateTransition, fmt.Sprintf("cannot move submission to %s", to))
	}
	approver := actorID
	decidedAt := at
	next.Status = to
	next.ApprovedBy = &approver
	next.ApprovedAt = &decidedAt
	if n := optionalString(notes); n != nil {
		next.Notes = n
	}
	return next, nil
}

func validStatus(status models.SubmissionStatus) bool {
	switch status {
	case models.SubmissionStatusDraft, models.SubmissionStatusPending, models.SubmissionStatusApproved, models.SubmissionStatusRejected:
		return true
	}
	return false
}
