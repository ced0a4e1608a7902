package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
)

const resultsLink = "/student/results"

type submissionDecider interface {
	Approve(ctx context.Context, id string, actor models.Actor, req dto.ApproveRequest) (*models.SubmissionDetail, error)
	Reject(ctx context.Context, id string, actor models.Actor, req dto.RejectRequest) (*models.SubmissionDetail, error)
}

type affectedStudentLister interface {
	ListAffectedStudents(ctx context.Context, submissionID string) ([]models.AffectedStudent, error)
}

type cgpaRecomputer interface {
	RecomputeCGPA(ctx context.Context, studentID string) (float64, error)
}

type deliveryPublisher interface {
	Notify(notification models.Notification)
	Email(email models.Email)
}

// ApprovalConfig bounds the recomputation fan-out after an approval.
type ApprovalConfig struct {
	Workers int
	Timeout time.Duration
}

// ApprovalOrchestrator runs a decision and then its side effects in order:
// CGPA recomputation, student notifications, instructor email. Side effects
// are best effort and never undo the decision.
type ApprovalOrchestrator struct {
	submissions submissionDecider
	results     affectedStudentLister
	aggregation cgpaRecomputer
	delivery    deliveryPublisher
	cache       *CacheService
	logger      *zap.Logger
	cfg         ApprovalConfig
}

// NewApprovalOrchestrator constructs an ApprovalOrchestrator.
func NewApprovalOrchestrator(submissions submissionDecider, results affectedStudentLister, aggregation cgpaRecomputer, delivery deliveryPublisher, cacheSvc *CacheService, logger *zap.Logger, cfg ApprovalConfig) *ApprovalOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &ApprovalOrchestrator{
		submissions: submissions,
		results:     results,
		aggregation: aggregation,
		delivery:    delivery,
		cache:       cacheSvc,
		logger:      logger,
		cfg:         cfg,
	}
}

// Approve approves a submission, recomputes CGPA for its students and notifies them.
func (o *ApprovalOrchestrator) Approve(ctx context.Context, id string, actor models.Actor, req dto.ApproveRequest) (*models.SubmissionDetail, error) {
	detail, err := o.submissions.Approve(ctx, id, actor, req)
	if err != nil {
		return nil, err
	}

	// the decision is committed; follow-up work must outlive the request
	ctx = context.WithoutCancel(ctx)
	o.cache.InvalidateCourse(ctx, detail.CourseID)

	students, err := o.results.ListAffectedStudents(ctx, detail.ID)
	if err != nil {
		o.logger.Error("failed to list students of approved submission", zap.String("submission_id", detail.ID), zap.Error(err))
	}
	o.recompute(ctx, detail.ID, students)

	courseName := detail.CourseTitle
	if courseName == "" {
		courseName = detail.CourseCode
	}
	link := resultsLink
	for _, student := range students {
		o.delivery.Notify(models.Notification{
			UserID:  student.UserID,
			Title:   "Results Published",
			Message: fmt.Sprintf("Your results for %s have been published", courseName),
			Kind:    models.NotificationSuccess,
			Link:    &link,
		})
	}
	o.delivery.Email(instructorEmail(detail, "Result Submission Approved", models.EmailSubmissionApproved, ""))
	return detail, nil
}

// Reject rejects a submission and emails the instructor the reason. Results
// rewritten by the rejected upload stop counting as approved, so the students
// holding them get their caches dropped and CGPA recomputed.
func (o *ApprovalOrchestrator) Reject(ctx context.Context, id string, actor models.Actor, req dto.RejectRequest) (*models.SubmissionDetail, error) {
	detail, err := o.submissions.Reject(ctx, id, actor, req)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	o.cache.InvalidateCourse(ctx, detail.CourseID)
	students, err := o.results.ListAffectedStudents(ctx, detail.ID)
	if err != nil {
		o.logger.Error("failed to list students of rejected submission", zap.String("submission_id", detail.ID), zap.Error(err))
	}
	if len(students) > 0 {
		ids := make([]string, len(students))
		for i, student := range students {
			ids[i] = student.StudentID
			o.cache.InvalidateStudent(ctx, student.StudentID)
		}
		o.logger.Warn("rejected submission withdrew results from approved history",
			zap.String("submission_id", detail.ID),
			zap.String("course_id", detail.CourseID),
			zap.Strings("student_ids", ids),
		)
		o.recompute(ctx, detail.ID, students)
	}

	o.delivery.Email(instructorEmail(detail, "Result Submission Rejected", models.EmailSubmissionRejected, req.Reason))
	return detail, nil
}

// recompute refreshes CGPA of every affected student on a bounded pool.
// A failure for one student is logged and does not stop the others.
func (o *ApprovalOrchestrator) recompute(ctx context.Context, submissionID string, students []models.AffectedStudent) {
	if len(students) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(o.cfg.Workers)
	for _, student := range students {
		studentID := student.StudentID
		g.Go(func() error {
			if _, err := o.aggregation.RecomputeCGPA(ctx, studentID); err != nil {
				o.logger.Error("cgpa recomputation failed",
					zap.String("submission_id", submissionID),
					zap.String("student_id", studentID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func instructorEmail(detail *models.SubmissionDetail, subject string, template models.EmailTemplate, reason string) models.Email {
	params := map[string]string{
		"instructorName": detail.InstructorName,
		"courseName":     detail.CourseTitle,
		"courseCode":     detail.CourseCode,
		"submissionId":   detail.ID,
		"status":         string(detail.Status),
	}
	if detail.Notes != nil {
		params["notes"] = *detail.Notes
	}
	if reason != "" {
		params["reason"] = reason
	}
	return models.Email{To: detail.InstructorEmail, Subject: subject, Template: template, Params: params}
}
