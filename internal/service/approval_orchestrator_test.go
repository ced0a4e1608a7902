package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type orchestratorFixture struct {
	orchestrator *ApprovalOrchestrator
	decider      *stubDecider
	recomputer   *stubRecomputer
	publisher    *stubPublisher
	cache        *memoryCache
}

func newOrchestratorFixture(students ...string) *orchestratorFixture {
	affected := make([]models.AffectedStudent, len(students))
	for i, id := range students {
		affected[i] = models.AffectedStudent{StudentID: id, UserID: "user-" + id}
	}
	notes := "checked"
	detail := pendingSubmission("sub-1", "lecturer-1")
	detail.Notes = &notes

	fx := &orchestratorFixture{
		decider:    &stubDecider{detail: detail},
		recomputer: &stubRecomputer{fails: map[string]error{}},
		publisher:  &stubPublisher{},
		cache:      &memoryCache{},
	}
	results := &stubResultRepo{affected: map[string][]models.AffectedStudent{"sub-1": affected}}
	fx.orchestrator = NewApprovalOrchestrator(fx.decider, results, fx.recomputer, fx.publisher,
		NewCacheService(fx.cache, nil, time.Minute, nil, true), nil, ApprovalConfig{Workers: 2, Timeout: time.Second})
	return fx
}

func TestApproveRecomputesAndNotifiesEveryStudent(t *testing.T) {
	fx := newOrchestratorFixture("stu-1", "stu-2", "stu-3")

	detail, err := fx.orchestrator.Approve(context.Background(), "sub-1", adminActor, dto.ApproveRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusApproved, detail.Status)

	assert.ElementsMatch(t, []string{"stu-1", "stu-2", "stu-3"}, fx.recomputer.seen)
	assert.Contains(t, fx.cache.deleted, cache.CoursePattern("course-1"))

	require.Len(t, fx.publisher.notifications, 3)
	n := fx.publisher.notifications[0]
	assert.Equal(t, "user-stu-1", n.UserID)
	assert.Equal(t, "Results Published", n.Title)
	assert.Equal(t, "Your results for Intro to Computing have been published", n.Message)
	assert.Equal(t, models.NotificationSuccess, n.Kind)
	require.NotNil(t, n.Link)
	assert.Equal(t, "/student/results", *n.Link)

	require.Len(t, fx.publisher.emails, 1)
	email := fx.publisher.emails[0]
	assert.Equal(t, "ada@example.edu", email.To)
	assert.Equal(t, models.EmailSubmissionApproved, email.Template)
	assert.Equal(t, "Result Submission Approved", email.Subject)
	assert.Equal(t, "CS101", email.Params["courseCode"])
	assert.Equal(t, "approved", email.Params["status"])
	assert.Equal(t, "checked", email.Params["notes"])
}

func TestApproveSurvivesRecomputeFailure(t *testing.T) {
	fx := newOrchestratorFixture("stu-1", "stu-2")
	fx.recomputer.fails["stu-1"] = errors.New("deadlock detected")

	_, err := fx.orchestrator.Approve(context.Background(), "sub-1", adminActor, dto.ApproveRequest{})
	require.NoError(t, err)
	assert.Len(t, fx.recomputer.seen, 2)
	assert.Len(t, fx.publisher.notifications, 2)
	assert.Len(t, fx.publisher.emails, 1)
}

func TestApproveWithoutStudentsStillEmails(t *testing.T) {
	fx := newOrchestratorFixture()

	_, err := fx.orchestrator.Approve(context.Background(), "sub-1", adminActor, dto.ApproveRequest{})
	require.NoError(t, err)
	assert.Empty(t, fx.recomputer.seen)
	assert.Empty(t, fx.publisher.notifications)
	assert.Len(t, fx.publisher.emails, 1)
}

func TestApproveSurvivesCancelledRequest(t *testing.T) {
	fx := newOrchestratorFixture("stu-1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.orchestrator.Approve(ctx, "sub-1", adminActor, dto.ApproveRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-1"}, fx.recomputer.seen)
}

func TestRejectEmailsReasonAndRefreshesWithdrawnResults(t *testing.T) {
	fx := newOrchestratorFixture("stu-1", "stu-2")

	detail, err := fx.orchestrator.Reject(context.Background(), "sub-1", adminActor, dto.RejectRequest{Reason: "missing rows"})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusRejected, detail.Status)

	assert.ElementsMatch(t, []string{"stu-1", "stu-2"}, fx.recomputer.seen)
	assert.Contains(t, fx.cache.deleted, cache.StudentPattern("stu-1"))
	assert.Contains(t, fx.cache.deleted, cache.StudentPattern("stu-2"))
	assert.Contains(t, fx.cache.deleted, cache.CoursePattern(detail.CourseID))
	assert.Empty(t, fx.publisher.notifications)
	require.Len(t, fx.publisher.emails, 1)
	assert.Equal(t, models.EmailSubmissionRejected, fx.publisher.emails[0].Template)
	assert.Equal(t, "missing rows", fx.publisher.emails[0].Params["reason"])
}

func TestRejectWithoutWrittenResultsOnlyEmails(t *testing.T) {
	fx := newOrchestratorFixture()

	_, err := fx.orchestrator.Reject(context.Background(), "sub-1", adminActor, dto.RejectRequest{Reason: "wrong course"})
	require.NoError(t, err)
	assert.Empty(t, fx.recomputer.seen)
	assert.Len(t, fx.publisher.emails, 1)
}

func TestFailedDecisionHasNoSideEffects(t *testing.T) {
	fx := newOrchestratorFixture("stu-1")
	fx.decider.err = appErrors.Clone(appErrors.ErrStateTransition, "submission is no longer pending")

	_, err := fx.orchestrator.Approve(context.Background(), "sub-1", adminActor, dto.ApproveRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrStateTransition))
	assert.Empty(t, fx.recomputer.seen)
	assert.Empty(t, fx.publisher.notifications)
	assert.Empty(t, fx.publisher.emails)
	assert.Empty(t, fx.cache.deleted)
}
