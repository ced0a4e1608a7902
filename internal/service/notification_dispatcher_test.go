package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/jobs"
	"github.com/noah-isme/sma-results-api/pkg/mailer"
)

type recordingSink struct {
	mu       sync.Mutex
	stored   []models.Notification
	failures int
}

func (s *recordingSink) Create(ctx context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("db unavailable")
	}
	s.stored = append(s.stored, *notification)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func startDispatcher(t *testing.T, sink NotificationSink, mail Mailer, metrics *MetricsService, maxRetries int) *NotificationDispatcher {
	t.Helper()
	d := NewNotificationDispatcher(sink, mail, metrics, nil, jobs.QueueConfig{
		Workers:    2,
		BufferSize: 16,
		MaxRetries: maxRetries,
		RetryDelay: 5 * time.Millisecond,
	})
	d.Start(context.Background())
	t.Cleanup(d.Stop)
	return d
}

func TestDispatcherDeliversNotificationsAndEmails(t *testing.T) {
	sink := &recordingSink{}
	mail := &recordingMailer{}
	metrics := NewMetricsService()
	d := startDispatcher(t, sink, mail, metrics, 0)

	d.Notify(models.Notification{UserID: "user-1", Title: "Results Published", Kind: models.NotificationSuccess})
	d.Email(models.Email{To: "ada@example.edu", Subject: "Result Submission Approved", Template: models.EmailSubmissionApproved, Params: map[string]string{"courseCode": "CS101"}})

	require.Eventually(t, func() bool { return sink.count() == 1 && mail.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, mailer.TemplateSubmissionApproved, mail.sent[0].Template)
	assert.Equal(t, "CS101", mail.sent[0].Params["courseCode"])
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.deliveries.WithLabelValues(ChannelEmail)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDispatcherRetriesFailedNotification(t *testing.T) {
	sink := &recordingSink{failures: 2}
	d := startDispatcher(t, sink, nil, nil, 3)

	d.Notify(models.Notification{UserID: "user-1", Title: "Results Published"})

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestDispatcherCountsDroppedEmail(t *testing.T) {
	metrics := NewMetricsService()
	mail := &recordingMailer{err: errors.New("smtp: 421 service not available")}
	d := startDispatcher(t, &recordingSink{}, mail, metrics, 1)

	d.Email(models.Email{To: "ada@example.edu", Template: models.EmailSubmissionRejected})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.deliveryFailures.WithLabelValues(ChannelEmail)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, mail.count())
}

func TestDispatcherSkipsEmailWithoutMailer(t *testing.T) {
	metrics := NewMetricsService()
	d := startDispatcher(t, &recordingSink{}, nil, metrics, 0)

	d.Email(models.Email{To: "ada@example.edu"})

	assert.Equal(t, 0, d.queue.Pending())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.deliveryFailures.WithLabelValues(ChannelEmail)))
}

func TestDispatcherNotStartedDoesNotBlock(t *testing.T) {
	metrics := NewMetricsService()
	d := NewNotificationDispatcher(&recordingSink{}, nil, metrics, nil, jobs.QueueConfig{})

	d.Notify(models.Notification{UserID: "user-1"})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.deliveryFailures.WithLabelValues(ChannelNotification)))
}
