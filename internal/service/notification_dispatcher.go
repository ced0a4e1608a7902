package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/jobs"
	"github.com/noah-isme/sma-results-api/pkg/mailer"
)

// Delivery channels.
const (
	ChannelNotification = "notification"
	ChannelEmail        = "email"
)

// NotificationSink persists in-app notifications.
type NotificationSink interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Mailer delivers rendered emails.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// NotificationDispatcher delivers notifications and emails in the background.
// Publishing never blocks and never fails the caller; failures are logged and counted.
type NotificationDispatcher struct {
	queue   *jobs.Queue
	sink    NotificationSink
	mailer  Mailer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationDispatcher wires the delivery queue. mail may be nil when SMTP is not configured.
func NewNotificationDispatcher(sink NotificationSink, mail Mailer, metrics *MetricsService, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &NotificationDispatcher{sink: sink, mailer: mail, metrics: metrics, logger: logger}
	cfg.Logger = logger
	cfg.OnDrop = d.dropped
	d.queue = jobs.NewQueue("notifications", d.handle, cfg)
	return d
}

// Start launches the delivery workers.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop waits for running deliveries. Buffered ones are lost.
func (d *NotificationDispatcher) Stop() {
	d.queue.Stop()
}

// Notify queues an in-app notification.
func (d *NotificationDispatcher) Notify(notification models.Notification) {
	d.publish(ChannelNotification, notification)
}

// Email queues an email.
func (d *NotificationDispatcher) Email(email models.Email) {
	if d.mailer == nil {
		d.logger.Info("email delivery disabled, skipping", zap.String("to", email.To), zap.String("subject", email.Subject))
		return
	}
	d.publish(ChannelEmail, email)
}

func (d *NotificationDispatcher) publish(channel string, payload interface{}) {
	err := d.queue.TryEnqueue(jobs.Job{Type: channel, Payload: payload})
	if err == nil {
		return
	}
	d.metrics.RecordDelivery(channel, err)
	if errors.Is(err, jobs.ErrQueueFull) {
		d.logger.Warn("delivery queue full, dropping", zap.String("channel", channel))
		return
	}
	d.logger.Error("failed to queue delivery", zap.String("channel", channel), zap.Error(err))
}

func (d *NotificationDispatcher) handle(ctx context.Context, job jobs.Job) error {
	switch payload := job.Payload.(type) {
	case models.Notification:
		if err := d.sink.Create(ctx, &payload); err != nil {
			return appErrors.Wrap(err, appErrors.ErrDelivery.Code, appErrors.ErrDelivery.Status, fmt.Sprintf("store notification for %s", payload.UserID))
		}
	case models.Email:
		msg := mailer.Message{To: payload.To, Subject: payload.Subject, Template: string(payload.Template), Params: payload.Params}
		if err := d.mailer.Send(ctx, msg); err != nil {
			return appErrors.Wrap(err, appErrors.ErrDelivery.Code, appErrors.ErrDelivery.Status, fmt.Sprintf("send email to %s", payload.To))
		}
	default:
		d.logger.Error("unknown delivery payload", zap.String("type", job.Type))
		return nil
	}
	d.metrics.RecordDelivery(job.Type, nil)
	return nil
}

func (d *NotificationDispatcher) dropped(job jobs.Job, err error) {
	d.metrics.RecordDelivery(job.Type, err)
	d.logger.Error("delivery failed after retries",
		zap.String("channel", job.Type),
		zap.String("job_id", job.ID),
		zap.Int("attempts", job.Attempt),
		zap.Error(err),
	)
}
