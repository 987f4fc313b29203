package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/filetrackhq/filetrack-api/internal/models"
	"github.com/filetrackhq/filetrack-api/pkg/jobs"
)

// Publisher hands events to the delivery channel. Publish is fire-and-forget:
// it never blocks the caller's transaction and never propagates delivery
// failures.
type Publisher interface {
	Publish(event models.NotificationEvent)
}

// NopPublisher drops all events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(models.NotificationEvent) {}

// DeliverySink is the external delivery channel boundary.
type DeliverySink interface {
	Deliver(ctx context.Context, event models.NotificationEvent) error
}

// DeliverySinkFunc allows using plain functions.
type DeliverySinkFunc func(ctx context.Context, event models.NotificationEvent) error

// Deliver implements DeliverySink.
func (f DeliverySinkFunc) Deliver(ctx context.Context, event models.NotificationEvent) error {
	return f(ctx, event)
}

// NotificationService fans events out through an in-memory worker queue.
// Enqueue failures and delivery failures are logged, not retried inline, so
// state transitions stay durable even when the channel is down.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NotificationServiceConfig tunes the dispatch queue.
type NotificationServiceConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

// NewNotificationService constructs the dispatcher around the sink.
func NewNotificationService(sink DeliverySink, logger *zap.Logger, cfg NotificationServiceConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{logger: logger}
	handler := func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.NotificationEvent)
		if !ok {
			logger.Warn("notification job carried unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		return sink.Deliver(ctx, event)
	}
	svc.queue = jobs.NewQueue("notifications", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return svc
}

// Start begins dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Publish implements Publisher.
func (s *NotificationService) Publish(event models.NotificationEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Priority == "" {
		event.Priority = models.NotificationNormal
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(event.Type),
		Payload: event,
	})
	if err != nil {
		s.logger.Warn("notification dropped",
			zap.String("type", string(event.Type)),
			zap.String("user_id", event.UserID),
			zap.Error(err))
	}
}
