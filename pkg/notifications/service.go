package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/storekit/storekit/pkg/logger"
	"github.com/storekit/storekit/pkg/queue"
)

// TaskSendNotification is the queue task name of delivery jobs.
const TaskSendNotification = "notification:send"

// SendJob is the queued delivery job payload. It carries the complete
// notification, id included, so the worker needs no further lookups and a
// retried job persists under the same id.
type SendJob struct {
	Notification Notification `json:"notification"`
}

// TaskEnqueuer is the slice of the queue enqueuer the service uses.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) (*queue.Task, error)
}

// Receipt tells the submitter which path its notification took.
type Receipt struct {
	ID     string `json:"id"`
	Queued bool   `json:"queued"`
}

// Service accepts notifications and sees them through to persistence and
// delivery. The preferred path is enqueue-first: the notification becomes a
// durable queue job and the worker persists and delivers it with retries.
// When no queue is wired, or submission fails, the service falls back to
// doing both synchronously and tells the caller so via the receipt.
type Service struct {
	storage   Storage
	deliverer Deliverer
	enqueuer  TaskEnqueuer
	log       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEnqueuer wires the durable delivery path.
func WithEnqueuer(enqueuer TaskEnqueuer) ServiceOption {
	return func(s *Service) {
		s.enqueuer = enqueuer
	}
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates a notification service. A nil deliverer disables
// real-time delivery but keeps persistence working.
func NewService(storage Storage, deliverer Deliverer, opts ...ServiceOption) (*Service, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if deliverer == nil {
		deliverer = NoOpDeliverer{}
	}

	s := &Service{
		storage:   storage,
		deliverer: deliverer,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send validates and submits a notification. Defaults are applied before
// submission: a fresh id, type info, priority normal, creation time now.
func (s *Service) Send(ctx context.Context, notif Notification) (Receipt, error) {
	if err := notif.Validate(); err != nil {
		return Receipt{}, err
	}

	if notif.ID == "" {
		notif.ID = uuid.New().String()
	}
	if notif.Type == "" {
		notif.Type = TypeInfo
	}
	if notif.Priority == "" {
		notif.Priority = PriorityNormal
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}

	if s.enqueuer != nil {
		_, err := s.enqueuer.Enqueue(ctx, SendJob{Notification: notif},
			queue.WithTaskName(TaskSendNotification),
			queue.WithDedupKey(notif.ID))
		if err == nil {
			return Receipt{ID: notif.ID, Queued: true}, nil
		}

		// A broken queue backend must not lose the notification; fall
		// through to the synchronous path and tell the caller.
		s.log.Warn("queue unavailable, sending notification synchronously",
			slog.String("notification_id", notif.ID),
			logger.UserID(notif.UserID),
			logger.Error(err))
	}

	if err := s.deliver(ctx, notif); err != nil {
		return Receipt{}, err
	}
	return Receipt{ID: notif.ID, Queued: false}, nil
}

// List returns notifications for a user, newest first.
func (s *Service) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	return s.storage.List(ctx, userID, opts)
}

// MarkRead marks notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	return s.storage.MarkRead(ctx, userID, notifIDs...)
}

// CountUnread returns the unread notification count for a user.
func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.storage.CountUnread(ctx, userID)
}

// SendHandler returns the queue handler executing delivery jobs: persist
// first (an upsert, so re-execution cannot duplicate), then emit. Either
// failure fails the task and the queue retries it.
func (s *Service) SendHandler() queue.Handler {
	return queue.NewNamedTaskHandler(TaskSendNotification,
		func(ctx context.Context, task *queue.Task, job SendJob) error {
			return s.deliver(ctx, job.Notification)
		})
}

func (s *Service) deliver(ctx context.Context, notif Notification) error {
	if err := s.storage.Save(ctx, notif); err != nil {
		return err
	}
	if err := s.deliverer.Deliver(ctx, notif); err != nil {
		return err
	}

	s.log.Info("notification delivered",
		slog.String("notification_id", notif.ID),
		logger.UserID(notif.UserID),
		slog.String("type", string(notif.Type)))
	return nil
}
