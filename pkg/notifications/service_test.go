package notifications_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/pkg/notifications"
	"github.com/storekit/storekit/pkg/queue"
)

type mockEnqueuer struct {
	enqueueFunc func(ctx context.Context, payload any, opts ...queue.EnqueueOption) (*queue.Task, error)
	calls       int
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) (*queue.Task, error) {
	m.calls++
	return m.enqueueFunc(ctx, payload, opts...)
}

type recordingDeliverer struct {
	delivered []notifications.Notification
	err       error
}

func (d *recordingDeliverer) Deliver(_ context.Context, notif notifications.Notification) error {
	if d.err != nil {
		return d.err
	}
	d.delivered = append(d.delivered, notif)
	return nil
}

func TestService_SendQueuesWhenQueueAvailable(t *testing.T) {
	t.Parallel()

	store := notifications.NewMemoryStorage()
	deliverer := &recordingDeliverer{}
	enqueuer := &mockEnqueuer{
		enqueueFunc: func(ctx context.Context, payload any, opts ...queue.EnqueueOption) (*queue.Task, error) {
			job, ok := payload.(notifications.SendJob)
			require.True(t, ok)
			assert.NotEmpty(t, job.Notification.ID)
			return &queue.Task{}, nil
		},
	}

	svc, err := notifications.NewService(store, deliverer, notifications.WithEnqueuer(enqueuer))
	require.NoError(t, err)

	receipt, err := svc.Send(context.Background(), notifications.Notification{
		UserID:  "u1",
		Title:   "hello",
		Message: "world",
	})
	require.NoError(t, err)

	assert.True(t, receipt.Queued)
	assert.NotEmpty(t, receipt.ID)
	assert.Equal(t, 1, enqueuer.calls)

	// On the queued path nothing is persisted or delivered yet; the worker
	// does both when it executes the job.
	count, err := store.CountUnread(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, deliverer.delivered)
}

func TestService_SendFallsBackWhenQueueFails(t *testing.T) {
	t.Parallel()

	store := notifications.NewMemoryStorage()
	deliverer := &recordingDeliverer{}
	enqueuer := &mockEnqueuer{
		enqueueFunc: func(ctx context.Context, payload any, opts ...queue.EnqueueOption) (*queue.Task, error) {
			return nil, queue.ErrQueueUnavailable
		},
	}

	svc, err := notifications.NewService(store, deliverer, notifications.WithEnqueuer(enqueuer))
	require.NoError(t, err)

	receipt, err := svc.Send(context.Background(), notifications.Notification{
		UserID:  "u1",
		Title:   "hello",
		Message: "world",
	})
	require.NoError(t, err)

	assert.False(t, receipt.Queued)

	got, err := store.Get(context.Background(), "u1", receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, notifications.TypeInfo, got.Type)
	assert.Equal(t, notifications.PriorityNormal, got.Priority)

	require.Len(t, deliverer.delivered, 1)
	assert.Equal(t, receipt.ID, deliverer.delivered[0].ID)
}

func TestService_SendWithoutQueueIsSynchronous(t *testing.T) {
	t.Parallel()

	store := notifications.NewMemoryStorage()
	deliverer := &recordingDeliverer{}

	svc, err := notifications.NewService(store, deliverer)
	require.NoError(t, err)

	receipt, err := svc.Send(context.Background(), notifications.Notification{
		UserID:  "u1",
		Title:   "hello",
		Message: "world",
	})
	require.NoError(t, err)

	assert.False(t, receipt.Queued)
	require.Len(t, deliverer.delivered, 1)
}

func TestService_SendRejectsInvalid(t *testing.T) {
	t.Parallel()

	svc, err := notifications.NewService(notifications.NewMemoryStorage(), nil)
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), notifications.Notification{UserID: "u1"})
	assert.ErrorIs(t, err, notifications.ErrInvalidNotification)

	_, err = svc.Send(context.Background(), notifications.Notification{
		UserID:  "u1",
		Title:   "t",
		Message: "m",
		Type:    notifications.Type("bogus"),
	})
	assert.ErrorIs(t, err, notifications.ErrInvalidNotification)
}

func TestService_NilStorage(t *testing.T) {
	t.Parallel()

	_, err := notifications.NewService(nil, nil)
	assert.ErrorIs(t, err, notifications.ErrStorageNil)
}

func TestService_SendHandlerPersistsThenDelivers(t *testing.T) {
	t.Parallel()

	store := notifications.NewMemoryStorage()
	deliverer := &recordingDeliverer{}
	svc, err := notifications.NewService(store, deliverer)
	require.NoError(t, err)

	handler := svc.SendHandler()
	assert.Equal(t, notifications.TaskSendNotification, handler.Name())

	notif := validNotification("n1", "u1")
	task := makeSendTask(t, notif)
	require.NoError(t, handler.Handle(context.Background(), task))

	got, err := store.Get(context.Background(), "u1", "n1")
	require.NoError(t, err)
	assert.Equal(t, notif.Title, got.Title)
	require.Len(t, deliverer.delivered, 1)
}

func TestService_SendHandlerIsIdempotent(t *testing.T) {
	t.Parallel()

	store := notifications.NewMemoryStorage()
	svc, err := notifications.NewService(store, nil)
	require.NoError(t, err)

	handler := svc.SendHandler()
	task := makeSendTask(t, validNotification("n1", "u1"))

	// Execute the same delivery job twice, as an at-least-once queue may.
	require.NoError(t, handler.Handle(context.Background(), task))
	require.NoError(t, handler.Handle(context.Background(), task))

	list, err := store.List(context.Background(), "u1", notifications.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_SendHandlerFailsOnDeliveryError(t *testing.T) {
	t.Parallel()

	store := notifications.NewMemoryStorage()
	deliverer := &recordingDeliverer{err: errors.New("gateway down")}
	svc, err := notifications.NewService(store, deliverer)
	require.NoError(t, err)

	task := makeSendTask(t, validNotification("n1", "u1"))
	err = svc.SendHandler().Handle(context.Background(), task)
	require.Error(t, err)

	// The failed attempt already persisted; the retry will upsert the same
	// record before delivering again.
	_, err = store.Get(context.Background(), "u1", "n1")
	assert.NoError(t, err)
}

// makeSendTask builds the queue task a Send submission would produce.
func makeSendTask(t *testing.T, notif notifications.Notification) *queue.Task {
	t.Helper()

	repo := &capturingRepo{}
	enqueuer, err := queue.NewEnqueuer(repo)
	require.NoError(t, err)

	task, err := enqueuer.Enqueue(context.Background(), notifications.SendJob{Notification: notif},
		queue.WithTaskName(notifications.TaskSendNotification),
		queue.WithDedupKey(notif.ID))
	require.NoError(t, err)
	return task
}

type capturingRepo struct{}

func (capturingRepo) CreateTask(context.Context, *queue.Task) error { return nil }
