package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/pkg/queue"
)

type workerTestPayload struct {
	Value string `json:"value"`
}

func startWorker(t *testing.T, ms *queue.MemoryStorage, handler queue.Handler, opts ...queue.WorkerOption) *queue.Worker {
	t.Helper()

	opts = append([]queue.WorkerOption{
		queue.WithQueues("q"),
		queue.WithPollInterval(20 * time.Millisecond),
		queue.WithLockTimeout(time.Minute),
	}, opts...)

	worker, err := queue.NewWorker(ms, opts...)
	require.NoError(t, err)
	worker.RegisterHandler(handler)
	require.NoError(t, worker.Start(context.Background()))
	t.Cleanup(func() { _ = worker.Stop() })
	return worker
}

func enqueueOne(t *testing.T, ms *queue.MemoryStorage, opts ...queue.EnqueueOption) *queue.Task {
	t.Helper()

	enqueuer, err := queue.NewEnqueuer(ms, queue.WithDefaultQueue("q"))
	require.NoError(t, err)

	opts = append([]queue.EnqueueOption{queue.WithTaskName("job")}, opts...)
	task, err := enqueuer.Enqueue(context.Background(), workerTestPayload{Value: "v"}, opts...)
	require.NoError(t, err)
	return task
}

func TestWorker_ProcessesTask(t *testing.T) {
	t.Parallel()

	ms := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = ms.Close() })

	var processed atomic.Int32
	handler := queue.NewNamedTaskHandler("job", func(ctx context.Context, task *queue.Task, payload workerTestPayload) error {
		assert.Equal(t, "v", payload.Value)
		assert.NotEmpty(t, task.DedupKey)
		processed.Add(1)
		return nil
	})

	task := enqueueOne(t, ms)
	startWorker(t, ms, handler)

	require.Eventually(t, func() bool {
		stored, ok := ms.GetTask(task.ID)
		return ok && stored.Status == queue.TaskStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(1), processed.Load())
}

func TestWorker_RetriesThenFails(t *testing.T) {
	t.Parallel()

	ms := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = ms.Close() })

	var attempts atomic.Int32
	handler := queue.NewNamedTaskHandler("job", func(ctx context.Context, task *queue.Task, payload workerTestPayload) error {
		attempts.Add(1)
		return errors.New("transient failure")
	})

	var failed atomic.Int32
	task := enqueueOne(t, ms, queue.WithMaxRetries(3))
	startWorker(t, ms, handler, queue.WithTaskObserver(func(status queue.TaskStatus) {
		if status == queue.TaskStatusFailed {
			failed.Add(1)
		}
	}))

	// MaxRetries of 3 bounds the task to 3 attempts, after which it is
	// moved to the DLQ and retained, never deleted.
	require.Eventually(t, func() bool {
		return len(ms.DeadTasks()) == 1
	}, 15*time.Second, 50*time.Millisecond)

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, int32(1), failed.Load())

	dead := ms.DeadTasks()
	require.Len(t, dead, 1)
	assert.Equal(t, task.ID, dead[0].TaskID)
	assert.Equal(t, "transient failure", dead[0].Error)

	// The original task record is gone from the active set only because it
	// now lives in the DLQ.
	_, ok := ms.GetTask(task.ID)
	assert.False(t, ok)
}

func TestWorker_PanicIsFailure(t *testing.T) {
	t.Parallel()

	ms := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = ms.Close() })

	handler := queue.NewNamedTaskHandler("job", func(ctx context.Context, task *queue.Task, payload workerTestPayload) error {
		panic("handler exploded")
	})

	enqueueOne(t, ms, queue.WithMaxRetries(1))
	startWorker(t, ms, handler)

	require.Eventually(t, func() bool {
		dead := ms.DeadTasks()
		return len(dead) == 1 && dead[0].Error != ""
	}, 10*time.Second, 50*time.Millisecond)
}

func TestWorker_MissingHandlerGoesToDLQ(t *testing.T) {
	t.Parallel()

	ms := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = ms.Close() })

	handler := queue.NewNamedTaskHandler("other-job", func(ctx context.Context, task *queue.Task, payload workerTestPayload) error {
		return nil
	})

	enqueueOne(t, ms) // named "job", no handler for it
	startWorker(t, ms, handler)

	require.Eventually(t, func() bool {
		return len(ms.DeadTasks()) == 1
	}, 10*time.Second, 50*time.Millisecond)
}

func TestWorker_StartValidation(t *testing.T) {
	t.Parallel()

	t.Run("nil repository", func(t *testing.T) {
		t.Parallel()

		_, err := queue.NewWorker(nil)
		assert.ErrorIs(t, err, queue.ErrRepositoryNil)
	})

	t.Run("no handlers", func(t *testing.T) {
		t.Parallel()

		ms := queue.NewMemoryStorage()
		t.Cleanup(func() { _ = ms.Close() })

		worker, err := queue.NewWorker(ms)
		require.NoError(t, err)
		assert.ErrorIs(t, worker.Start(context.Background()), queue.ErrNoHandlers)
	})
}
