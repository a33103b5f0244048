package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Key layout used by RedisStorage. Task bodies live in plain keys holding
// JSON; pending tasks are indexed per queue in a sorted set scored by their
// scheduled time so delayed and backed-off tasks become visible exactly when
// due; processing tasks are indexed in a sorted set scored by lease expiry
// so lapsed claims can be recovered.
const (
	redisTaskKeyPrefix       = "queue:task:"
	redisPendingKeyPrefix    = "queue:pending:"
	redisProcessingKeyPrefix = "queue:processing:"
	redisDLQKeyPrefix        = "queue:dlq:"
	redisDLQIndexKey         = "queue:dlq"
)

// RedisStorage implements the queue repositories on Redis, shared across all
// process instances. Claims are made atomic by ZRem: only the worker whose
// removal of the pending entry succeeds owns the task.
type RedisStorage struct {
	db redis.UniversalClient
}

// NewRedisStorage wraps an established Redis client.
func NewRedisStorage(client redis.UniversalClient) *RedisStorage {
	return &RedisStorage{db: client}
}

func taskKey(id uuid.UUID) string { return redisTaskKeyPrefix + id.String() }

func pendingKey(queue string) string { return redisPendingKeyPrefix + queue }

func processingKey(queue string) string { return redisProcessingKeyPrefix + queue }

func deadTaskKey(taskID uuid.UUID) string { return redisDLQKeyPrefix + taskID.String() }

// pendingScore orders pending members by scheduled time with priority as a
// tiebreak within the same millisecond. Scores stay well below 2^53 so they
// survive the float64 representation Redis uses.
func pendingScore(t *Task) float64 {
	return float64(t.ScheduledAt.UnixMilli()*128 + int64(PriorityMax-t.Priority))
}

// CreateTask implements EnqueuerRepository.
func (rs *RedisStorage) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return ErrPayloadNil
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}

	pipe := rs.db.TxPipeline()
	pipe.Set(ctx, taskKey(task.ID), body, 0)
	pipe.ZAdd(ctx, pendingKey(task.Queue), redis.Z{
		Score:  pendingScore(task),
		Member: task.ID.String(),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store task %s: %w", task.ID, err)
	}
	return nil
}

// ClaimTask implements WorkerRepository. It scans due pending entries across
// the requested queues and claims the first one it can atomically remove
// from the pending index; concurrent workers racing for the same entry are
// resolved by ZRem, which succeeds for exactly one of them.
func (rs *RedisStorage) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	now := time.Now()
	maxScore := fmt.Sprintf("%d", (now.UnixMilli()+1)*128)

	for _, queue := range queues {
		rs.recoverExpired(ctx, queue, now)

		ids, err := rs.db.ZRangeByScore(ctx, pendingKey(queue), &redis.ZRangeBy{
			Min:   "-inf",
			Max:   maxScore,
			Count: 8,
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("scan pending queue %q: %w", queue, err)
		}

		for _, id := range ids {
			removed, err := rs.db.ZRem(ctx, pendingKey(queue), id).Result()
			if err != nil {
				return nil, fmt.Errorf("claim task %s: %w", id, err)
			}
			if removed == 0 {
				// Another worker won this entry.
				continue
			}

			taskID, err := uuid.Parse(id)
			if err != nil {
				continue
			}

			task, err := rs.getTask(ctx, taskID)
			if err != nil {
				continue
			}

			lockUntil := now.Add(lockDuration)
			task.Status = TaskStatusProcessing
			task.LockedUntil = &lockUntil
			task.LockedBy = &workerID

			pipe := rs.db.TxPipeline()
			rs.putTask(ctx, pipe, task)
			pipe.ZAdd(ctx, processingKey(queue), redis.Z{
				Score:  float64(lockUntil.UnixMilli()),
				Member: id,
			})
			if _, err := pipe.Exec(ctx); err != nil {
				return nil, fmt.Errorf("lock task %s: %w", id, err)
			}
			return task, nil
		}
	}

	return nil, ErrNoTaskToClaim
}

// CompleteTask implements WorkerRepository.
func (rs *RedisStorage) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	task, err := rs.getTask(ctx, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	task.Status = TaskStatusCompleted
	task.ProcessedAt = &now
	task.LockedUntil = nil
	task.LockedBy = nil

	pipe := rs.db.TxPipeline()
	rs.putTask(ctx, pipe, task)
	pipe.ZRem(ctx, processingKey(task.Queue), taskID.String())
	// Completed bodies are kept for a day for inspection, then expire.
	pipe.Expire(ctx, taskKey(taskID), 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("complete task %s: %w", taskID, err)
	}
	return nil
}

// FailTask implements WorkerRepository.
func (rs *RedisStorage) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	task, err := rs.getTask(ctx, taskID)
	if err != nil {
		return err
	}

	task.RetryCount++
	task.Error = &errorMsg
	task.LockedUntil = nil
	task.LockedBy = nil

	pipe := rs.db.TxPipeline()
	pipe.ZRem(ctx, processingKey(task.Queue), taskID.String())

	if task.RetryCount >= task.MaxRetries {
		task.Status = TaskStatusFailed
	} else {
		task.Status = TaskStatusPending
		task.ScheduledAt = time.Now().Add(RetryDelay(task.RetryCount))
		pipe.ZAdd(ctx, pendingKey(task.Queue), redis.Z{
			Score:  pendingScore(task),
			Member: taskID.String(),
		})
	}

	rs.putTask(ctx, pipe, task)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("fail task %s: %w", taskID, err)
	}
	return nil
}

// MoveToDLQ implements WorkerRepository. The dead letter entry has no TTL;
// exhausted tasks are retained until an operator removes them.
func (rs *RedisStorage) MoveToDLQ(ctx context.Context, taskID uuid.UUID) error {
	task, err := rs.getTask(ctx, taskID)
	if err != nil {
		return err
	}

	entry := &DeadTask{
		ID:         uuid.New(),
		TaskID:     task.ID,
		Queue:      task.Queue,
		TaskName:   task.TaskName,
		Payload:    task.Payload,
		Priority:   task.Priority,
		RetryCount: task.RetryCount,
		FailedAt:   time.Now(),
		CreatedAt:  task.CreatedAt,
	}
	if task.Error != nil {
		entry.Error = *task.Error
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal dead task %s: %w", taskID, err)
	}

	pipe := rs.db.TxPipeline()
	pipe.Set(ctx, deadTaskKey(taskID), body, 0)
	pipe.RPush(ctx, redisDLQIndexKey, taskID.String())
	pipe.Del(ctx, taskKey(taskID))
	pipe.ZRem(ctx, processingKey(task.Queue), taskID.String())
	pipe.ZRem(ctx, pendingKey(task.Queue), taskID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("move task %s to DLQ: %w", taskID, err)
	}
	return nil
}

// recoverExpired moves tasks whose claim lease lapsed back to the pending
// index so they can be retried by another worker. Best effort: a Redis
// hiccup here only delays recovery until the next claim cycle.
func (rs *RedisStorage) recoverExpired(ctx context.Context, queue string, now time.Time) {
	maxScore := fmt.Sprintf("%d", now.UnixMilli())
	ids, err := rs.db.ZRangeByScore(ctx, processingKey(queue), &redis.ZRangeBy{
		Min: "-inf",
		Max: maxScore,
	}).Result()
	if err != nil || len(ids) == 0 {
		return
	}

	for _, id := range ids {
		removed, err := rs.db.ZRem(ctx, processingKey(queue), id).Result()
		if err != nil || removed == 0 {
			continue
		}

		taskID, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		task, err := rs.getTask(ctx, taskID)
		if err != nil {
			continue
		}

		task.Status = TaskStatusPending
		task.LockedUntil = nil
		task.LockedBy = nil

		pipe := rs.db.TxPipeline()
		rs.putTask(ctx, pipe, task)
		pipe.ZAdd(ctx, pendingKey(queue), redis.Z{
			Score:  pendingScore(task),
			Member: id,
		})
		_, _ = pipe.Exec(ctx)
	}
}

func (rs *RedisStorage) getTask(ctx context.Context, taskID uuid.UUID) (*Task, error) {
	body, err := rs.db.Get(ctx, taskKey(taskID)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", taskID, err)
	}

	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task %s: %w", taskID, err)
	}
	return &task, nil
}

func (rs *RedisStorage) putTask(ctx context.Context, pipe redis.Pipeliner, task *Task) {
	body, err := json.Marshal(task)
	if err != nil {
		return
	}
	pipe.Set(ctx, taskKey(task.ID), body, 0)
}
