package queue

import (
	"context"
	"encoding/json"
)

// Handler processes tasks of a single named type.
type Handler interface {
	Name() string
	Handle(ctx context.Context, task *Task) error
}

// TaskHandlerFunc is a typed task handler; the payload is unmarshaled from
// the task's JSON payload before the function is invoked.
type TaskHandlerFunc[T any] func(ctx context.Context, task *Task, payload T) error

// NewTaskHandler wraps a typed handler function. The handler name defaults
// to the qualified struct name of the payload type, matching what Enqueue
// derives when no explicit task name is given.
func NewTaskHandler[T any](handler TaskHandlerFunc[T]) Handler {
	var payload T
	return &taskHandler[T]{
		name:    qualifiedStructName(payload),
		handler: handler,
	}
}

// NewNamedTaskHandler wraps a typed handler under an explicit name.
func NewNamedTaskHandler[T any](name string, handler TaskHandlerFunc[T]) Handler {
	return &taskHandler[T]{
		name:    name,
		handler: handler,
	}
}

type taskHandler[T any] struct {
	name    string
	handler TaskHandlerFunc[T]
}

func (h *taskHandler[T]) Name() string {
	return h.name
}

func (h *taskHandler[T]) Handle(ctx context.Context, task *Task) error {
	var t T
	if err := json.Unmarshal(task.Payload, &t); err != nil {
		return err
	}
	return h.handler(ctx, task, t)
}
