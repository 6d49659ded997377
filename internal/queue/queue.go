// Package queue runs detached work (fan-out and push dispatch) outside the
// request that triggered it.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// Task is a background job message with a type and opaque payload bytes.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. Tasks are never retried, so a returned error is
// only logged.
type Handler func(ctx context.Context, task Task) error

// Client enqueues tasks for background processing.
type Client interface {
	Enqueue(ctx context.Context, t Task) (id string, err error)
	Close() error
}

// Server runs the handlers registered for each task type.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NewTask JSON-encodes payload into a Task of the given type.
func NewTask(taskType string, payload any) (Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("queue: encode %s payload: %w", taskType, err)
	}
	return Task{Type: taskType, Payload: b}, nil
}
