package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/vibhor121/mastersunion/internal/mail"
	"github.com/vibhor121/mastersunion/internal/metrics"
)

// TaskClient is the part of *asynq.Client the enqueuer needs.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EmailQueue hands mail to the worker through Redis.
type EmailQueue struct {
	client TaskClient
}

func NewEmailQueue(client TaskClient) *EmailQueue {
	return &EmailQueue{client: client}
}

func (q *EmailQueue) Enqueue(ctx context.Context, msg mail.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	task, err := NewEmailTask(msg)
	if err != nil {
		return fmt.Errorf("building email task: %w", err)
	}
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueueing email: %w", err)
	}

	metrics.EmailsTotal.WithLabelValues("enqueued").Inc()
	return nil
}

var _ mail.Queue = (*EmailQueue)(nil)
