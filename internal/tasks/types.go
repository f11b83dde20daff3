package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/vibhor121/mastersunion/internal/mail"
	"github.com/vibhor121/mastersunion/pkg/queue"
)

// Task type names
const (
	TypeEmailSend     = "email:send"
	TypeReminderSweep = "activities:reminder_sweep"
)

const emailMaxRetry = 5

// EmailPayload is the message to relay.
type EmailPayload = mail.Message

func NewEmailTask(payload EmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEmailSend, data,
		asynq.Queue(queue.QueueCritical),
		asynq.MaxRetry(emailMaxRetry),
	), nil
}

// NewReminderSweepTask has no payload; the sweep always looks at the window
// ahead of the time it runs.
func NewReminderSweepTask() *asynq.Task {
	return asynq.NewTask(TypeReminderSweep, nil, asynq.Queue(queue.QueueLow), asynq.MaxRetry(0))
}
