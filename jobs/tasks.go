package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPurgeExpiredSessions deletes session audit rows past their expiry.
	TaskPurgeExpiredSessions = "sessions:purge_expired"
)

// PurgeSessionsPayload carries scheduling metadata.
type PurgeSessionsPayload struct {
	RequestedBy  string    `json:"requested_by,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewPurgeSessionsTask constructs the purge task.
func NewPurgeSessionsTask(payload PurgeSessionsPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurgeExpiredSessions, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
