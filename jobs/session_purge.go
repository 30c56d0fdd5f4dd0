package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/adsuite/backoffice/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SessionPurger removes expired session audit rows.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// SessionPurgeJob handles TaskPurgeExpiredSessions.
type SessionPurgeJob struct {
	Purger  SessionPurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSessionPurgeJob wires dependencies for the purge handler.
func NewSessionPurgeJob(purger SessionPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionPurgeJob {
	return &SessionPurgeJob{Purger: purger, Logger: logger, Metrics: metrics}
}

// Handle processes purge tasks.
func (j *SessionPurgeJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Purger == nil {
		return errors.New("session purge: handler not configured")
	}
	var payload PurgeSessionsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskPurgeExpiredSessions)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	removed, err := j.Purger.PurgeExpiredSessions(ctx)
	if err != nil {
		j.logger().Error("session purge failed", slog.Any("error", err))
		return err
	}
	j.metrics().AddPurgedSessions(removed)
	j.logger().Info("session purge complete",
		slog.Int64("removed", removed),
		slog.String("requested_by", payload.RequestedBy))
	return nil
}

func (j *SessionPurgeJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SessionPurgeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
