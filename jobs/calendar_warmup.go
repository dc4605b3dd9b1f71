package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/parkdesk/parkdesk/internal/jobs"
)

// CalendarWarmer precomputes availability calendars into the cache.
type CalendarWarmer interface {
	WarmupCalendars(ctx context.Context, horizonDays int) (int, error)
}

// CalendarWarmupJob fills the redis calendar cache ahead of the morning
// traffic so the first calendar request per park does not pay the build cost.
type CalendarWarmupJob struct {
	Parks   CalendarWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCalendarWarmupJob initialises the warmup handler.
func NewCalendarWarmupJob(parks CalendarWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CalendarWarmupJob {
	return &CalendarWarmupJob{Parks: parks, Logger: logger, Metrics: metrics}
}

// Handle executes a warmup run.
func (j *CalendarWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Parks == nil {
		return errors.New("calendar warmup: handler not configured")
	}
	var payload CalendarWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskCalendarWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("horizon_days", payload.HorizonDays))
	logger.Info("starting calendar warmup")

	warmed, err := j.Parks.WarmupCalendars(ctx, payload.HorizonDays)
	if err != nil {
		resultErr = fmt.Errorf("warm calendars: %w", err)
		logger.Error("warmup failed", slog.Any("error", resultErr))
		return resultErr
	}

	logger.Info("calendar warmup complete", slog.Int("calendars", warmed))
	return nil
}

func (j *CalendarWarmupJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
