package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/festa-erp/festa/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// QuoteExpirer is implemented by the quotes service.
type QuoteExpirer interface {
	ExpireOverdue(ctx context.Context, asOf time.Time) (int, error)
}

// QuoteExpiryJob moves overdue DRAFT and SENT quotes to EXPIRED.
type QuoteExpiryJob struct {
	Quotes  QuoteExpirer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
	clock   func() time.Time
}

// NewQuoteExpiryJob wires dependencies for the expiry handler.
func NewQuoteExpiryJob(quotes QuoteExpirer, logger *slog.Logger, metrics *jobmetrics.Metrics) *QuoteExpiryJob {
	return &QuoteExpiryJob{
		Quotes:  quotes,
		Logger:  logger,
		Metrics: metrics,
		Timeout: 2 * time.Minute,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes quote expiry tasks.
func (j *QuoteExpiryJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Quotes == nil {
		return errors.New("quote expiry: handler not configured")
	}
	var payload QuoteExpiryPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.now()
	}

	tracker := j.metrics().Track(TaskQuoteExpiry)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	logger := j.logger().With(slog.Time("as_of", asOf))
	start := time.Now()
	expired, err := j.Quotes.ExpireOverdue(ctx, asOf)
	j.metrics().AddExpired(expired)
	if err != nil {
		logger.Error("expire quotes", slog.Int("expired", expired), slog.Any("error", err))
		return err
	}
	logger.Info("expired overdue quotes", slog.Int("expired", expired), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *QuoteExpiryJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskQuoteExpiry))
	}
	return slog.Default().With(slog.String("job", TaskQuoteExpiry))
}

func (j *QuoteExpiryJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *QuoteExpiryJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
