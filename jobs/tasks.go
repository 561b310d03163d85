package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskQuoteExpiry expires quotes whose validity date has passed.
	TaskQuoteExpiry = "quotes:expire"
)

// QuoteExpiryPayload optionally pins the reference time; zero means now.
type QuoteExpiryPayload struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

// NewQuoteExpiryTask constructs an Asynq task.
func NewQuoteExpiryTask(asOf time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(QuoteExpiryPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuoteExpiry, data, asynq.Queue(QueueDefault)), nil
}
