package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/unclebandit/mailer-backend/internal/model"
)

// DispatchTopic is the default topic for hand-off notifications to the
// delivery worker.
const DispatchTopic = "campaign_sends"

// Handler processes one message body. A non-nil error asks for redelivery.
type Handler func(ctx context.Context, body []byte) error

// Queue interface
type Queue interface {
	Publish(ctx context.Context, topic string, body []byte) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
}

// PublishJob encodes job and publishes it on topic.
func PublishJob(ctx context.Context, q Queue, topic string, job model.DispatchJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode dispatch job: %w", err)
	}
	return q.Publish(ctx, topic, body)
}

// DecodeJob is the inverse of the encoding used by PublishJob.
func DecodeJob(body []byte) (model.DispatchJob, error) {
	var job model.DispatchJob
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("decode dispatch job: %w", err)
	}
	return job, nil
}
