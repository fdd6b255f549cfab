package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultName is the redis list that buffers inbound webhook payloads.
const DefaultName = "crm:webhooks:inbound"

// Job is one queued webhook delivery waiting for normalization.
type Job struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	WebhookID      uuid.UUID       `json:"webhook_id"`
	Payload        json.RawMessage `json:"payload"`
	RequestID      string          `json:"request_id,omitempty"`
	ReceivedAt     time.Time       `json:"received_at"`
	Attempts       int             `json:"attempts"`
}

// WebhookQueue is a FIFO backed by a redis list: LPUSH on enqueue, BRPOP on dequeue.
type WebhookQueue struct {
	redis *redis.Client
	name  string
}

// NewWebhookQueue returns a queue on the named list.
func NewWebhookQueue(client *redis.Client, name string) *WebhookQueue {
	if name == "" {
		name = DefaultName
	}
	return &WebhookQueue{redis: client, name: name}
}

// Name returns the list key.
func (q *WebhookQueue) Name() string {
	return q.name
}

// Push enqueues job, assigning an ID and receive time when missing.
func (q *WebhookQueue) Push(ctx context.Context, job *Job) error {
	if job == nil {
		return fmt.Errorf("queue: job is nil")
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.ReceivedAt.IsZero() {
		job.ReceivedAt = time.Now().UTC()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: encode job: %w", err)
	}
	if err := q.redis.LPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("queue: push job: %w", err)
	}
	return nil
}

// Pop blocks up to timeout for the oldest job. It returns nil, nil when the wait times out.
func (q *WebhookQueue) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.redis.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue: pop job: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("queue: unexpected BRPOP reply of %d items", len(res))
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("queue: decode job: %w", err)
	}
	return &job, nil
}

// Len reports how many jobs are waiting.
func (q *WebhookQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.redis.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: length: %w", err)
	}
	return n, nil
}

// Bury moves a job that failed processing to the dead-letter list for inspection.
func (q *WebhookQueue) Bury(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: encode dead job: %w", err)
	}
	if err := q.redis.LPush(ctx, q.name+":dead", data).Err(); err != nil {
		return fmt.Errorf("queue: bury job: %w", err)
	}
	return nil
}
