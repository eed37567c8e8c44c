package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQPrefix namespaces dead-letter lists: dlq:<queue>.
const DLQPrefix = "dlq:"

// DLQEntry is a job that exhausted its attempts.
type DLQEntry struct {
	Queue    string          `json:"queue"`
	JobType  string          `json:"job_type"`
	Payload  json.RawMessage `json:"payload"`
	Reason   string          `json:"reason"`
	Attempts int             `json:"attempts"`
	FailedAt time.Time       `json:"failed_at"`
}

func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, job Job, reason string) {
	entry := DLQEntry{
		Queue:    queue,
		JobType:  job.Type,
		Payload:  job.Payload,
		Reason:   reason,
		Attempts: job.Attempts,
		FailedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal failed")
		return
	}
	key := DLQPrefix + queue
	if err := rdb.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Msg("dlq: push failed")
		return
	}
	log.Warn().Str("queue", queue).Str("job_type", job.Type).Str("reason", reason).
		Int("attempts", job.Attempts).Msg("dlq: job dead-lettered")
}

// DLQDepth reports the length of every queue's dead-letter list.
func DLQDepth(ctx context.Context, rdb *redis.Client) (map[string]int64, error) {
	depth := map[string]int64{}
	for _, q := range []string{QueueReceiptEmail, QueueStatements} {
		n, err := rdb.LLen(ctx, DLQPrefix+q).Result()
		if err != nil {
			return nil, err
		}
		depth[q] = n
	}
	return depth, nil
}
