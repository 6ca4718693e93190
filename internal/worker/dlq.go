package worker

// dlq.go — dead letter queue for notification and email jobs.
// A job that exhausts its retries lands in dlq:{source_queue} with enough
// context to debug the failure. Operators inspect depths on /health and can
// redrive entries back onto the source queue once the sink (SMTP, webhook)
// is healthy again — the engine itself never re-emits past events.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// dlqQueues lists the source queues that can dead-letter.
var dlqQueues = []string{QueueNotification, QueueEmail}

// DLQEntry wraps a failed job with metadata for debugging.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"` // ISO 8601
	Attempts      int             `json:"attempts"`
}

// DeadLetterQueue stores and redrives failed jobs, one Redis list per
// source queue.
type DeadLetterQueue struct {
	rdb *redis.Client
}

func NewDeadLetterQueue(rdb *redis.Client) *DeadLetterQueue {
	return &DeadLetterQueue{rdb: rdb}
}

// Push parks a failed job for manual inspection. Best-effort: a DLQ write
// failure is logged, never propagated to the worker.
func (q *DeadLetterQueue) Push(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
	entry := DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC().Format(time.RFC3339),
		Attempts:      attempts,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}

	dlqKey := DLQPrefix + queue
	if err := q.rdb.LPush(ctx, dlqKey, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", dlqKey).Msg("dlq: failed to push")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: job moved to dead letter queue")
}

// Length returns the number of parked entries for one source queue.
func (q *DeadLetterQueue) Length(ctx context.Context, queue string) (int64, error) {
	return q.rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// Lengths returns the parked-entry count per source queue, for /health.
func (q *DeadLetterQueue) Lengths(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(dlqQueues))
	for _, queue := range dlqQueues {
		n, err := q.Length(ctx, queue)
		if err != nil {
			return nil, err
		}
		out[queue] = n
	}
	return out, nil
}

// Requeue moves up to max parked entries back onto their source queue as
// fresh jobs. Returns how many were redriven. An undecodable entry is put
// back and stops the redrive, so a corrupt record cannot spin forever.
func (q *DeadLetterQueue) Requeue(ctx context.Context, queue string, max int) (int, error) {
	if max <= 0 {
		max = 10
	}
	dlqKey := DLQPrefix + queue

	moved := 0
	for i := 0; i < max; i++ {
		raw, err := q.rdb.RPop(ctx, dlqKey).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return moved, fmt.Errorf("dlq: pop %s: %w", dlqKey, err)
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Err(err).Str("dlq_key", dlqKey).Msg("dlq: undecodable entry, stopping redrive")
			_ = q.rdb.RPush(ctx, dlqKey, raw).Err()
			break
		}

		job := Job{Type: entry.JobType, Payload: entry.Payload}
		encoded, err := json.Marshal(job)
		if err != nil {
			return moved, fmt.Errorf("dlq: re-encode job: %w", err)
		}
		if err := q.rdb.LPush(ctx, entry.OriginalQueue, encoded).Err(); err != nil {
			// Park it again rather than lose it
			_ = q.rdb.RPush(ctx, dlqKey, raw).Err()
			return moved, fmt.Errorf("dlq: requeue to %s: %w", entry.OriginalQueue, err)
		}
		moved++
	}

	if moved > 0 {
		log.Info().Str("queue", queue).Int("moved", moved).Msg("dlq: entries redriven")
	}
	return moved, nil
}
