package worker

// email_worker.go
// Processes email jobs from QueueEmail. Sends lifecycle notifications (and
// statement PDFs) to invoice submitters via SMTP, with bounded retries and a
// dead letter queue for jobs that never go through.

import (
	"context"
	"encoding/json"
	"time"

	"paylog/internal/infra"

	"github.com/rs/zerolog/log"
)

const emailMaxAttempts = 3

// EmailWorker processes email jobs from QueueEmail.
type EmailWorker struct {
	mailer *infra.Mailer
	dlq    *DeadLetterQueue
}

// NewEmailWorker creates an EmailWorker with the provided SMTP mailer.
func NewEmailWorker(mailer *infra.Mailer, dlq *DeadLetterQueue) *EmailWorker {
	return &EmailWorker{mailer: mailer, dlq: dlq}
}

// Process sends one email, retrying with exponential backoff before moving
// the job to the DLQ.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email — skipping")
		return
	}

	err := withRetry(ctx, emailMaxAttempts, func(attempt int) error {
		sendErr := w.mailer.Send(payload.ToEmail, payload.Subject, payload.Body, payload.Attachment)
		if sendErr != nil {
			log.Warn().Err(sendErr).Int("attempt", attempt+1).Str("to", payload.ToEmail).
				Msg("email_worker: send attempt failed, retrying")
		}
		return sendErr
	})
	if err != nil {
		log.Error().Err(err).Str("to", payload.ToEmail).Msg("email_worker: all attempts failed")
		w.dlq.Push(ctx, QueueEmail, "email", raw,
			"smtp send failed after all retries: "+err.Error(), emailMaxAttempts)
		return
	}
	log.Info().Str("to", payload.ToEmail).Str("subject", payload.Subject).Msg("email_worker: sent")
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
