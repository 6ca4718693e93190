package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueNotification = "jobs:notification"
	QueueEmail        = "jobs:email"
)

// Domain events emitted by the lifecycle manager and the payment ledger.
// Delivery is fire-and-forget: it never blocks or rolls back the mutation
// that produced the event.
const (
	EventInvoiceSubmitted   = "invoice.submitted"
	EventInvoiceApproved    = "invoice.approved"
	EventInvoiceRejected    = "invoice.rejected"
	EventInvoiceHeld        = "invoice.held"
	EventInvoiceReleased    = "invoice.released"
	EventInvoiceResubmitted = "invoice.resubmitted"
	EventInvoiceOverdue     = "invoice.overdue"
	EventInvoicePaid        = "invoice.paid"
	EventPaymentRecorded    = "payment.recorded"
	EventPaymentApproved    = "payment.approved"
	EventPaymentReversed    = "payment.reversed"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NotificationJobPayload is the job envelope sent to QueueNotification.
type NotificationJobPayload struct {
	Event     string `json:"event"`
	InvoiceID uint   `json:"invoice_id"`
	PaymentID uint   `json:"payment_id,omitempty"`
	ActorID   string `json:"actor_id"`
	Status    string `json:"status"`
	Amount    string `json:"amount,omitempty"`
}

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail    string `json:"to_email"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Attachment string `json:"attachment,omitempty"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueNotification pushes a domain-event job to Redis.
func (d *Dispatcher) EnqueueNotification(ctx context.Context, payload NotificationJobPayload) error {
	return d.enqueue(ctx, QueueNotification, "notification", payload)
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, "email", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// WorkerHandlers wires job types to their processors.
type WorkerHandlers struct {
	Notification *NotificationWorker
	Email        *EmailWorker
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	queues := []string{QueueNotification, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	switch queue {
	case QueueNotification:
		handlers.Notification.Process(ctx, job.Payload)
	case QueueEmail:
		handlers.Email.Process(ctx, job.Payload)
	default:
		log.Warn().Str("queue", queue).Str("type", job.Type).Msg("job from unknown queue dropped")
	}
}
