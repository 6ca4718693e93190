package worker

// notification_worker.go
// Processes domain-event jobs from QueueNotification.
// Posts the event to the configured webhook collaborator (through the circuit
// breaker) and composes a follow-up email to the invoice submitter. For
// invoice.paid events a statement PDF is generated and attached.

import (
	"context"
	"encoding/json"
	"fmt"

	"paylog/internal/infra"
	"paylog/internal/model"
	"paylog/internal/repository"

	"github.com/rs/zerolog/log"
)

// NotificationWorker resolves the invoice behind an event and fans it out to
// the webhook sink and the email queue. Everything here is best-effort: a
// failed delivery is logged (and eventually dead-lettered), never retried
// against the engine's state.
type NotificationWorker struct {
	webhook        *infra.WebhookClient
	cb             *infra.CircuitBreaker
	invoiceRepo    repository.InvoiceRepository
	paymentRepo    repository.PaymentRepository
	userRepo       repository.UserRepository
	dispatcher     *Dispatcher
	pdfStoragePath string
}

func NewNotificationWorker(
	webhook *infra.WebhookClient,
	cb *infra.CircuitBreaker,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	userRepo repository.UserRepository,
	dispatcher *Dispatcher,
	pdfStoragePath string,
) *NotificationWorker {
	return &NotificationWorker{
		webhook:        webhook,
		cb:             cb,
		invoiceRepo:    invoiceRepo,
		paymentRepo:    paymentRepo,
		userRepo:       userRepo,
		dispatcher:     dispatcher,
		pdfStoragePath: pdfStoragePath,
	}
}

// Process handles a single notification job:
//  1. Parse NotificationJobPayload from the job envelope
//  2. Fetch the invoice (with vendor + payments)
//  3. POST the event to the webhook sink through the circuit breaker
//  4. Compose an email to the invoice submitter; attach a statement PDF for
//     invoice.paid
func (w *NotificationWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload NotificationJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("notification_worker: invalid payload")
		return
	}

	inv, err := w.invoiceRepo.FindByID(ctx, payload.InvoiceID)
	if err != nil {
		log.Error().Err(err).Uint("invoice_id", payload.InvoiceID).
			Msg("notification_worker: invoice not found")
		return
	}

	// 1. Webhook sink (optional). The breaker keeps a downed collaborator
	// from being hammered; a dropped event is acceptable by contract.
	if w.webhook.Enabled() {
		event := infra.WebhookEvent{
			Event:         payload.Event,
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			Status:        inv.Status,
			Amount:        inv.InvoiceAmount.StringFixed(2),
			ActorID:       payload.ActorID,
		}
		cbErr := w.cb.Execute(func() error {
			return w.webhook.Notify(ctx, event)
		})
		if cbErr != nil {
			log.Warn().Err(cbErr).Str("event", payload.Event).Uint("invoice_id", inv.ID).
				Msg("notification_worker: webhook delivery failed")
		}
	}

	// 2. Email to the submitter.
	creator, err := w.userRepo.FindByID(ctx, inv.CreatedBy)
	if err != nil || creator.Email == nil || *creator.Email == "" {
		log.Debug().Uint("invoice_id", inv.ID).Msg("notification_worker: submitter has no email, skipping")
		return
	}

	emailJob := EmailJobPayload{
		ToEmail: *creator.Email,
		Subject: fmt.Sprintf("Invoice %s — %s", inv.InvoiceNumber, subjectFor(payload.Event)),
		Body:    bodyFor(payload, inv),
	}

	if payload.Event == EventInvoicePaid {
		payments, err := w.paymentRepo.ListByInvoice(ctx, inv.ID)
		if err == nil {
			vendorName := ""
			if inv.Vendor != nil {
				vendorName = inv.Vendor.Name
			}
			pdfPath, pdfErr := infra.GenerateStatementPDF(inv, vendorName, payments, w.pdfStoragePath)
			if pdfErr != nil {
				log.Warn().Err(pdfErr).Uint("invoice_id", inv.ID).
					Msg("notification_worker: statement PDF generation failed")
			} else {
				emailJob.Attachment = pdfPath
			}
		}
	}

	if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
		log.Warn().Err(err).Str("email", *creator.Email).
			Msg("notification_worker: failed to enqueue email")
	}
}

func subjectFor(event string) string {
	switch event {
	case EventInvoiceSubmitted:
		return "submitted for approval"
	case EventInvoiceApproved:
		return "approved"
	case EventInvoiceRejected:
		return "rejected"
	case EventInvoiceHeld:
		return "placed on hold"
	case EventInvoiceReleased:
		return "released from hold"
	case EventInvoiceResubmitted:
		return "resubmitted"
	case EventInvoiceOverdue:
		return "overdue"
	case EventInvoicePaid:
		return "fully paid"
	case EventPaymentRecorded:
		return "payment recorded"
	case EventPaymentApproved:
		return "payment approved"
	case EventPaymentReversed:
		return "payment reversed"
	default:
		return event
	}
}

func bodyFor(payload NotificationJobPayload, inv *model.Invoice) string {
	body := fmt.Sprintf("Invoice %s is now %s.", inv.InvoiceNumber, inv.Status)
	if payload.Amount != "" {
		body += fmt.Sprintf("\nPayment amount: %s", payload.Amount)
	}
	if inv.RejectionReason != nil {
		body += fmt.Sprintf("\nReason: %s", *inv.RejectionReason)
	}
	if inv.HoldReason != nil {
		body += fmt.Sprintf("\nHold reason: %s", *inv.HoldReason)
	}
	return body
}
