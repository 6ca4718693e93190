package service

import (
	"context"
	"fmt"
	"time"

	"paylog/internal/dto"
	"paylog/internal/model"
	"paylog/internal/repository"
	"paylog/internal/worker"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type PaymentService interface {
	Record(ctx context.Context, actor Actor, req dto.RecordPaymentRequest) (*dto.PaymentResult, error)
	Approve(ctx context.Context, actor Actor, paymentID uint) (*dto.PaymentResult, error)
	Reverse(ctx context.Context, actor Actor, paymentID uint) (*dto.PaymentResult, error)
	ListByInvoice(ctx context.Context, invoiceID uint) ([]dto.PaymentResponse, error)
}

type paymentService struct {
	invoices     repository.InvoiceRepository
	payments     repository.PaymentRepository
	paymentTypes repository.PaymentTypeRepository
	dispatcher   *worker.Dispatcher
}

func NewPaymentService(
	invoices repository.InvoiceRepository,
	payments repository.PaymentRepository,
	paymentTypes repository.PaymentTypeRepository,
	dispatcher *worker.Dispatcher,
) PaymentService {
	return &paymentService{
		invoices:     invoices,
		payments:     payments,
		paymentTypes: paymentTypes,
		dispatcher:   dispatcher,
	}
}

// ── Record ───────────────────────────────────────────────────────────────────
// One atomic unit: lock invoice row → read approved sum on the same tx →
// overpayment check against that sum → insert payment → recompute and persist
// status. Recomputing remaining from any read taken before the transaction
// began is the lost-update bug this ordering exists to prevent.

func (s *paymentService) Record(ctx context.Context, actor Actor, req dto.RecordPaymentRequest) (*dto.PaymentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, domainErr(CodeValidation, "amount must be positive")
	}
	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		return nil, domainErr(CodeValidation, "payment_date must be YYYY-MM-DD")
	}
	if req.PaymentTypeID != nil {
		if _, err := s.paymentTypes.FindByID(ctx, *req.PaymentTypeID); err != nil {
			return nil, domainErr(CodeValidation, fmt.Sprintf("payment type %d not found", *req.PaymentTypeID))
		}
	}

	// Ownership gate needs the invoice; authorization-only pre-read.
	pre, err := s.invoices.FindByID(ctx, req.InvoiceID)
	if err != nil {
		return nil, domainErr(CodeNotFound, fmt.Sprintf("invoice %d not found", req.InvoiceID))
	}
	if err := Authorize(actor, TransitionRecordPayment, pre); err != nil {
		return nil, err
	}

	// Payments recorded by admins count immediately; submitter payments wait
	// for an explicit approval step.
	status := model.PaymentPending
	if IsAdminTier(actor.Role) {
		status = model.PaymentApproved
	}

	var inv *model.Invoice
	var payment *model.Payment
	var rec reconciliation
	txErr := runTx(ctx, s.invoices.DB(), func(tx *gorm.DB) error {
		var err error
		inv, err = s.invoices.FindByIDForUpdateTx(tx, req.InvoiceID)
		if err != nil {
			return domainErr(CodeNotFound, fmt.Sprintf("invoice %d not found", req.InvoiceID))
		}
		if !inv.AcceptsPayments() {
			return domainErr(CodeNotPayable,
				fmt.Sprintf("invoice %d does not accept payments in status %q", inv.ID, inv.Status))
		}

		// Remaining is computed HERE, under the row lock.
		total, err := s.payments.SumApprovedTx(tx, inv.ID)
		if err != nil {
			return fmt.Errorf("sum approved payments: %w", err)
		}
		remaining := NetPayable(inv).Sub(total)
		if req.Amount.GreaterThan(remaining) {
			return domainErr(CodeOverpayment,
				fmt.Sprintf("amount %s exceeds remaining balance %s", req.Amount, remaining))
		}

		now := time.Now()
		payment = &model.Payment{
			InvoiceID:     inv.ID,
			AmountPaid:    req.Amount,
			PaymentDate:   paymentDate,
			Status:        status,
			PaymentTypeID: req.PaymentTypeID,
			RecordedBy:    actor.ID,
		}
		if status == model.PaymentApproved {
			payment.ApprovedBy = &actor.ID
			payment.ApprovedAt = &now
		}
		if err := s.payments.CreateTx(tx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		if rec, err = reconcileTx(tx, s.payments, inv, now); err != nil {
			return err
		}
		return s.invoices.UpdateTx(tx, inv)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notifyPayment(ctx, worker.EventPaymentRecorded, inv, payment, actor)
	if inv.Status == model.StatusPaid {
		s.notifyPayment(ctx, worker.EventInvoicePaid, inv, payment, actor)
	}
	return s.result(inv, payment, rec), nil
}

// ── Approve ──────────────────────────────────────────────────────────────────

func (s *paymentService) Approve(ctx context.Context, actor Actor, paymentID uint) (*dto.PaymentResult, error) {
	if err := Authorize(actor, TransitionApprovePayment, nil); err != nil {
		return nil, err
	}
	pre, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, domainErr(CodeNotFound, fmt.Sprintf("payment %d not found", paymentID))
	}

	var inv *model.Invoice
	var payment *model.Payment
	var rec reconciliation
	txErr := runTx(ctx, s.invoices.DB(), func(tx *gorm.DB) error {
		var err error
		// Lock order: invoice row first, then the payment row. Every ledger
		// mutation takes the invoice lock first, so concurrent approvals and
		// reversals serialize without deadlocking.
		inv, err = s.invoices.FindByIDForUpdateTx(tx, pre.InvoiceID)
		if err != nil {
			return domainErr(CodeNotFound, fmt.Sprintf("invoice %d not found", pre.InvoiceID))
		}
		payment, err = s.payments.FindByIDForUpdateTx(tx, paymentID)
		if err != nil {
			return domainErr(CodeNotFound, fmt.Sprintf("payment %d not found", paymentID))
		}
		if payment.Status == model.PaymentApproved {
			// Already counted — nothing to change.
			rec, err = reconcileTx(tx, s.payments, inv, time.Now())
			return err
		}
		if payment.IsReversed() {
			return domainErr(CodeInvalidTransition,
				fmt.Sprintf("payment %d was reversed and cannot be approved", paymentID))
		}
		if !inv.AcceptsPayments() {
			return domainErr(CodeNotPayable,
				fmt.Sprintf("invoice %d does not accept payments in status %q", inv.ID, inv.Status))
		}

		total, err := s.payments.SumApprovedTx(tx, inv.ID)
		if err != nil {
			return fmt.Errorf("sum approved payments: %w", err)
		}
		remaining := NetPayable(inv).Sub(total)
		if payment.AmountPaid.GreaterThan(remaining) {
			return domainErr(CodeOverpayment,
				fmt.Sprintf("approving payment %d for %s would exceed remaining balance %s",
					paymentID, payment.AmountPaid, remaining))
		}

		now := time.Now()
		payment.Status = model.PaymentApproved
		payment.ApprovedBy = &actor.ID
		payment.ApprovedAt = &now
		if err := s.payments.UpdateTx(tx, payment); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		if rec, err = reconcileTx(tx, s.payments, inv, now); err != nil {
			return err
		}
		return s.invoices.UpdateTx(tx, inv)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notifyPayment(ctx, worker.EventPaymentApproved, inv, payment, actor)
	if inv.Status == model.StatusPaid {
		s.notifyPayment(ctx, worker.EventInvoicePaid, inv, payment, actor)
	}
	return s.result(inv, payment, rec), nil
}

// ── Reverse ──────────────────────────────────────────────────────────────────
// Idempotent: reversing an already-reversed payment returns the current
// snapshot unchanged instead of corrupting the sum. Reversal is allowed on
// paid invoices and re-opens them to partial/unpaid via recomputation.

func (s *paymentService) Reverse(ctx context.Context, actor Actor, paymentID uint) (*dto.PaymentResult, error) {
	if err := Authorize(actor, TransitionReversePayment, nil); err != nil {
		return nil, err
	}
	pre, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, domainErr(CodeNotFound, fmt.Sprintf("payment %d not found", paymentID))
	}

	var inv *model.Invoice
	var payment *model.Payment
	var rec reconciliation
	reversed := false
	txErr := runTx(ctx, s.invoices.DB(), func(tx *gorm.DB) error {
		var err error
		inv, err = s.invoices.FindByIDForUpdateTx(tx, pre.InvoiceID)
		if err != nil {
			return domainErr(CodeNotFound, fmt.Sprintf("invoice %d not found", pre.InvoiceID))
		}
		payment, err = s.payments.FindByIDForUpdateTx(tx, paymentID)
		if err != nil {
			return domainErr(CodeNotFound, fmt.Sprintf("payment %d not found", paymentID))
		}
		if payment.IsReversed() {
			rec, err = reconcileTx(tx, s.payments, inv, time.Now())
			return err
		}

		now := time.Now()
		payment.Status = model.PaymentRejected
		payment.ReversedBy = &actor.ID
		payment.ReversedAt = &now
		if err := s.payments.UpdateTx(tx, payment); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		reversed = true

		if rec, err = reconcileTx(tx, s.payments, inv, now); err != nil {
			return err
		}
		return s.invoices.UpdateTx(tx, inv)
	})
	if txErr != nil {
		return nil, txErr
	}

	if reversed {
		s.notifyPayment(ctx, worker.EventPaymentReversed, inv, payment, actor)
	}
	return s.result(inv, payment, rec), nil
}

func (s *paymentService) ListByInvoice(ctx context.Context, invoiceID uint) ([]dto.PaymentResponse, error) {
	payments, err := s.payments.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	out := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, toPaymentResponse(&payments[i]))
	}
	return out, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (s *paymentService) notifyPayment(ctx context.Context, event string, inv *model.Invoice, p *model.Payment, actor Actor) {
	if s.dispatcher == nil {
		return
	}
	payload := worker.NotificationJobPayload{
		Event:     event,
		InvoiceID: inv.ID,
		PaymentID: p.ID,
		ActorID:   actor.ID.String(),
		Status:    inv.Status,
		Amount:    p.AmountPaid.String(),
	}
	if err := s.dispatcher.EnqueueNotification(ctx, payload); err != nil {
		log.Warn().Err(err).Str("event", event).Uint("invoice_id", inv.ID).
			Msg("failed to enqueue notification")
	}
}

func (s *paymentService) result(inv *model.Invoice, p *model.Payment, rec reconciliation) *dto.PaymentResult {
	return &dto.PaymentResult{
		Payment: toPaymentResponse(p),
		Invoice: *toInvoiceResponse(inv, rec),
	}
}

func toPaymentResponse(p *model.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:            p.ID,
		InvoiceID:     p.InvoiceID,
		AmountPaid:    p.AmountPaid,
		PaymentDate:   p.PaymentDate.Format("2006-01-02"),
		Status:        p.Status,
		PaymentTypeID: p.PaymentTypeID,
		RecordedBy:    p.RecordedBy.String(),
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}
