package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"paylog/internal/dto"
	"paylog/internal/model"
	"paylog/internal/repository"
	"paylog/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceService interface {
	Create(ctx context.Context, actor Actor, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	Get(ctx context.Context, id uint) (*dto.InvoiceResponse, error)
	List(ctx context.Context, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error)
	Approve(ctx context.Context, actor Actor, id uint) (*dto.InvoiceResponse, error)
	Reject(ctx context.Context, actor Actor, id uint, reason string) (*dto.InvoiceResponse, error)
	Hold(ctx context.Context, actor Actor, id uint, reason string) (*dto.InvoiceResponse, error)
	Release(ctx context.Context, actor Actor, id uint) (*dto.InvoiceResponse, error)
	Resubmit(ctx context.Context, actor Actor, id uint) (*dto.InvoiceResponse, error)
	SetHidden(ctx context.Context, actor Actor, id uint, hidden bool) error
}

type invoiceService struct {
	invoices   repository.InvoiceRepository
	payments   repository.PaymentRepository
	vendors    repository.VendorRepository
	categories repository.CategoryRepository
	currencies repository.CurrencyRepository
	dispatcher *worker.Dispatcher
}

func NewInvoiceService(
	invoices repository.InvoiceRepository,
	payments repository.PaymentRepository,
	vendors repository.VendorRepository,
	categories repository.CategoryRepository,
	currencies repository.CurrencyRepository,
	dispatcher *worker.Dispatcher,
) InvoiceService {
	return &invoiceService{
		invoices:   invoices,
		payments:   payments,
		vendors:    vendors,
		categories: categories,
		currencies: currencies,
		dispatcher: dispatcher,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return translateTxError(fn(nil))
	}
	return translateTxError(db.WithContext(ctx).Transaction(fn))
}

// ── Create ───────────────────────────────────────────────────────────────────

func (s *invoiceService) Create(ctx context.Context, actor Actor, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if !req.InvoiceAmount.IsPositive() {
		return nil, domainErr(CodeValidation, "invoice_amount must be positive")
	}
	rounding := req.TDSRoundingMode
	if rounding == "" {
		rounding = model.RoundingExact
	}
	if req.TDSApplicable {
		if req.TDSPercentage == nil {
			return nil, domainErr(CodeValidation, "tds_percentage is required when tds_applicable is set")
		}
		if _, err := ComputeTDS(req.InvoiceAmount, *req.TDSPercentage, rounding); err != nil {
			return nil, err
		}
	}

	// Master-data lookups: vendor must exist, optional references must resolve
	if _, err := s.vendors.FindByID(ctx, req.VendorID); err != nil {
		return nil, domainErr(CodeValidation, fmt.Sprintf("vendor %d not found", req.VendorID))
	}
	if req.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *req.CategoryID); err != nil {
			return nil, domainErr(CodeValidation, fmt.Sprintf("category %d not found", *req.CategoryID))
		}
	}
	if req.CurrencyID != nil {
		if _, err := s.currencies.FindByID(ctx, *req.CurrencyID); err != nil {
			return nil, domainErr(CodeValidation, fmt.Sprintf("currency %d not found", *req.CurrencyID))
		}
	}

	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		t, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			return nil, domainErr(CodeValidation, "due_date must be YYYY-MM-DD")
		}
		dueDate = &t
	}

	inv := &model.Invoice{
		InvoiceNumber:   strings.TrimSpace(req.InvoiceNumber),
		VendorID:        req.VendorID,
		CategoryID:      req.CategoryID,
		CurrencyID:      req.CurrencyID,
		Status:          model.StatusPendingApproval,
		InvoiceAmount:   req.InvoiceAmount,
		TDSApplicable:   req.TDSApplicable,
		TDSPercentage:   req.TDSPercentage,
		TDSRoundingMode: rounding,
		DueDate:         dueDate,
		CreatedBy:       actor.ID,
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.notify(ctx, worker.EventInvoiceSubmitted, inv, actor)
	return s.snapshot(ctx, inv)
}

// ── Read ─────────────────────────────────────────────────────────────────────

func (s *invoiceService) Get(ctx context.Context, id uint) (*dto.InvoiceResponse, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, domainErr(CodeNotFound, fmt.Sprintf("invoice %d not found", id))
	}
	resp, err := s.snapshot(ctx, inv)
	if err != nil {
		return nil, err
	}
	for _, p := range inv.Payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(&p))
	}
	return resp, nil
}

func (s *invoiceService) List(ctx context.Context, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	invoices, total, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	resp := &dto.InvoiceListResponse{Total: total, Page: filter.Page, Limit: filter.Limit}
	for i := range invoices {
		snap, err := s.snapshot(ctx, &invoices[i])
		if err != nil {
			return nil, err
		}
		resp.Invoices = append(resp.Invoices, *snap)
	}
	return resp, nil
}

// ── Lifecycle transitions ────────────────────────────────────────────────────

func (s *invoiceService) Approve(ctx context.Context, actor Actor, id uint) (*dto.InvoiceResponse, error) {
	if err := Authorize(actor, TransitionApprove, nil); err != nil {
		return nil, err
	}

	var inv *model.Invoice
	var rec reconciliation
	txErr := runTx(ctx, s.invoices.DB(), func(tx *gorm.DB) error {
		var err error
		inv, err = s.invoices.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return domainErr(CodeNotFound, fmt.Sprintf("invoice %d not found", id))
		}
		if inv.Status != model.StatusPendingApproval {
			return domainErr(CodeInvalidTransition,
				fmt.Sprintf("invoice %d cannot be approved from status %q", id, inv.Status))
		}
		// Clear the override, then derive the real state from the ledger:
		// a resubmitted invoice may carry approved payments from before its
		// rejection.
		inv.Status = model.StatusUnpaid
		if rec, err = reconcileTx(tx, s.payments, inv, time.Now()); err != nil {
			return err
		}
		return s.invoices.UpdateTx(tx, inv)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify(ctx, worker.EventInvoiceApproved, inv, actor)
	return s.respond(ctx, inv, rec), nil
}

func (s *invoiceService) Reject(ctx context.Context, actor Actor, id uint, reason string) (*dto.InvoiceResponse, error) {
	reason = strings.TrimSpace(reason)
	// Character bounds, not bytes: multibyte reasons count per rune.
	if n := utf8.RuneCountInString(reason); n < 10 || n > 500 {
		return nil, domainErr(CodeValidation, "rejection reason must be 10-500 characters")
	}
	if err := Authorize(actor, TransitionReject, nil); err != nil {
		return nil, err
	}

	var inv *model.Invoice
	var rec reconciliation
	txErr := runTx(ctx, s.invoices.DB(), func(tx *gorm.DB) error {
		var err error
		inv, err = s.invoices.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return domainErr(CodeNotFound, fmt.Sprintf("invoice %d not found", id))
		}
		if inv.Status != model.StatusPendingApproval {
			return domainErr(CodeInvalidTransition,
				fmt.Sprintf("invoice %d cannot be rejected from status %q", id, inv.Status))
		}
		now := time.Now()
		inv.Status = model.StatusRejected
		inv.RejectionReason = &reason
		inv.RejectedBy = &actor.ID
		inv.RejectedAt = &now
		if rec, err = reconcileTx(tx, s.payments, inv, now); err != nil {
			return err
		}
		return s.invoices.UpdateTx(tx, inv)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify(ctx, worker.EventInvoiceRejected, inv, actor)
	return s.respond(ctx, inv, rec), nil
}

func (s *invoiceService) Hold(ctx context.Context, actor Actor, id uint, reason string) (*dto.InvoiceResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domainErr(CodeValidation, "hold reason is required")
	}
	if err := Authorize(actor, TransitionHold, nil); err != nil {
		return nil, err
	}

	var inv *model.Invoice
	var rec reconciliation
	txErr := runTx(ctx, s.invoices.DB(), func(tx *gorm.DB) error {
		var err error
		inv, err = s.invoices.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return domainErr(CodeNotFound, fmt.Sprintf("invoice %d not found", id))
		}
		if !inv.Holdable() {
			return domainErr(CodeInvalidTransition,
				fmt.Sprintf("invoice %d cannot be held from status %q", id, inv.Status))
		}
		now := time.Now()
		inv.Status = model.StatusOnHold
		inv.HoldReason = &reason
		inv.HoldBy = &actor.ID
		inv.HoldAt = &now
		if rec, err = reconcileTx(tx, s.payments, inv, now); err != nil {
			return err
		}
		return s.invoices.UpdateTx(tx, inv)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify(ctx, worker.EventInvoiceHeld, inv, actor)
	return s.respond(ctx, inv, rec), nil
}

func (s *invoiceService) Release(ctx context.Context, actor Actor, id uint) (*dto.InvoiceResponse, error) {
	if err := Authorize(actor, TransitionRelease, nil); err != nil {
		return nil, err
	}

	var inv *model.Invoice
	var rec reconciliation
	txErr := runTx(ctx, s.invoices.DB(), func(tx *gorm.DB) error {
		var err error
		inv, err = s.invoices.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return domainErr(CodeNotFound, fmt.Sprintf("invoice %d not found", id))
		}
		if inv.Status != model.StatusOnHold {
			return domainErr(CodeInvalidTransition,
				fmt.Sprintf("invoice %d is not on hold", id))
		}
		inv.ClearHold()
		// Released invoices fall back to whatever the ledger says.
		inv.Status = model.StatusUnpaid
		if rec, err = reconcileTx(tx, s.payments, inv, time.Now()); err != nil {
			return err
		}
		return s.invoices.UpdateTx(tx, inv)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify(ctx, worker.EventInvoiceReleased, inv, actor)
	return s.respond(ctx, inv, rec), nil
}

func (s *invoiceService) Resubmit(ctx context.Context, actor Actor, id uint) (*dto.InvoiceResponse, error) {
	// Ownership matters here, so the gate needs the invoice. This pre-read is
	// authorization-only; the state checks run again under the row lock.
	pre, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, domainErr(CodeNotFound, fmt.Sprintf("invoice %d not found", id))
	}
	if err := Authorize(actor, TransitionResubmit, pre); err != nil {
		return nil, err
	}

	var inv *model.Invoice
	var rec reconciliation
	txErr := runTx(ctx, s.invoices.DB(), func(tx *gorm.DB) error {
		var err error
		inv, err = s.invoices.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return domainErr(CodeNotFound, fmt.Sprintf("invoice %d not found", id))
		}
		if inv.Status != model.StatusRejected {
			return domainErr(CodeInvalidTransition,
				fmt.Sprintf("invoice %d cannot be resubmitted from status %q", id, inv.Status))
		}
		if inv.SubmissionCount >= model.MaxSubmissions {
			return domainErr(CodeResubmissionLimit,
				fmt.Sprintf("invoice %d already used all %d resubmissions", id, model.MaxSubmissions))
		}
		inv.SubmissionCount++
		inv.ClearRejection()
		inv.Status = model.StatusPendingApproval
		if rec, err = reconcileTx(tx, s.payments, inv, time.Now()); err != nil {
			return err
		}
		return s.invoices.UpdateTx(tx, inv)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify(ctx, worker.EventInvoiceResubmitted, inv, actor)
	return s.respond(ctx, inv, rec), nil
}

func (s *invoiceService) SetHidden(ctx context.Context, actor Actor, id uint, hidden bool) error {
	if err := Authorize(actor, TransitionHide, nil); err != nil {
		return err
	}
	if err := s.invoices.SetHidden(ctx, id, hidden); err != nil {
		return domainErr(CodeNotFound, fmt.Sprintf("invoice %d not found", id))
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// notify enqueues a domain event, best-effort: delivery failure is logged and
// never rolls back or blocks the committed operation.
func (s *invoiceService) notify(ctx context.Context, event string, inv *model.Invoice, actor Actor) {
	if s.dispatcher == nil {
		return
	}
	payload := worker.NotificationJobPayload{
		Event:     event,
		InvoiceID: inv.ID,
		ActorID:   actor.ID.String(),
		Status:    inv.Status,
	}
	if err := s.dispatcher.EnqueueNotification(ctx, payload); err != nil {
		log.Warn().Err(err).Str("event", event).Uint("invoice_id", inv.ID).
			Msg("failed to enqueue notification")
	}
}

// snapshot builds a response using a fresh (non-transactional) aggregate
// read — used by read paths and Create, where no ledger mutation happened.
func (s *invoiceService) snapshot(ctx context.Context, inv *model.Invoice) (*dto.InvoiceResponse, error) {
	total, err := s.payments.SumApproved(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("sum approved payments: %w", err)
	}
	return s.respond(ctx, inv, buildReconciliation(inv, total)), nil
}

func (s *invoiceService) respond(ctx context.Context, inv *model.Invoice, rec reconciliation) *dto.InvoiceResponse {
	resp := toInvoiceResponse(inv, rec)
	if inv.Vendor != nil {
		resp.VendorName = inv.Vendor.Name
	} else if v, err := s.vendors.FindByID(ctx, inv.VendorID); err == nil {
		resp.VendorName = v.Name
	}
	return resp
}

func toInvoiceResponse(inv *model.Invoice, rec reconciliation) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:              inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		VendorID:        inv.VendorID,
		CategoryID:      inv.CategoryID,
		CurrencyID:      inv.CurrencyID,
		Status:          inv.Status,
		InvoiceAmount:   inv.InvoiceAmount,
		TDSApplicable:   inv.TDSApplicable,
		TDSPercentage:   inv.TDSPercentage,
		TDSRoundingMode: inv.TDSRoundingMode,
		TDSAmount:       rec.TDSAmount,
		NetPayable:      rec.NetPayable,
		TotalApproved:   rec.TotalApproved,
		Remaining:       maxDecimal(rec.Remaining, decimal.Zero),
		HoldReason:      inv.HoldReason,
		SubmissionCount: inv.SubmissionCount,
		RejectionReason: inv.RejectionReason,
		IsHidden:        inv.IsHidden,
		CreatedBy:       inv.CreatedBy.String(),
		CreatedAt:       inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.DueDate != nil {
		d := inv.DueDate.Format("2006-01-02")
		resp.DueDate = &d
	}
	if inv.HoldBy != nil {
		u := inv.HoldBy.String()
		resp.HoldBy = &u
	}
	if inv.HoldAt != nil {
		t := inv.HoldAt.Format(time.RFC3339)
		resp.HoldAt = &t
	}
	if inv.RejectedBy != nil {
		u := inv.RejectedBy.String()
		resp.RejectedBy = &u
	}
	if inv.RejectedAt != nil {
		t := inv.RejectedAt.Format(time.RFC3339)
		resp.RejectedAt = &t
	}
	return resp
}

func maxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
