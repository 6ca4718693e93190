package service

// reconcile.go — derivation of invoice status from the payment ledger.
// Status is never trusted from a previous read: every mutation that can move
// the approved-payment sum recomputes it here, on the same transaction that
// holds the invoice row lock.

import (
	"fmt"
	"time"

	"paylog/internal/model"
	"paylog/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// reconciliation is the payment aggregate an invoice status derives from.
type reconciliation struct {
	TDSAmount     decimal.Decimal
	NetPayable    decimal.Decimal
	TotalApproved decimal.Decimal
	Remaining     decimal.Decimal
}

func buildReconciliation(inv *model.Invoice, totalApproved decimal.Decimal) reconciliation {
	tds := TDSAmount(inv)
	net := inv.InvoiceAmount.Sub(tds)
	return reconciliation{
		TDSAmount:     tds,
		NetPayable:    net,
		TotalApproved: totalApproved,
		Remaining:     net.Sub(totalApproved),
	}
}

// reconcileTx recomputes the aggregate and, unless an overriding state
// (on_hold / rejected / pending_approval) is active, rewrites inv.Status in
// place. The caller must have locked the invoice row on tx; a sum read
// outside that transaction can be stale by the time the status commits.
func reconcileTx(tx *gorm.DB, payments repository.PaymentRepository, inv *model.Invoice, now time.Time) (reconciliation, error) {
	total, err := payments.SumApprovedTx(tx, inv.ID)
	if err != nil {
		return reconciliation{}, fmt.Errorf("sum approved payments for invoice %d: %w", inv.ID, err)
	}
	rec := buildReconciliation(inv, total)
	if !inv.Overriding() {
		inv.Status = deriveStatus(inv, rec, now)
	}
	return rec, nil
}

// deriveStatus maps the aggregate onto the payment-derived states.
// paid iff remaining ≤ epsilon; partial iff any approved money and remaining
// above epsilon; otherwise unpaid, or overdue when the due date has passed.
func deriveStatus(inv *model.Invoice, rec reconciliation, now time.Time) string {
	switch {
	case rec.Remaining.LessThanOrEqual(Epsilon):
		return model.StatusPaid
	case rec.TotalApproved.GreaterThan(decimal.Zero):
		return model.StatusPartial
	default:
		if inv.DueDate != nil && inv.DueDate.Before(now) {
			return model.StatusOverdue
		}
		return model.StatusUnpaid
	}
}
