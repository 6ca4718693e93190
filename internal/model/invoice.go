package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice statuses.
// pending_approval | unpaid | partial | paid | on_hold | rejected | overdue
//
// unpaid/partial/paid are derived from the approved-payment sum and are never
// set directly by a caller. on_hold, rejected and pending_approval override
// the derived states until the invoice is released / approved.
const (
	StatusPendingApproval = "pending_approval"
	StatusUnpaid          = "unpaid"
	StatusPartial         = "partial"
	StatusPaid            = "paid"
	StatusOnHold          = "on_hold"
	StatusRejected        = "rejected"
	StatusOverdue         = "overdue"
)

// TDS rounding modes, persisted per invoice.
const (
	RoundingExact   = "exact"
	RoundingRoundUp = "round_up"
)

// MaxSubmissions caps resubmission attempts after rejection.
const MaxSubmissions = 3

// Invoice is a vendor invoice tracked through the approval / hold / payment /
// rejection lifecycle. Status is a cached derivation of the approved-payment
// sum; every mutation that can change that sum recomputes it inside the same
// transaction.
type Invoice struct {
	ID            uint   `gorm:"primaryKey"`
	InvoiceNumber string `gorm:"uniqueIndex;not null"`
	VendorID      uint   `gorm:"index;not null"`
	CategoryID    *uint  `gorm:"index"`
	CurrencyID    *uint
	Status        string          `gorm:"type:varchar(20);not null;default:'pending_approval';index"`
	InvoiceAmount decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	TDSApplicable   bool             `gorm:"not null;default:false;column:tds_applicable"`
	TDSPercentage   *decimal.Decimal `gorm:"type:decimal(5,2);column:tds_percentage"`
	TDSRoundingMode string           `gorm:"type:varchar(10);not null;default:'exact';column:tds_rounding_mode"`

	DueDate *time.Time `gorm:"index"`

	// Hold triple — present only while on_hold
	HoldReason *string
	HoldBy     *uuid.UUID `gorm:"type:uuid"`
	HoldAt     *time.Time

	SubmissionCount int `gorm:"not null;default:0"`

	// Rejection triple — present only while rejected
	RejectionReason *string
	RejectedBy      *uuid.UUID `gorm:"type:uuid"`
	RejectedAt      *time.Time

	// IsHidden is orthogonal to status (soft hide / recovery)
	IsHidden bool `gorm:"not null;default:false;index"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Vendor   *Vendor   `gorm:"foreignKey:VendorID"`
	Payments []Payment `gorm:"foreignKey:InvoiceID"`
}

// AcceptsPayments reports whether new payments may be recorded against the
// invoice. Rejected and paid are terminal for payment creation; held and
// pending invoices must be released / approved first.
func (i *Invoice) AcceptsPayments() bool {
	switch i.Status {
	case StatusUnpaid, StatusPartial, StatusOverdue:
		return true
	default:
		return false
	}
}

// Holdable reports whether the invoice can transition to on_hold.
func (i *Invoice) Holdable() bool {
	switch i.Status {
	case StatusUnpaid, StatusPartial, StatusOverdue:
		return true
	default:
		return false
	}
}

// Overriding reports whether the current status overrides the payment-derived
// states. on_hold, rejected and pending_approval stick until cleared.
func (i *Invoice) Overriding() bool {
	switch i.Status {
	case StatusOnHold, StatusRejected, StatusPendingApproval:
		return true
	default:
		return false
	}
}

// ClearHold removes the hold triple.
func (i *Invoice) ClearHold() {
	i.HoldReason = nil
	i.HoldBy = nil
	i.HoldAt = nil
}

// ClearRejection removes the rejection triple.
func (i *Invoice) ClearRejection() {
	i.RejectionReason = nil
	i.RejectedBy = nil
	i.RejectedAt = nil
}
