package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment statuses. Only approved payments count toward the reconciled sum.
const (
	PaymentPending  = "pending"
	PaymentApproved = "approved"
	PaymentRejected = "rejected"
)

// Payment is one payment recorded against an invoice. The invoice owns the
// aggregate derived from its payments, never the rows themselves.
type Payment struct {
	ID          uint            `gorm:"primaryKey"`
	InvoiceID   uint            `gorm:"index;not null"`
	AmountPaid  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PaymentDate time.Time       `gorm:"not null"`
	Status      string          `gorm:"type:varchar(10);not null;default:'pending';index"`

	PaymentTypeID *uint `gorm:"index"`

	RecordedBy uuid.UUID  `gorm:"type:uuid;not null"`
	ApprovedBy *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt *time.Time
	ReversedBy *uuid.UUID `gorm:"type:uuid"`
	ReversedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsReversed reports whether the payment was voided. Reversing an already
// reversed payment is a no-op at the service layer.
func (p *Payment) IsReversed() bool { return p.Status == PaymentRejected }
