package dto

import "github.com/shopspring/decimal"

// RecordPaymentRequest records a payment against an invoice.
type RecordPaymentRequest struct {
	InvoiceID     uint            `json:"invoice_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required,gt=0"`
	PaymentDate   string          `json:"payment_date" validate:"required"` // YYYY-MM-DD
	PaymentTypeID *uint           `json:"payment_type_id"`
}

// PaymentResponse mirrors one payment row.
type PaymentResponse struct {
	ID            uint            `json:"id"`
	InvoiceID     uint            `json:"invoice_id"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentDate   string          `json:"payment_date"`
	Status        string          `json:"status"`
	PaymentTypeID *uint           `json:"payment_type_id,omitempty"`
	RecordedBy    string          `json:"recorded_by"`
	CreatedAt     string          `json:"created_at"`
}

// PaymentResult pairs the affected payment with the recomputed invoice
// snapshot so callers always see the committed reconciliation state.
type PaymentResult struct {
	Payment PaymentResponse `json:"payment"`
	Invoice InvoiceResponse `json:"invoice"`
}
