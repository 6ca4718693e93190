package dto

import (
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest submits a new vendor invoice (status pending_approval).
type CreateInvoiceRequest struct {
	InvoiceNumber   string           `json:"invoice_number" validate:"required,max=64"`
	VendorID        uint             `json:"vendor_id" validate:"required"`
	CategoryID      *uint            `json:"category_id"`
	CurrencyID      *uint            `json:"currency_id"`
	InvoiceAmount   decimal.Decimal  `json:"invoice_amount" validate:"required,gt=0"`
	TDSApplicable   bool             `json:"tds_applicable"`
	TDSPercentage   *decimal.Decimal `json:"tds_percentage" validate:"omitempty,gte=0,lte=100"`
	TDSRoundingMode string           `json:"tds_rounding_mode" validate:"omitempty,oneof=exact round_up"`
	DueDate         *string          `json:"due_date"` // YYYY-MM-DD
}

// RejectInvoiceRequest carries the mandatory rejection reason.
type RejectInvoiceRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

// HoldInvoiceRequest carries the hold reason.
type HoldInvoiceRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// InvoiceFilter selects invoices for listing.
type InvoiceFilter struct {
	Status        string `form:"status"`
	VendorID      uint   `form:"vendor_id"`
	IncludeHidden bool   `form:"include_hidden"`
	Page          int    `form:"page"`
	Limit         int    `form:"limit"`
}

// InvoiceResponse is the committed invoice snapshot returned by every
// lifecycle and ledger operation: status plus the reconciliation figures it
// was derived from.
type InvoiceResponse struct {
	ID              uint              `json:"id"`
	InvoiceNumber   string            `json:"invoice_number"`
	VendorID        uint              `json:"vendor_id"`
	VendorName      string            `json:"vendor_name,omitempty"`
	CategoryID      *uint             `json:"category_id,omitempty"`
	CurrencyID      *uint             `json:"currency_id,omitempty"`
	Status          string            `json:"status"`
	InvoiceAmount   decimal.Decimal   `json:"invoice_amount"`
	TDSApplicable   bool              `json:"tds_applicable"`
	TDSPercentage   *decimal.Decimal  `json:"tds_percentage,omitempty"`
	TDSRoundingMode string            `json:"tds_rounding_mode"`
	TDSAmount       decimal.Decimal   `json:"tds_amount"`
	NetPayable      decimal.Decimal   `json:"net_payable"`
	TotalApproved   decimal.Decimal   `json:"total_approved"`
	Remaining       decimal.Decimal   `json:"remaining"`
	DueDate         *string           `json:"due_date,omitempty"`
	HoldReason      *string           `json:"hold_reason,omitempty"`
	HoldBy          *string           `json:"hold_by,omitempty"`
	HoldAt          *string           `json:"hold_at,omitempty"`
	SubmissionCount int               `json:"submission_count"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
	RejectedBy      *string           `json:"rejected_by,omitempty"`
	RejectedAt      *string           `json:"rejected_at,omitempty"`
	IsHidden        bool              `json:"is_hidden"`
	CreatedBy       string            `json:"created_by"`
	CreatedAt       string            `json:"created_at"`
	Payments        []PaymentResponse `json:"payments,omitempty"`
}

// InvoiceListResponse is a paginated invoice listing.
type InvoiceListResponse struct {
	Invoices []InvoiceResponse `json:"invoices"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}
