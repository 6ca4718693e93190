package dto

// BulkApproveRequest approves many invoices in one request.
type BulkApproveRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1,max=500"`
}

// BulkRejectRequest rejects many invoices with one shared reason.
type BulkRejectRequest struct {
	IDs    []uint `json:"ids" validate:"required,min=1,max=500"`
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

// BulkExportRequest projects invoices into delimited text.
type BulkExportRequest struct {
	IDs     []uint   `json:"ids" validate:"required,min=1,max=5000"`
	Columns []string `json:"columns" validate:"required,min=1"`
}

// BulkFailure identifies one invoice that could not be processed and why.
type BulkFailure struct {
	ID     uint   `json:"id"`
	Reason string `json:"reason"`
}

// BulkResult reports per-item outcomes: partial success is a normal result,
// not an error.
type BulkResult struct {
	SuccessCount int           `json:"success_count"`
	Failures     []BulkFailure `json:"failures"`
}
