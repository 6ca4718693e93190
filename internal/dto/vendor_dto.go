package dto

// CreateVendorRequest registers a supplier.
type CreateVendorRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	TaxID       string  `json:"tax_id" validate:"required,max=32"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	PaymentTerm *string `json:"payment_term"`
}

// UpdateVendorRequest modifies supplier master data.
type UpdateVendorRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	PaymentTerm *string `json:"payment_term"`
}

// VendorResponse is the public projection of a vendor.
type VendorResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	TaxID       string  `json:"tax_id"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
	PaymentTerm *string `json:"payment_term,omitempty"`
	Active      bool    `json:"active"`
}

// CreateCategoryRequest registers an invoice category.
type CreateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description"`
}

// CategoryResponse is the public projection of a category.
type CategoryResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Active      bool    `json:"active"`
}
