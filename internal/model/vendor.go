package model

import "time"

// Vendor represents a supplier that issues invoices.
type Vendor struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	TaxID       string `gorm:"column:tax_id;uniqueIndex;not null"`
	Email       *string
	Phone       *string
	Address     *string
	PaymentTerm *string
	Active      bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
