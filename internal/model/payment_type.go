package model

import "time"

// PaymentType labels how a payment was made (bank transfer, cheque, UPI, …).
type PaymentType struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
