package model

import "time"

// Currency is a stored reference only — no conversion happens anywhere.
type Currency struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"type:varchar(3);uniqueIndex;not null"`
	Name      string `gorm:"not null"`
	Symbol    string `gorm:"type:varchar(5);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
