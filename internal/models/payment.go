package models

import (
	"time"

	"gorm.io/gorm"
)

type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCash || m == MethodOnline
}

type PaymentStatus string

const (
	StatusPending     PaymentStatus = "pending"
	StatusPendingCash PaymentStatus = "pending_cash"
	StatusVerified    PaymentStatus = "verified"
	StatusRejected    PaymentStatus = "rejected"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPendingCash, StatusVerified, StatusRejected:
		return true
	}
	return false
}

type Payment struct {
	gorm.Model

	ParticipantID uint          `gorm:"uniqueIndex;not null"`
	TeamID        *uint         `gorm:"index"`
	Amount        float64       `gorm:"not null"`
	Method        PaymentMethod `gorm:"type:varchar(16);not null"`
	Status        PaymentStatus `gorm:"type:varchar(16);not null;default:pending"`
	TransactionID string
	ReceiptPath   string
	UploadedAt    *time.Time
	VerifiedByID  *uint `gorm:"index"`
	VerifiedAt    *time.Time

	// Relationships
	Participant Participant `gorm:"foreignKey:ParticipantID"`
	Team        *Team       `gorm:"foreignKey:TeamID"`
	VerifiedBy  *User       `gorm:"foreignKey:VerifiedByID"`
}
