package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationKind string

const (
	NotifyPending    NotificationKind = "pending"
	NotifyVerified   NotificationKind = "verified"
	NotifyRejected   NotificationKind = "rejected"
	NotifyTeamInvite NotificationKind = "team_invite"
)

type NotificationStatus string

const (
	NotifyStatusPending NotificationStatus = "pending"
	NotifyStatusSent    NotificationStatus = "sent"
	NotifyStatusFailed  NotificationStatus = "failed"
)

// Notification is the delivery ledger: one row per attempted email, written
// when the job is enqueued and finalized by the worker.
type Notification struct {
	gorm.Model

	UserID    uint               `gorm:"not null;index"`
	Kind      NotificationKind   `gorm:"type:varchar(32);not null"`
	Recipient string             `gorm:"not null"`
	Subject   string             `gorm:"not null"`
	Status    NotificationStatus `gorm:"type:varchar(16);not null;default:pending"`
	Attempts  int                `gorm:"not null;default:0"`
	LastError string
	SentAt    *time.Time

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
