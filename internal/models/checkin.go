package models

import (
	"time"

	"gorm.io/gorm"
)

// CheckIn is append-only: at most one row per (participant, event).
type CheckIn struct {
	gorm.Model

	ParticipantID uint      `gorm:"not null;uniqueIndex:idx_participant_event"`
	EventType     string    `gorm:"not null;uniqueIndex:idx_participant_event"`
	CheckedByID   uint      `gorm:"not null"`
	CheckedAt     time.Time `gorm:"not null"`

	// Relationships
	Participant Participant `gorm:"foreignKey:ParticipantID"`
	CheckedBy   User        `gorm:"foreignKey:CheckedByID"`
}
