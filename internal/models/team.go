package models

import "gorm.io/gorm"

type Team struct {
	gorm.Model

	Name  string `gorm:"uniqueIndex;not null"`
	Code  string `gorm:"uniqueIndex;not null;type:varchar(8)"`
	Track Track  `gorm:"type:varchar(32);not null"`

	// MemberCount is maintained with conditional updates so joins
	// cannot overshoot the capacity under concurrency.
	MemberCount int `gorm:"not null;default:0"`

	// Relationships
	Members []Participant `gorm:"foreignKey:TeamID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
}
