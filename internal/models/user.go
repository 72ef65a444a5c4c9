package models

import "gorm.io/gorm"

type UserRole string

const (
	RoleParticipant      UserRole = "participant"
	RoleAmbassador       UserRole = "ambassador"
	RoleRegistrationTeam UserRole = "registration_team"
	RoleAdmin            UserRole = "admin"
)

// Valid reports whether r is one of the four known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleParticipant, RoleAmbassador, RoleRegistrationTeam, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	gorm.Model

	Email        string   `gorm:"uniqueIndex;not null"`
	PasswordHash string   `gorm:"not null"`
	FullName     string   `gorm:"not null"`
	University   string
	PhoneNumber  string
	Role         UserRole `gorm:"type:varchar(32);not null;default:participant"`
	IsActive     bool     `gorm:"not null;default:true"`

	// Relationships
	Participant *Participant `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
