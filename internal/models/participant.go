package models

import "gorm.io/gorm"

type Track string

const (
	TrackProgramming            Track = "programming"
	TrackIdeathon               Track = "ideathon"
	TrackCompetitiveProgramming Track = "competitive_programming"
	TrackGaming                 Track = "gaming"
	TrackSocialite              Track = "socialite"
)

// Valid reports whether t is one of the five competition tracks.
func (t Track) Valid() bool {
	switch t {
	case TrackProgramming, TrackIdeathon, TrackCompetitiveProgramming, TrackGaming, TrackSocialite:
		return true
	}
	return false
}

type TShirtSize string

const (
	SizeS   TShirtSize = "S"
	SizeM   TShirtSize = "M"
	SizeL   TShirtSize = "L"
	SizeXL  TShirtSize = "XL"
	SizeXXL TShirtSize = "XXL"
)

func (s TShirtSize) Valid() bool {
	switch s {
	case SizeS, SizeM, SizeL, SizeXL, SizeXXL:
		return true
	}
	return false
}

type Participant struct {
	gorm.Model

	UserID              uint   `gorm:"uniqueIndex;not null"`
	StudentID           string `gorm:"uniqueIndex;not null"`
	CNIC                string `gorm:"uniqueIndex;not null"`
	Track               Track  `gorm:"type:varchar(32);not null"`
	TechnicalSkills     string
	GithubLink          string
	PortfolioLink       string
	TShirtSize          TShirtSize `gorm:"type:varchar(8);not null"`
	DietaryRequirements string
	EmergencyContact    string
	IsTeamLead          bool  `gorm:"not null;default:false"`
	TeamID              *uint `gorm:"index"`

	// Relationships
	User     User      `gorm:"foreignKey:UserID"`
	Team     *Team     `gorm:"foreignKey:TeamID"`
	Payment  *Payment  `gorm:"foreignKey:ParticipantID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	CheckIns []CheckIn `gorm:"foreignKey:ParticipantID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
