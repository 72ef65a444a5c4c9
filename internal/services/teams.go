package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"gorm.io/gorm"

	"github.com/devcon-dev/devcon/internal/apperr"
	"github.com/devcon-dev/devcon/internal/config"
	"github.com/devcon-dev/devcon/internal/models"
)

const (
	teamCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	teamCodeLength   = 8

	// createRetries bounds the unique-constraint backstop when two teams
	// draw the same code at once.
	createRetries = 5
)

// TeamService creates teams and attaches participants to them. Methods take
// the *gorm.DB explicitly so registration can run them inside its own
// transaction.
type TeamService struct {
	maxSize int
}

func NewTeamService(cfg config.Config) *TeamService {
	return &TeamService{maxSize: cfg.TeamMaxSize}
}

// GenerateTeamCode draws a random join code from [A-Z0-9].
func GenerateTeamCode() (string, error) {
	code := make([]byte, teamCodeLength)

	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(teamCodeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("draw team code: %w", err)
		}
		code[i] = teamCodeAlphabet[n.Int64()]
	}

	return string(code), nil
}

// Create makes a new team and attaches the leader as its first member.
func (s *TeamService) Create(tx *gorm.DB, name string, track models.Track, leaderID uint) (*models.Team, error) {
	var leader models.Participant

	if err := tx.First(&leader, leaderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("participant not found")
		}
		return nil, err
	}

	if leader.TeamID != nil {
		return nil, apperr.Conflict("participant already belongs to a team")
	}

	var count int64

	if err := tx.Model(&models.Team{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, err
	}

	if count > 0 {
		return nil, apperr.Conflict("team name already taken")
	}

	var team models.Team

	for attempt := 0; ; attempt++ {
		code, err := GenerateTeamCode()

		if err != nil {
			return nil, err
		}

		team = models.Team{
			Name:        name,
			Code:        code,
			Track:       track,
			MemberCount: 1,
		}

		err = tx.Create(&team).Error

		if err == nil {
			break
		}

		// A duplicate key here is almost always a code collision;
		// a lost name race surfaces the same way and gives up below.
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < createRetries {
			continue
		}

		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("team name already taken")
		}

		return nil, err
	}

	updates := map[string]interface{}{
		"team_id":      team.ID,
		"is_team_lead": true,
	}

	if err := tx.Model(&leader).Updates(updates).Error; err != nil {
		return nil, err
	}

	return &team, nil
}

// Join attaches a participant to an existing team by code. The member count
// is claimed with a conditional update so concurrent joins can never push a
// team past capacity.
func (s *TeamService) Join(tx *gorm.DB, code string, participantID uint) (*models.Team, error) {
	var participant models.Participant

	if err := tx.First(&participant, participantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("participant not found")
		}
		return nil, err
	}

	if participant.TeamID != nil {
		return nil, apperr.Conflict("participant already belongs to a team")
	}

	claim := tx.Model(&models.Team{}).
		Where("code = ? AND member_count < ?", code, s.maxSize).
		UpdateColumn("member_count", gorm.Expr("member_count + 1"))

	if claim.Error != nil {
		return nil, claim.Error
	}

	if claim.RowsAffected == 0 {
		var count int64

		if err := tx.Model(&models.Team{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return nil, err
		}

		if count == 0 {
			return nil, apperr.NotFound("invalid team code")
		}

		return nil, apperr.CapacityExceeded("team is full")
	}

	var team models.Team

	if err := tx.Where("code = ?", code).First(&team).Error; err != nil {
		return nil, err
	}

	if err := tx.Model(&participant).Update("team_id", team.ID).Error; err != nil {
		return nil, err
	}

	return &team, nil
}
